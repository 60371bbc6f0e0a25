// Package websocket pushes mailbox change events to connected UI clients.
package websocket

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 5 * time.Second
	// sendBuffer is how many broadcasts may queue for one client before it
	// counts as stalled and is dropped.
	sendBuffer = 16
)

// Client wraps a WebSocket connection. Broadcasts are queued on send and
// written by the client's own goroutine, the only writer of conn.
type Client struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// Conn returns the underlying WebSocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

func (c *Client) writePump(h *Hub) {
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("websocket: failed to write message: %v", err)
				h.Unregister(c)
				return
			}
		case <-c.done:
			return
		}
	}
}

// Hub tracks the open UI connections (one per browser tab) and broadcasts
// to all of them.
type Hub struct {
	mu             sync.RWMutex
	clients        map[*Client]struct{}
	maxConnections int
}

// NewHub creates a Hub that accepts at most maxConnections clients.
func NewHub(maxConnections int) *Hub {
	if maxConnections <= 0 {
		maxConnections = 10
	}
	return &Hub{
		clients:        make(map[*Client]struct{}),
		maxConnections: maxConnections,
	}
}

// Register adds a connection. Over the limit the connection is closed with a
// policy violation and nil is returned.
func (h *Hub) Register(conn *websocket.Conn) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) >= h.maxConnections {
		log.Printf("websocket: exceeded max connections (%d), closing new connection", h.maxConnections)
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too many connections"),
			time.Time{},
		)
		_ = conn.Close()
		return nil
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	h.clients[client] = struct{}{}
	go client.writePump(h)
	return client
}

// Unregister removes a client and closes its connection.
func (h *Hub) Unregister(client *Client) {
	if client == nil {
		return
	}

	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()

	client.closeOnce.Do(func() { close(client.done) })
	_ = client.conn.Close()
}

// Send queues msg for every client and returns without waiting for the
// writes. A client whose queue is full is dropped.
func (h *Hub) Send(msg []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- msg:
		default:
			log.Printf("websocket: client is not keeping up, dropping it")
			h.Unregister(client)
		}
	}
}

// ActiveConnections returns the number of registered clients.
func (h *Hub) ActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
