package websocket

import (
	"encoding/json"
	"log"
)

const (
	EventThreadUpdated = "thread_updated"
	EventThreadDeleted = "thread_deleted"
)

// Event is the JSON payload sent to clients.
type Event struct {
	Type     string `json:"type"`
	ThreadID string `json:"threadId"`
}

// Notifier turns mailbox changes into hub broadcasts.
type Notifier struct {
	hub *Hub
}

// NewNotifier creates a Notifier publishing on hub.
func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

// ThreadUpdated tells clients to refresh a thread and the thread list.
func (n *Notifier) ThreadUpdated(threadID string) {
	n.publish(Event{Type: EventThreadUpdated, ThreadID: threadID})
}

// ThreadDeleted tells clients that a thread lost its last message.
func (n *Notifier) ThreadDeleted(threadID string) {
	n.publish(Event{Type: EventThreadDeleted, ThreadID: threadID})
}

func (n *Notifier) publish(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("websocket: failed to encode %s event: %v", event.Type, err)
		return
	}
	n.hub.Send(payload)
}
