// Package imap imports an existing mailbox folder into the message store.
package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/client"
)

const dialTimeout = 5 * time.Second

// connect opens a session to address (host:port) and logs in. useTLS is
// false only for local test servers. Cancelling ctx aborts the dial and the
// TLS handshake.
func connect(ctx context.Context, address, username, password string, useTLS bool) (*client.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("imap: failed to dial %s: %w", address, err)
	}

	if useTLS {
		host, _, err := net.SplitHostPort(address)
		if err != nil {
			host = address
		}
		tlsConn := tls.Client(conn, &tls.Config{ServerName: host})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("imap: TLS handshake with %s failed: %w", address, err)
		}
		conn = tlsConn
	}

	c, err := client.New(conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("imap: no greeting from %s: %w", address, err)
	}

	if err := c.Login(username, password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("imap: failed to log in as %s: %w", username, err)
	}
	return c, nil
}
