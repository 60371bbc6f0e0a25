// Package relay delivers sent messages through an SMTP server.
package relay

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"net/mail"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/jhillyerd/enmime"
	"github.com/vdavid/flowcrm/backend/internal/models"
)

const dialTimeout = 10 * time.Second

// SMTPMailer relays messages to a submission server. The session is upgraded
// with STARTTLS whenever the server offers it. Credentials are optional;
// without them the server must accept unauthenticated mail.
type SMTPMailer struct {
	addr     string
	username string
	password string
}

// NewSMTPMailer creates a mailer for the server at addr (host:port).
func NewSMTPMailer(addr, username, password string) *SMTPMailer {
	return &SMTPMailer{
		addr:     addr,
		username: username,
		password: password,
	}
}

// Send builds the MIME message and hands it to the server. Cancelling ctx
// aborts the session.
func (m *SMTPMailer) Send(ctx context.Context, from string, msg *models.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, recipients, err := BuildMIME(from, msg)
	if err != nil {
		return err
	}

	c, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = c.Close()
	}()
	stop := context.AfterFunc(ctx, func() {
		_ = c.Close()
	})
	defer stop()

	if m.username != "" {
		if err := c.Auth(sasl.NewPlainClient("", m.username, m.password)); err != nil {
			return fmt.Errorf("failed to authenticate with %s: %w", m.addr, err)
		}
	}

	if err := c.SendMail(from, recipients, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("failed to send via %s: %w", m.addr, err)
	}
	if err := c.Quit(); err != nil {
		log.Printf("SMTPMailer: QUIT after delivery failed: %v", err)
	}

	log.Printf("SMTPMailer: relayed message for thread %s to %d recipient(s)", msg.ThreadID, len(recipients))
	return nil
}

// connect opens a session and greets the server. When the server advertises
// STARTTLS, the plaintext session is dropped and a new one is upgraded.
func (m *SMTPMailer) connect(ctx context.Context) (*smtp.Client, error) {
	conn, err := m.dial(ctx)
	if err != nil {
		return nil, err
	}
	c := smtp.NewClient(conn)
	if err := c.Hello("localhost"); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to greet %s: %w", m.addr, err)
	}
	if ok, _ := c.Extension("STARTTLS"); !ok {
		return c, nil
	}
	_ = c.Quit()

	conn, err = m.dial(ctx)
	if err != nil {
		return nil, err
	}
	host, _, err := net.SplitHostPort(m.addr)
	if err != nil {
		host = m.addr
	}
	c, err = smtp.NewClientStartTLS(conn, &tls.Config{ServerName: host})
	if err != nil {
		return nil, fmt.Errorf("failed to start TLS with %s: %w", m.addr, err)
	}
	return c, nil
}

func (m *SMTPMailer) dial(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", m.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", m.addr, err)
	}
	return conn, nil
}

// BuildMIME encodes msg as an RFC 5322 message and returns it together with
// the envelope recipients (to, cc and bcc).
func BuildMIME(from string, msg *models.Message) ([]byte, []string, error) {
	sender, err := mail.ParseAddress(from)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}

	to, err := parseAddresses(msg.To)
	if err != nil {
		return nil, nil, err
	}
	cc, err := parseAddresses(msg.CC)
	if err != nil {
		return nil, nil, err
	}
	bcc, err := parseAddresses(msg.BCC)
	if err != nil {
		return nil, nil, err
	}

	builder := enmime.Builder().
		From(sender.Name, sender.Address).
		ToAddrs(to).
		Subject(msg.Subject).
		Date(msg.CreatedAt).
		Text([]byte(msg.Body)).
		Header("X-Thread-Id", msg.ThreadID)
	if len(cc) > 0 {
		builder = builder.CCAddrs(cc)
	}
	if len(bcc) > 0 {
		builder = builder.BCCAddrs(bcc)
	}
	if xp := msg.Priority.XPriority(); xp != "" {
		builder = builder.Header("X-Priority", xp)
	}

	root, err := builder.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build message: %w", err)
	}

	var buf bytes.Buffer
	if err := root.Encode(&buf); err != nil {
		return nil, nil, fmt.Errorf("failed to encode message: %w", err)
	}

	recipients := make([]string, 0, len(to)+len(cc)+len(bcc))
	for _, list := range [][]mail.Address{to, cc, bcc} {
		for _, address := range list {
			recipients = append(recipients, address.Address)
		}
	}

	return buf.Bytes(), recipients, nil
}

func parseAddresses(addresses []string) ([]mail.Address, error) {
	result := make([]mail.Address, 0, len(addresses))
	for _, address := range addresses {
		parsed, err := mail.ParseAddress(address)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", address, err)
		}
		result = append(result, *parsed)
	}
	return result, nil
}
