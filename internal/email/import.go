package email

import (
	"context"
	"fmt"
	"io"
	"net/mail"
	"strings"

	"github.com/jhillyerd/enmime"
	"github.com/vdavid/flowcrm/backend/internal/models"
)

// ImportOptions controls how a raw message is filed.
type ImportOptions struct {
	// ThreadID overrides the thread the message joins. When empty the
	// X-Thread-Id header is used, then a fresh thread.
	ThreadID string
	// Read marks the imported message as already read.
	Read bool
}

// Import parses an RFC 5322 message and stores it as received mail. The
// sender is linked to a contact when one matches.
func (s *Service) Import(ctx context.Context, raw io.Reader, opts ImportOptions) (*models.Message, error) {
	msg, err := ParseRaw(raw)
	if err != nil {
		return nil, err
	}

	switch {
	case opts.ThreadID != "":
		msg.ThreadID = opts.ThreadID
	case msg.ThreadID == "":
		msg.ThreadID = s.newThreadID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	msg.IsRead = opts.Read
	msg.ContactID = s.resolveContact(ctx, msg.From)

	created, err := s.messages.Create(ctx, msg)
	if err != nil {
		return nil, err
	}
	s.notifyUpdated(created.ThreadID)
	return created, nil
}

// ParseRaw converts a MIME message into a Message without storing it. The
// result has no ID and no read state.
func ParseRaw(raw io.Reader) (*models.Message, error) {
	envelope, err := enmime.ReadEnvelope(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	from := envelope.GetHeader("From")
	if parsed, err := mail.ParseAddress(from); err == nil {
		from = parsed.Address
	}
	if strings.TrimSpace(from) == "" {
		return nil, &ValidationError{Field: "from"}
	}

	msg := &models.Message{
		ThreadID:    strings.TrimSpace(envelope.GetHeader("X-Thread-Id")),
		Subject:     envelope.GetHeader("Subject"),
		From:        from,
		To:          headerAddresses(envelope, "To"),
		CC:          headerAddresses(envelope, "Cc"),
		Body:        strings.TrimRight(envelope.Text, "\r\n"),
		Priority:    models.PriorityFromXPriority(envelope.GetHeader("X-Priority")),
		Attachments: make([]models.Attachment, 0, len(envelope.Attachments)),
	}
	if date, err := mail.ParseDate(envelope.GetHeader("Date")); err == nil {
		msg.CreatedAt = date
	}

	for _, part := range envelope.Attachments {
		msg.Attachments = append(msg.Attachments, models.Attachment{
			Name: part.FileName,
			Size: int64(len(part.Content)),
			Type: part.ContentType,
		})
	}

	return msg, nil
}

func headerAddresses(envelope *enmime.Envelope, header string) []string {
	list, err := envelope.AddressList(header)
	if err != nil {
		return []string{}
	}
	result := make([]string, 0, len(list))
	for _, address := range list {
		result = append(result, address.Address)
	}
	return result
}
