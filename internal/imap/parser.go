package imap

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"
	"github.com/vdavid/flowcrm/backend/internal/models"
)

// ParseMessage converts a fetched IMAP message into a Message without a
// thread. Seen and Flagged map to the read and star flags.
func ParseMessage(imapMsg *imap.Message) (*models.Message, error) {
	if imapMsg == nil {
		return nil, fmt.Errorf("imap message is nil")
	}
	if imapMsg.Envelope == nil {
		return nil, fmt.Errorf("message %d has no envelope", imapMsg.Uid)
	}

	msg := &models.Message{
		Priority:    models.PriorityNormal,
		Attachments: []models.Attachment{},
	}
	for _, flag := range imapMsg.Flags {
		switch flag {
		case imap.SeenFlag:
			msg.IsRead = true
		case imap.FlaggedFlag:
			msg.IsStarred = true
		}
	}

	envelope := imapMsg.Envelope
	if len(envelope.From) > 0 {
		msg.From = formatAddress(envelope.From[0])
	}
	if msg.From == "" {
		return nil, fmt.Errorf("message %d has no sender", imapMsg.Uid)
	}
	msg.To = formatAddressList(envelope.To)
	msg.CC = formatAddressList(envelope.Cc)
	msg.Subject = envelope.Subject

	msg.CreatedAt = envelope.Date
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = imapMsg.InternalDate
	}

	for _, body := range imapMsg.Body {
		if body == nil {
			continue
		}
		if err := parseBody(body, msg); err != nil {
			// Headers are enough to list the message.
			log.Printf("IMAP: failed to parse body of message %d: %v", imapMsg.Uid, err)
		}
		break
	}

	return msg, nil
}

// parseBody fills the text body, priority and attachment metadata.
func parseBody(bodyReader io.Reader, msg *models.Message) error {
	envelope, err := enmime.ReadEnvelope(bodyReader)
	if err != nil {
		return fmt.Errorf("failed to parse email body: %w", err)
	}

	msg.Body = strings.TrimRight(envelope.Text, "\r\n")
	msg.Priority = models.PriorityFromXPriority(envelope.GetHeader("X-Priority"))

	for _, part := range envelope.Attachments {
		msg.Attachments = append(msg.Attachments, models.Attachment{
			Name: part.FileName,
			Size: int64(len(part.Content)),
			Type: part.ContentType,
		})
	}

	return nil
}

// formatAddress returns the bare mailbox@host form used throughout the store.
func formatAddress(address *imap.Address) string {
	if address == nil {
		return ""
	}

	if address.MailboxName == "" || address.HostName == "" {
		return ""
	}

	return strings.ToLower(address.MailboxName + "@" + address.HostName)
}

// formatAddressList formats a list of IMAP addresses, skipping group markers.
func formatAddressList(addresses []*imap.Address) []string {
	result := make([]string, 0, len(addresses))
	for _, address := range addresses {
		if formatted := formatAddress(address); formatted != "" {
			result = append(result, formatted)
		}
	}
	return result
}

// stableMessageID strips the angle brackets of a Message-ID header.
func stableMessageID(envelope *imap.Envelope) string {
	if envelope == nil {
		return ""
	}
	return strings.Trim(strings.TrimSpace(envelope.MessageId), "<>")
}
