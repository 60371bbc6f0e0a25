package store

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"

	"github.com/vdavid/flowcrm/backend/internal/models"
)

//go:embed fixtures/emails.json
var defaultFixture []byte

// LoadFixture decodes a JSON array of messages. Missing priorities default to
// normal and missing slices to empty ones.
func LoadFixture(r io.Reader) ([]*models.Message, error) {
	var messages []*models.Message
	if err := json.NewDecoder(r).Decode(&messages); err != nil {
		return nil, fmt.Errorf("failed to decode fixture: %w", err)
	}

	for _, msg := range messages {
		if msg == nil {
			continue
		}
		if msg.Priority == "" {
			msg.Priority = models.PriorityNormal
		}
		if msg.To == nil {
			msg.To = []string{}
		}
		if msg.Attachments == nil {
			msg.Attachments = []models.Attachment{}
		}
	}

	return messages, nil
}

// DefaultFixture returns the messages bundled with the binary.
func DefaultFixture() ([]*models.Message, error) {
	return LoadFixture(bytes.NewReader(defaultFixture))
}
