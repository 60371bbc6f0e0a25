// Package store defines the message store abstraction and its in-memory
// implementation.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/vdavid/flowcrm/backend/internal/models"
)

// ErrMessageNotFound is returned when a requested message cannot be found.
var ErrMessageNotFound = errors.New("message not found")

// NotFound wraps ErrMessageNotFound with the identifier that was requested.
func NotFound(id int64) error {
	return fmt.Errorf("message %d: %w", id, ErrMessageNotFound)
}

// MessageStore is the sole owner of message records. Every message it returns
// is a copy; mutating one never changes the stored record.
type MessageStore interface {
	// Create stores msg and returns the stored copy with its assigned ID.
	Create(ctx context.Context, msg *models.Message) (*models.Message, error)

	// Get returns the message with the given ID.
	Get(ctx context.Context, id int64) (*models.Message, error)

	// List returns a snapshot of every message in insertion order.
	List(ctx context.Context) ([]*models.Message, error)

	// ListByThread returns the messages of one thread in insertion order.
	ListByThread(ctx context.Context, threadID string) ([]*models.Message, error)

	// Update applies a partial update and returns the updated message.
	Update(ctx context.Context, id int64, update models.MessageUpdate) (*models.Message, error)

	// Delete removes a message. Its ID is never handed out again.
	Delete(ctx context.Context, id int64) error
}
