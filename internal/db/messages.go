package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/flowcrm/backend/internal/models"
	"github.com/vdavid/flowcrm/backend/internal/store"
)

const messageColumns = `
	id,
	thread_id,
	subject,
	from_address,
	to_addresses,
	cc_addresses,
	bcc_addresses,
	body,
	is_read,
	is_starred,
	priority,
	contact_id,
	created_at,
	attachments`

// MessageStore keeps messages in PostgreSQL. IDs come from a BIGSERIAL
// sequence, so a deleted message's ID is never reused.
type MessageStore struct {
	pool *pgxpool.Pool
}

// NewMessageStore creates a store backed by the given pool.
func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

// Create inserts the message and returns the stored row.
func (s *MessageStore) Create(ctx context.Context, msg *models.Message) (*models.Message, error) {
	attachments := msg.Attachments
	if attachments == nil {
		attachments = []models.Attachment{}
	}
	to := msg.To
	if to == nil {
		to = []string{}
	}
	priority := msg.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO messages (
			thread_id,
			subject,
			from_address,
			to_addresses,
			cc_addresses,
			bcc_addresses,
			body,
			is_read,
			is_starred,
			priority,
			contact_id,
			created_at,
			attachments
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+messageColumns,
		msg.ThreadID,
		msg.Subject,
		msg.From,
		to,
		msg.CC,
		msg.BCC,
		msg.Body,
		msg.IsRead,
		msg.IsStarred,
		string(priority),
		msg.ContactID,
		msg.CreatedAt,
		attachments,
	)

	created, err := scanMessage(row)
	if err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	return created, nil
}

// Get returns the message with the given ID.
func (s *MessageStore) Get(ctx context.Context, id int64) (*models.Message, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id)

	msg, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.NotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

// List returns every message in insertion order.
func (s *MessageStore) List(ctx context.Context) ([]*models.Message, error) {
	return s.query(ctx, `SELECT `+messageColumns+` FROM messages ORDER BY id`)
}

// ListByThread returns the messages of one thread in insertion order.
func (s *MessageStore) ListByThread(ctx context.Context, threadID string) ([]*models.Message, error) {
	return s.query(ctx, `SELECT `+messageColumns+` FROM messages WHERE thread_id = $1 ORDER BY id`, threadID)
}

// Update writes the non-nil fields of update in a single statement.
func (s *MessageStore) Update(ctx context.Context, id int64, update models.MessageUpdate) (*models.Message, error) {
	var priority *string
	if update.Priority != nil {
		p := string(*update.Priority)
		priority = &p
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE messages SET
			subject = COALESCE($2, subject),
			body = COALESCE($3, body),
			is_read = COALESCE($4, is_read),
			is_starred = COALESCE($5, is_starred),
			priority = COALESCE($6, priority),
			contact_id = COALESCE($7, contact_id)
		WHERE id = $1
		RETURNING `+messageColumns,
		id,
		update.Subject,
		update.Body,
		update.IsRead,
		update.IsStarred,
		priority,
		update.ContactID,
	)

	msg, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.NotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}
	return msg, nil
}

// Delete removes the message with the given ID.
func (s *MessageStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.NotFound(id)
	}
	return nil
}

func (s *MessageStore) query(ctx context.Context, sql string, args ...any) ([]*models.Message, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var msg models.Message
	var priority string
	if err := row.Scan(
		&msg.ID,
		&msg.ThreadID,
		&msg.Subject,
		&msg.From,
		&msg.To,
		&msg.CC,
		&msg.BCC,
		&msg.Body,
		&msg.IsRead,
		&msg.IsStarred,
		&priority,
		&msg.ContactID,
		&msg.CreatedAt,
		&msg.Attachments,
	); err != nil {
		return nil, err
	}
	msg.Priority = models.Priority(priority)
	return &msg, nil
}

var _ store.MessageStore = (*MessageStore)(nil)
