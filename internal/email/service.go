// Package email implements the mailbox operations behind the CRM's email views:
// thread listing, reading, starring, sending and search.
package email

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/vdavid/flowcrm/backend/internal/contacts"
	"github.com/vdavid/flowcrm/backend/internal/models"
	"github.com/vdavid/flowcrm/backend/internal/store"
	"github.com/vdavid/flowcrm/backend/internal/threads"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ErrThreadNotFound is returned when no message carries the requested thread ID.
var ErrThreadNotFound = errors.New("thread not found")

// maxSweepWorkers bounds the concurrent updates of one mark-read sweep.
const maxSweepWorkers = 8

// Mailer delivers an outgoing message to its recipients.
type Mailer interface {
	Send(ctx context.Context, from string, msg *models.Message) error
}

// Notifier is told about threads whose messages changed.
type Notifier interface {
	ThreadUpdated(threadID string)
	ThreadDeleted(threadID string)
}

// Options holds the optional collaborators of a Service.
type Options struct {
	// Mailer relays sent messages. Nil keeps sends local.
	Mailer Mailer
	// Notifier receives change events. Nil disables them.
	Notifier Notifier
	// Now defaults to time.Now.
	Now func() time.Time
	// MaxConcurrentSends limits parallel relays. Defaults to 4.
	MaxConcurrentSends int
}

// Service is the mailbox of one CRM user. The store is the only place
// messages live; threads are recomputed from it on every call.
type Service struct {
	messages  store.MessageStore
	directory contacts.Directory
	mailbox   string
	mailer    Mailer
	notifier  Notifier
	now       func() time.Time
	sendSem   *semaphore.Weighted

	threadMu       sync.Mutex
	lastThreadTick int64
}

// NewService creates a Service sending as mailbox.
func NewService(messages store.MessageStore, directory contacts.Directory, mailbox string, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxConcurrentSends <= 0 {
		opts.MaxConcurrentSends = 4
	}
	return &Service{
		messages:  messages,
		directory: directory,
		mailbox:   mailbox,
		mailer:    opts.Mailer,
		notifier:  opts.Notifier,
		now:       opts.Now,
		sendSem:   semaphore.NewWeighted(int64(opts.MaxConcurrentSends)),
	}
}

// ListThreads aggregates the current messages into thread summaries, most
// recently active first.
func (s *Service) ListThreads(ctx context.Context) ([]models.Thread, error) {
	messages, err := s.messages.List(ctx)
	if err != nil {
		return nil, err
	}
	return threads.Aggregate(messages)
}

// ThreadMessages returns the messages of a thread, oldest first.
func (s *Service) ThreadMessages(ctx context.Context, threadID string) ([]*models.Message, error) {
	messages, err := s.messages.ListByThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrThreadNotFound, threadID)
	}
	threads.SortOldestFirst(messages)
	return messages, nil
}

// MarkThreadRead marks every unread message of the thread as read and returns
// how many changed. The updates run concurrently and all of them finish before
// it returns, so a following ListThreads sees the whole sweep. Calling it again
// is harmless.
func (s *Service) MarkThreadRead(ctx context.Context, threadID string) (int, error) {
	messages, err := s.messages.ListByThread(ctx, threadID)
	if err != nil {
		return 0, err
	}
	if len(messages) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrThreadNotFound, threadID)
	}

	read := true
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxSweepWorkers)
	marked := 0
	for _, msg := range messages {
		if msg.IsRead {
			continue
		}
		marked++
		id := msg.ID
		g.Go(func() error {
			_, err := s.messages.Update(gctx, id, models.MessageUpdate{IsRead: &read})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("failed to mark thread %s as read: %w", threadID, err)
	}

	if marked > 0 {
		s.notifyUpdated(threadID)
	}
	return marked, nil
}

// OpenThread returns a thread's messages for display after marking them read.
func (s *Service) OpenThread(ctx context.Context, threadID string) ([]*models.Message, error) {
	if _, err := s.MarkThreadRead(ctx, threadID); err != nil {
		return nil, err
	}
	return s.ThreadMessages(ctx, threadID)
}

// ListMessages returns every message, newest first.
func (s *Service) ListMessages(ctx context.Context) ([]*models.Message, error) {
	messages, err := s.messages.List(ctx)
	if err != nil {
		return nil, err
	}
	threads.SortNewestFirst(messages)
	return messages, nil
}

// Get returns a single message.
func (s *Service) Get(ctx context.Context, id int64) (*models.Message, error) {
	return s.messages.Get(ctx, id)
}

// MarkRead sets the read flag of one message.
func (s *Service) MarkRead(ctx context.Context, id int64) (*models.Message, error) {
	read := true
	return s.Update(ctx, id, models.MessageUpdate{IsRead: &read})
}

// MarkUnread clears the read flag of one message.
func (s *Service) MarkUnread(ctx context.Context, id int64) (*models.Message, error) {
	read := false
	return s.Update(ctx, id, models.MessageUpdate{IsRead: &read})
}

// ToggleStar flips the star of one message. Sibling messages are untouched.
func (s *Service) ToggleStar(ctx context.Context, id int64) (*models.Message, error) {
	msg, err := s.messages.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	starred := !msg.IsStarred
	return s.Update(ctx, id, models.MessageUpdate{IsStarred: &starred})
}

// Update applies a direct field update to one message.
func (s *Service) Update(ctx context.Context, id int64, update models.MessageUpdate) (*models.Message, error) {
	if update.Subject != nil && strings.TrimSpace(*update.Subject) == "" {
		return nil, &ValidationError{Field: "subject"}
	}
	if update.Priority != nil {
		p, err := models.ParsePriority(string(*update.Priority))
		if err != nil {
			return nil, &ValidationError{Field: "priority", Reason: err.Error()}
		}
		update.Priority = &p
	}

	msg, err := s.messages.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}
	s.notifyUpdated(msg.ThreadID)
	return msg, nil
}

// Delete removes one message. A thread disappears with its last message.
func (s *Service) Delete(ctx context.Context, id int64) error {
	msg, err := s.messages.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.messages.Delete(ctx, id); err != nil {
		return err
	}

	remaining, err := s.messages.ListByThread(ctx, msg.ThreadID)
	if err != nil {
		log.Printf("EmailService: failed to check thread %s after delete: %v", msg.ThreadID, err)
		s.notifyUpdated(msg.ThreadID)
		return nil
	}
	if len(remaining) == 0 {
		if s.notifier != nil {
			s.notifier.ThreadDeleted(msg.ThreadID)
		}
	} else {
		s.notifyUpdated(msg.ThreadID)
	}
	return nil
}

// newThreadID mints a thread ID from the clock in milliseconds. IDs handed
// out by one Service strictly increase, so two composes in the same
// millisecond still start separate threads.
func (s *Service) newThreadID() string {
	s.threadMu.Lock()
	defer s.threadMu.Unlock()

	tick := s.now().UnixMilli()
	if tick <= s.lastThreadTick {
		tick = s.lastThreadTick + 1
	}
	s.lastThreadTick = tick
	return fmt.Sprintf("thread_%d", tick)
}

// Search returns messages whose subject, body, sender or any recipient
// contains query, ignoring case, newest first. The query is matched as
// given, surrounding whitespace included. An empty query matches all.
func (s *Service) Search(ctx context.Context, query string) ([]*models.Message, error) {
	messages, err := s.ListMessages(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	if q == "" {
		return messages, nil
	}

	result := make([]*models.Message, 0)
	for _, msg := range messages {
		if matches(msg, q) {
			result = append(result, msg)
		}
	}
	return result, nil
}

func matches(msg *models.Message, q string) bool {
	if strings.Contains(strings.ToLower(msg.Subject), q) ||
		strings.Contains(strings.ToLower(msg.Body), q) ||
		strings.Contains(strings.ToLower(msg.From), q) {
		return true
	}
	for _, to := range msg.To {
		if strings.Contains(strings.ToLower(to), q) {
			return true
		}
	}
	return false
}

func (s *Service) notifyUpdated(threadID string) {
	if s.notifier != nil {
		s.notifier.ThreadUpdated(threadID)
	}
}
