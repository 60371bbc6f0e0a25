package store

import (
	"context"
	"sync"

	"github.com/vdavid/flowcrm/backend/internal/models"
)

// Memory is an in-memory MessageStore. Data lives for the lifetime of the
// instance only.
type Memory struct {
	mu       sync.RWMutex
	messages []*models.Message
	index    map[int64]int // ID -> position in messages
	lastID   int64
}

// NewMemory creates a store holding copies of the given seed messages.
// Seed messages keep their IDs; new IDs continue after the largest one.
// Seeds without a usable ID (zero or duplicate) get the next free one.
func NewMemory(seed []*models.Message) *Memory {
	s := &Memory{
		messages: make([]*models.Message, 0, len(seed)),
		index:    make(map[int64]int, len(seed)),
	}
	for _, msg := range seed {
		if msg != nil && msg.ID > s.lastID {
			s.lastID = msg.ID
		}
	}
	for _, msg := range seed {
		if msg == nil {
			continue
		}
		c := msg.Clone()
		if _, dup := s.index[c.ID]; c.ID <= 0 || dup {
			s.lastID++
			c.ID = s.lastID
		}
		s.index[c.ID] = len(s.messages)
		s.messages = append(s.messages, c)
	}
	return s
}

// Create stores a copy of msg under the next ID.
func (s *Memory) Create(_ context.Context, msg *models.Message) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	stored := msg.Clone()
	stored.ID = s.lastID
	s.index[stored.ID] = len(s.messages)
	s.messages = append(s.messages, stored)

	return stored.Clone(), nil
}

// Get returns a copy of the message with the given ID.
func (s *Memory) Get(_ context.Context, id int64) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.index[id]
	if !ok {
		return nil, NotFound(id)
	}
	return s.messages[pos].Clone(), nil
}

// List returns copies of all messages in insertion order.
func (s *Memory) List(_ context.Context) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Message, 0, len(s.messages))
	for _, msg := range s.messages {
		result = append(result, msg.Clone())
	}
	return result, nil
}

// ListByThread returns copies of the messages sharing threadID.
func (s *Memory) ListByThread(_ context.Context, threadID string) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Message, 0)
	for _, msg := range s.messages {
		if msg.ThreadID == threadID {
			result = append(result, msg.Clone())
		}
	}
	return result, nil
}

// Update applies update to the stored message.
func (s *Memory) Update(_ context.Context, id int64, update models.MessageUpdate) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[id]
	if !ok {
		return nil, NotFound(id)
	}
	update.Apply(s.messages[pos])
	return s.messages[pos].Clone(), nil
}

// Delete removes the message and reindexes the ones after it.
func (s *Memory) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[id]
	if !ok {
		return NotFound(id)
	}
	s.messages = append(s.messages[:pos], s.messages[pos+1:]...)
	delete(s.index, id)
	for i := pos; i < len(s.messages); i++ {
		s.index[s.messages[i].ID] = i
	}
	return nil
}

var _ MessageStore = (*Memory)(nil)
