package store

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/vdavid/flowcrm/backend/internal/models"
)

// latencyStore delays every call by a random duration in [min, max] to mimic
// a remote backend during UI development.
type latencyStore struct {
	next     MessageStore
	min, max time.Duration
}

// WithLatency wraps next so that each call waits before running. A zero max
// returns next unchanged.
func WithLatency(next MessageStore, minDelay, maxDelay time.Duration) MessageStore {
	if maxDelay <= 0 {
		return next
	}
	if minDelay < 0 || minDelay > maxDelay {
		minDelay = maxDelay
	}
	return &latencyStore{next: next, min: minDelay, max: maxDelay}
}

func (s *latencyStore) wait(ctx context.Context) error {
	d := s.min
	if spread := s.max - s.min; spread > 0 {
		d += time.Duration(rand.Int64N(int64(spread) + 1))
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *latencyStore) Create(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.next.Create(ctx, msg)
}

func (s *latencyStore) Get(ctx context.Context, id int64) (*models.Message, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.next.Get(ctx, id)
}

func (s *latencyStore) List(ctx context.Context) ([]*models.Message, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.next.List(ctx)
}

func (s *latencyStore) ListByThread(ctx context.Context, threadID string) ([]*models.Message, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.next.ListByThread(ctx, threadID)
}

func (s *latencyStore) Update(ctx context.Context, id int64, update models.MessageUpdate) (*models.Message, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.next.Update(ctx, id, update)
}

func (s *latencyStore) Delete(ctx context.Context, id int64) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	return s.next.Delete(ctx, id)
}
