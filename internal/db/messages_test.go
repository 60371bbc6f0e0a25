package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/flowcrm/backend/internal/db"
	"github.com/vdavid/flowcrm/backend/internal/models"
	"github.com/vdavid/flowcrm/backend/internal/store"
	"github.com/vdavid/flowcrm/backend/internal/testutil"
)

func newMessage(threadID, subject string, createdAt time.Time) *models.Message {
	contactID := int64(3)
	return &models.Message{
		ThreadID:  threadID,
		Subject:   subject,
		From:      "john.doe@flowcrm.com",
		To:        []string{"client@example.com"},
		CC:        []string{"cc@example.com"},
		Body:      "Hello there",
		IsRead:    true,
		Priority:  models.PriorityHigh,
		ContactID: &contactID,
		CreatedAt: createdAt,
		Attachments: []models.Attachment{
			{Name: "quote.pdf", Size: 1024, Type: "application/pdf"},
		},
	}
}

func TestMessageStore(t *testing.T) {
	pool := testutil.NewTestDB(t)
	s := db.NewMessageStore(pool)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	first, err := s.Create(ctx, newMessage("thread_a", "Quote", base))
	require.NoError(t, err)

	t.Run("create round trips every field", func(t *testing.T) {
		got, err := s.Get(ctx, first.ID)
		require.NoError(t, err)

		assert.Equal(t, "thread_a", got.ThreadID)
		assert.Equal(t, []string{"client@example.com"}, got.To)
		assert.Equal(t, []string{"cc@example.com"}, got.CC)
		assert.Nil(t, got.BCC)
		assert.Equal(t, models.PriorityHigh, got.Priority)
		require.NotNil(t, got.ContactID)
		assert.Equal(t, int64(3), *got.ContactID)
		assert.True(t, base.Equal(got.CreatedAt))
		assert.Equal(t, []models.Attachment{{Name: "quote.pdf", Size: 1024, Type: "application/pdf"}}, got.Attachments)
	})

	t.Run("ids increase and are never reused", func(t *testing.T) {
		second, err := s.Create(ctx, newMessage("thread_b", "Other", base.Add(time.Minute)))
		require.NoError(t, err)
		assert.Greater(t, second.ID, first.ID)

		require.NoError(t, s.Delete(ctx, second.ID))
		third, err := s.Create(ctx, newMessage("thread_b", "Other", base.Add(2*time.Minute)))
		require.NoError(t, err)
		assert.Greater(t, third.ID, second.ID)
	})

	t.Run("lists in insertion order", func(t *testing.T) {
		_, err := s.Create(ctx, newMessage("thread_a", "RE: Quote", base.Add(time.Hour)))
		require.NoError(t, err)

		thread, err := s.ListByThread(ctx, "thread_a")
		require.NoError(t, err)
		require.Len(t, thread, 2)
		assert.Equal(t, first.ID, thread[0].ID)

		all, err := s.List(ctx)
		require.NoError(t, err)
		for i := 1; i < len(all); i++ {
			assert.Less(t, all[i-1].ID, all[i].ID)
		}
	})

	t.Run("partial update leaves other fields", func(t *testing.T) {
		unread := false
		low := models.PriorityLow
		updated, err := s.Update(ctx, first.ID, models.MessageUpdate{IsRead: &unread, Priority: &low})
		require.NoError(t, err)

		assert.False(t, updated.IsRead)
		assert.Equal(t, models.PriorityLow, updated.Priority)
		assert.Equal(t, "Quote", updated.Subject)
		assert.False(t, updated.IsStarred)
	})

	t.Run("missing ids report not found", func(t *testing.T) {
		_, err := s.Get(ctx, 999999)
		assert.ErrorIs(t, err, store.ErrMessageNotFound)

		_, err = s.Update(ctx, 999999, models.MessageUpdate{})
		assert.ErrorIs(t, err, store.ErrMessageNotFound)

		assert.ErrorIs(t, s.Delete(ctx, 999999), store.ErrMessageNotFound)
	})

	t.Run("unknown thread lists empty", func(t *testing.T) {
		got, err := s.ListByThread(ctx, "nope")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
