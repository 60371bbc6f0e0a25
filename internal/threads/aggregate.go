// Package threads groups flat message collections into conversation summaries.
package threads

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/vdavid/flowcrm/backend/internal/models"
)

// ErrMalformedMessage is returned when a message lacks a field the
// aggregation depends on.
var ErrMalformedMessage = errors.New("malformed message")

var replyPrefix = regexp.MustCompile(`(?i)^(RE|FW):\s*`)

// NormalizeSubject strips a single leading "RE:" or "FW:" prefix.
func NormalizeSubject(subject string) string {
	return replyPrefix.ReplaceAllString(subject, "")
}

type accumulator struct {
	thread       models.Thread
	participants map[string]struct{}
}

// Aggregate builds one summary per distinct ThreadID, ordered by the
// creation time of each thread's latest message, newest first. Threads whose
// latest messages share a timestamp keep the order in which they were first
// seen, so the same input always yields the same output.
func Aggregate(messages []*models.Message) ([]models.Thread, error) {
	byID := make(map[string]*accumulator)
	order := make([]*accumulator, 0)

	for i, msg := range messages {
		if err := validate(i, msg); err != nil {
			return nil, err
		}

		acc, exists := byID[msg.ThreadID]
		if !exists {
			acc = &accumulator{
				thread: models.Thread{
					ThreadID:    msg.ThreadID,
					Subject:     NormalizeSubject(msg.Subject),
					LastMessage: *msg.Clone(),
					IsRead:      true,
					Priority:    models.PriorityNormal,
				},
				participants: make(map[string]struct{}),
			}
			byID[msg.ThreadID] = acc
			order = append(order, acc)
		}

		acc.thread.MessageCount++
		acc.participants[msg.From] = struct{}{}
		for _, recipient := range msg.To {
			acc.participants[recipient] = struct{}{}
		}

		if msg.CreatedAt.After(acc.thread.LastMessage.CreatedAt) {
			acc.thread.LastMessage = *msg.Clone()
		}
		if !msg.IsRead {
			acc.thread.IsRead = false
		}
		if msg.IsStarred {
			acc.thread.IsStarred = true
		}
		// Only high is ever surfaced; a thread of low messages reports normal.
		if msg.Priority == models.PriorityHigh {
			acc.thread.Priority = models.PriorityHigh
		}
	}

	result := make([]models.Thread, 0, len(order))
	for _, acc := range order {
		participants := make([]string, 0, len(acc.participants))
		for p := range acc.participants {
			participants = append(participants, p)
		}
		sort.Strings(participants)
		acc.thread.Participants = participants
		result = append(result, acc.thread)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].LastMessage.CreatedAt.After(result[j].LastMessage.CreatedAt)
	})

	return result, nil
}

func validate(index int, msg *models.Message) error {
	if msg == nil {
		return fmt.Errorf("%w: entry %d is nil", ErrMalformedMessage, index)
	}
	switch {
	case msg.ThreadID == "":
		return fmt.Errorf("%w: message %d has no threadId", ErrMalformedMessage, msg.ID)
	case msg.CreatedAt.IsZero():
		return fmt.Errorf("%w: message %d has no createdAt", ErrMalformedMessage, msg.ID)
	case msg.From == "":
		return fmt.Errorf("%w: message %d has no from address", ErrMalformedMessage, msg.ID)
	}
	return nil
}

// SortOldestFirst orders messages by creation time, oldest first, using the
// id to break ties.
func SortOldestFirst(messages []*models.Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		a, b := messages[i], messages[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// SortNewestFirst orders messages by creation time, newest first.
func SortNewestFirst(messages []*models.Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.After(messages[j].CreatedAt)
	})
}
