package email

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/vdavid/flowcrm/backend/internal/models"
)

// Send validates and stores an outgoing message, relaying it first when a
// Mailer is configured. Nothing is stored if validation or the relay fails.
func (s *Service) Send(ctx context.Context, req models.SendRequest) (*models.Message, error) {
	msg, err := s.buildOutgoing(req)
	if err != nil {
		return nil, err
	}

	msg.ContactID = s.resolveContact(ctx, msg.To[0])

	if s.mailer != nil {
		if err := s.relay(ctx, msg); err != nil {
			return nil, err
		}
	}

	created, err := s.messages.Create(ctx, msg)
	if err != nil {
		return nil, err
	}
	s.notifyUpdated(created.ThreadID)
	return created, nil
}

func (s *Service) buildOutgoing(req models.SendRequest) (*models.Message, error) {
	to := cleanAddresses(req.To)
	if len(to) == 0 {
		return nil, &ValidationError{Field: "to"}
	}
	if strings.TrimSpace(req.Subject) == "" {
		return nil, &ValidationError{Field: "subject"}
	}
	if strings.TrimSpace(req.Body) == "" {
		return nil, &ValidationError{Field: "body"}
	}
	priority, err := models.ParsePriority(req.Priority)
	if err != nil {
		return nil, &ValidationError{Field: "priority", Reason: err.Error()}
	}

	now := s.now()
	threadID := strings.TrimSpace(req.ThreadID)
	if threadID == "" {
		threadID = s.newThreadID()
	}

	attachments := make([]models.Attachment, len(req.Attachments))
	copy(attachments, req.Attachments)

	return &models.Message{
		ThreadID:    threadID,
		Subject:     req.Subject,
		From:        s.mailbox,
		To:          to,
		CC:          cleanAddresses(req.CC),
		BCC:         cleanAddresses(req.BCC),
		Body:        req.Body,
		IsRead:      true,
		IsStarred:   false,
		Priority:    priority,
		CreatedAt:   now,
		Attachments: attachments,
	}, nil
}

// resolveContact links the message to the primary recipient's contact. Any
// lookup failure leaves the message unlinked.
func (s *Service) resolveContact(ctx context.Context, address string) *int64 {
	if s.directory == nil {
		return nil
	}
	contact, err := s.directory.ResolveAddress(ctx, address)
	if err != nil {
		log.Printf("EmailService: no contact for %s: %v", address, err)
		return nil
	}
	if contact == nil {
		return nil
	}
	id := contact.ID
	return &id
}

func (s *Service) relay(ctx context.Context, msg *models.Message) error {
	if err := s.sendSem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("failed to acquire send slot: %w", err)
	}
	defer s.sendSem.Release(1)

	if err := s.mailer.Send(ctx, s.mailbox, msg); err != nil {
		log.Printf("EmailService: failed to relay message to %v: %v", msg.To, err)
		return fmt.Errorf("failed to relay message: %w", err)
	}
	return nil
}

// cleanAddresses trims each address and drops the blank ones.
func cleanAddresses(addresses []string) []string {
	result := make([]string, 0, len(addresses))
	for _, address := range addresses {
		if trimmed := strings.TrimSpace(address); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
