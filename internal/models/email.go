package models

import (
	"fmt"
	"strings"
	"time"
)

// Priority is the sender-assigned importance of a message.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// ParsePriority accepts low, normal and high case-insensitively.
// An empty value means normal.
func ParsePriority(value string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return PriorityNormal, nil
	case string(PriorityLow):
		return PriorityLow, nil
	case string(PriorityNormal):
		return PriorityNormal, nil
	case string(PriorityHigh):
		return PriorityHigh, nil
	default:
		return "", fmt.Errorf("unknown priority %q", value)
	}
}

type Attachment struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// Message is a single sent or received email. Only the flags and the
// content fields exposed through MessageUpdate change after creation.
type Message struct {
	ID          int64        `json:"id"`
	ThreadID    string       `json:"threadId"`
	Subject     string       `json:"subject"`
	From        string       `json:"from"`
	To          []string     `json:"to"`
	CC          []string     `json:"cc"`
	BCC         []string     `json:"bcc"`
	Body        string       `json:"body"`
	IsRead      bool         `json:"isRead"`
	IsStarred   bool         `json:"isStarred"`
	Priority    Priority     `json:"priority"`
	ContactID   *int64       `json:"contactId"`
	CreatedAt   time.Time    `json:"createdAt"`
	Attachments []Attachment `json:"attachments"`
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	c.To = cloneStrings(m.To)
	c.CC = cloneStrings(m.CC)
	c.BCC = cloneStrings(m.BCC)
	if m.Attachments != nil {
		c.Attachments = make([]Attachment, len(m.Attachments))
		copy(c.Attachments, m.Attachments)
	}
	if m.ContactID != nil {
		id := *m.ContactID
		c.ContactID = &id
	}
	return &c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// Thread is a conversation summary derived from the messages sharing a ThreadID.
// It is recomputed on every listing and never stored.
type Thread struct {
	ThreadID     string   `json:"threadId"`
	Subject      string   `json:"subject"`
	LastMessage  Message  `json:"lastMessage"`
	MessageCount int      `json:"messageCount"`
	Participants []string `json:"participants"`
	IsRead       bool     `json:"isRead"`
	IsStarred    bool     `json:"isStarred"`
	Priority     Priority `json:"priority"`
}

// SendRequest is the payload of a compose or reply. ThreadID is empty for a
// fresh compose.
type SendRequest struct {
	To          []string     `json:"to"`
	CC          []string     `json:"cc"`
	BCC         []string     `json:"bcc"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Priority    string       `json:"priority"`
	ThreadID    string       `json:"threadId"`
	Attachments []Attachment `json:"attachments"`
}

// MessageUpdate holds a partial update. Nil fields are left untouched.
type MessageUpdate struct {
	Subject   *string   `json:"subject,omitempty"`
	Body      *string   `json:"body,omitempty"`
	IsRead    *bool     `json:"isRead,omitempty"`
	IsStarred *bool     `json:"isStarred,omitempty"`
	Priority  *Priority `json:"priority,omitempty"`
	ContactID *int64    `json:"contactId,omitempty"`
}

// Apply writes the non-nil fields of u onto m.
func (u MessageUpdate) Apply(m *Message) {
	if u.Subject != nil {
		m.Subject = *u.Subject
	}
	if u.Body != nil {
		m.Body = *u.Body
	}
	if u.IsRead != nil {
		m.IsRead = *u.IsRead
	}
	if u.IsStarred != nil {
		m.IsStarred = *u.IsStarred
	}
	if u.Priority != nil {
		m.Priority = *u.Priority
	}
	if u.ContactID != nil {
		id := *u.ContactID
		m.ContactID = &id
	}
}

type PaginationInfo struct {
	TotalCount int `json:"total_count"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
}

type ThreadsResponse struct {
	Threads    []Thread       `json:"threads"`
	Pagination PaginationInfo `json:"pagination"`
}

// XPriority returns the X-Priority header value for p, or "" for normal.
func (p Priority) XPriority() string {
	switch p {
	case PriorityHigh:
		return "1 (Highest)"
	case PriorityLow:
		return "5 (Lowest)"
	default:
		return ""
	}
}

// PriorityFromXPriority maps an X-Priority header to a Priority. Values 1 and
// 2 are high, 4 and 5 are low and anything else is normal.
func PriorityFromXPriority(header string) Priority {
	header = strings.TrimSpace(header)
	if header == "" {
		return PriorityNormal
	}
	switch header[0] {
	case '1', '2':
		return PriorityHigh
	case '4', '5':
		return PriorityLow
	default:
		return PriorityNormal
	}
}
