// Package domain contains core domain types for the voice tutor.
package domain

import (
	"time"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MaxHistory is the retention cap for a session's conversation history.
// Once exceeded, only the most recent MaxHistory turns are kept.
const MaxHistory = 20

// Turn is one role-tagged message in a session's history. Turns are
// immutable once appended; their order is replayed verbatim to the
// generation provider.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is one ongoing tutoring conversation. The session store owns the
// canonical instance; callers only ever receive snapshots.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Subject      string    `json:"subject"`
	History      []Turn    `json:"history"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// Expired reports whether the session has been inactive longer than timeout.
func (s *Session) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastActivity) > timeout
}
