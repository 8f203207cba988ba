// Package session provides the in-memory conversation session store.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/satlabs/voice-tutor/internal/domain"
)

// ErrNotFound is returned when an operation names a session id that does not
// exist. Appending to an absent session indicates a caller-side ordering bug
// rather than a recoverable race, so it is the only hard-failing operation.
var ErrNotFound = errors.New("session not found")

// DefaultSubject is used when a session is started without a subject.
const DefaultSubject = "general"

// Store is the single source of truth for active conversations. One mutex
// serializes every per-session operation, including the expiry sweep, so an
// append can never be lost to a concurrent sweep and append-and-cap stays
// atomic. No store operation blocks on I/O, so the lock is never held across
// a remote call.
type Store struct {
	timeout time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*domain.Session
}

// NewStore creates a session store with the given inactivity timeout.
func NewStore(timeout time.Duration) *Store {
	return &Store{
		timeout:  timeout,
		now:      time.Now,
		sessions: make(map[string]*domain.Session),
	}
}

// Create allocates a fresh session for the user and returns its id. Subject
// defaults to DefaultSubject when empty. Create never fails.
func (s *Store) Create(userID, subject string) string {
	if subject == "" {
		subject = DefaultSubject
	}

	id := uuid.NewString()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[id] = &domain.Session{
		ID:           id,
		UserID:       userID,
		Subject:      subject,
		History:      nil,
		CreatedAt:    now,
		LastActivity: now,
	}

	slog.Info("session created", "session_id", id, "user_id", userID, "subject", subject)
	return id
}

// Get returns a snapshot of the session and refreshes its last-activity
// timestamp. The snapshot owns a copied history slice; mutating it has no
// effect on the store. The second result is false when the id is unknown.
func (s *Store) Get(sessionID string) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return domain.Session{}, false
	}

	sess.LastActivity = s.now()

	snapshot := *sess
	snapshot.History = append([]domain.Turn(nil), sess.History...)
	return snapshot, true
}

// UserID reports the owner of a session without refreshing its activity.
func (s *Store) UserID(sessionID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return "", false
	}
	return sess.UserID, true
}

// Append adds a turn to the session's history, refreshes last-activity and
// enforces the retention cap. Returns ErrNotFound for unknown ids.
func (s *Store) Append(sessionID string, role domain.Role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}

	now := s.now()
	sess.History = append(sess.History, domain.Turn{
		Role:      role,
		Content:   content,
		Timestamp: now,
	})
	sess.LastActivity = now

	if n := len(sess.History); n > domain.MaxHistory {
		sess.History = append([]domain.Turn(nil), sess.History[n-domain.MaxHistory:]...)
	}
	return nil
}

// End removes the session if present and reports whether removal occurred.
func (s *Store) End(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return false
	}
	delete(s.sessions, sessionID)
	slog.Info("session ended", "session_id", sessionID)
	return true
}

// Len returns the number of active sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// CleanupExpired removes every session whose inactivity exceeds the
// configured timeout and returns how many were removed.
func (s *Store) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cleaned := 0
	for id, sess := range s.sessions {
		if sess.Expired(now, s.timeout) {
			delete(s.sessions, id)
			cleaned++
		}
	}

	if cleaned > 0 {
		slog.Info("cleaned up expired sessions", "count", cleaned)
	}
	return cleaned
}

// StartReaper runs a background goroutine that sweeps expired sessions on the
// given interval until ctx is cancelled.
func (s *Store) StartReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("session reaper started", "interval", interval, "timeout", s.timeout)

		for {
			select {
			case <-ticker.C:
				s.CleanupExpired()
			case <-ctx.Done():
				slog.Info("session reaper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
