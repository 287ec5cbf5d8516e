package memstore

import (
	"context"
	"sync"
	"time"
)

// Tokens implements storage.TokenDirectory.
type Tokens struct {
	mu     sync.Mutex
	tokens map[string]string
}

func NewTokens() *Tokens {
	return &Tokens{tokens: make(map[string]string)}
}

func (s *Tokens) SetToken(ctx context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[userID] = token
	return nil
}

func (s *Tokens) Tokens(ctx context.Context, userIDs []string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(userIDs))
	for _, id := range userIDs {
		if token, ok := s.tokens[id]; ok {
			out[id] = token
		}
	}
	return out, nil
}

// Reminders implements storage.ReminderLedger.
type Reminders struct {
	mu   sync.Mutex
	sent map[string]struct{}
}

func NewReminders() *Reminders {
	return &Reminders{sent: make(map[string]struct{})}
}

func (s *Reminders) MarkSent(ctx context.Context, applicationID string, day time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := applicationID + "|" + dayKey(day)
	if _, ok := s.sent[key]; ok {
		return false, nil
	}
	s.sent[key] = struct{}{}
	return true, nil
}
