// Package notify is the outbound push boundary. Delivery is best-effort and
// at-least-once: sends carry a short timeout, failures are reported per
// token, and nothing here is ever allowed to fail a core state change.
package notify

import (
	"context"
	"sync"
)

// Notification is one push payload.
type Notification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Delivery is the per-token outcome of a fan-out.
type Delivery struct {
	Token string
	Err   error
}

// Fanout delivers notifications to device tokens.
type Fanout interface {
	SendToOne(ctx context.Context, token string, note Notification) error

	// SendToMany fans out to every token and reports per-token outcomes.
	// A failed token never aborts the rest of the wave.
	SendToMany(ctx context.Context, tokens []string, note Notification) []Delivery
}

// Recorder is an in-process Fanout for tests. FailTokens lists tokens whose
// sends should report an error.
type Recorder struct {
	mu         sync.Mutex
	Sent       []SentNotification
	FailTokens map[string]error
}

type SentNotification struct {
	Token string
	Note  Notification
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) SendToOne(ctx context.Context, token string, note Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err, ok := r.FailTokens[token]; ok {
		return err
	}
	r.Sent = append(r.Sent, SentNotification{Token: token, Note: note})
	return nil
}

func (r *Recorder) SendToMany(ctx context.Context, tokens []string, note Notification) []Delivery {
	out := make([]Delivery, 0, len(tokens))
	for _, token := range tokens {
		out = append(out, Delivery{Token: token, Err: r.SendToOne(ctx, token, note)})
	}
	return out
}

// SentTo reports whether any recorded notification went to token.
func (r *Recorder) SentTo(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.Sent {
		if s.Token == token {
			return true
		}
	}
	return false
}

// CountTo returns how many notifications went to token.
func (r *Recorder) CountTo(token string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.Sent {
		if s.Token == token {
			n++
		}
	}
	return n
}
