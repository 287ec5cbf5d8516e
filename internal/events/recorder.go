package events

import (
	"context"
	"sync"
)

// Recorder is an in-process Publisher that remembers what was emitted.
// Tests use it; it can also chain to an optional downstream consumer.
type Recorder struct {
	mu                    sync.Mutex
	JobsCreated           []JobCreated
	AvailabilityDeclareds []AvailabilityDeclared
	ApplicationSubmitteds []ApplicationSubmitted
	ApplicationDecideds   []ApplicationDecided
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) JobCreated(ctx context.Context, event JobCreated) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.JobsCreated = append(r.JobsCreated, event)
	return nil
}

func (r *Recorder) AvailabilityDeclared(ctx context.Context, event AvailabilityDeclared) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.AvailabilityDeclareds = append(r.AvailabilityDeclareds, event)
	return nil
}

func (r *Recorder) ApplicationSubmitted(ctx context.Context, event ApplicationSubmitted) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ApplicationSubmitteds = append(r.ApplicationSubmitteds, event)
	return nil
}

func (r *Recorder) ApplicationDecided(ctx context.Context, event ApplicationDecided) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ApplicationDecideds = append(r.ApplicationDecideds, event)
	return nil
}

func (r *Recorder) Close() {}
