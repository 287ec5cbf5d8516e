// Package events carries the typed events the core emits on its outbound
// queue. Dispatch is decoupled from the mutations that trigger it: a publish
// failure is logged by the caller and never rolls back or blocks the state
// change.
package events

import (
	"context"
	"time"

	"github.com/Abinashmotract/labour-backend-sub000/internal/models"
)

const (
	SubjectJobCreated           = "jobs.created"
	SubjectAvailabilityDeclared = "availability.declared"
	SubjectApplicationSubmitted = "applications.submitted"
	SubjectApplicationDecided   = "applications.decided"
)

type JobCreated struct {
	Job models.JobPosting `json:"job"`
	At  time.Time         `json:"at"`
}

type AvailabilityDeclared struct {
	Record models.AvailabilityRecord `json:"record"`
	At     time.Time                 `json:"at"`
}

type ApplicationSubmitted struct {
	Application models.JobApplication `json:"application"`
	JobOwnerID  string                `json:"job_owner_id"`
	JobTitle    string                `json:"job_title"`
	At          time.Time             `json:"at"`
}

type ApplicationDecided struct {
	Application models.JobApplication `json:"application"`
	JobTitle    string                `json:"job_title"`
	Accepted    bool                  `json:"accepted"`
	At          time.Time             `json:"at"`
}

// Publisher fans core events out onto the queue.
type Publisher interface {
	JobCreated(ctx context.Context, event JobCreated) error
	AvailabilityDeclared(ctx context.Context, event AvailabilityDeclared) error
	ApplicationSubmitted(ctx context.Context, event ApplicationSubmitted) error
	ApplicationDecided(ctx context.Context, event ApplicationDecided) error
	Close()
}
