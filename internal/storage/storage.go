package storage

import (
	"context"
	"time"

	"github.com/Abinashmotract/labour-backend-sub000/internal/models"
)

// JobStore persists job postings. The filled counter is only mutated through
// IncrementFilled (a conditional update) or RepairFilled (the reconciliation
// path), never through Update.
type JobStore interface {
	Insert(ctx context.Context, job *models.JobPosting) error

	Get(ctx context.Context, id string) (*models.JobPosting, error)

	// Update rewrites a job's contractor-editable fields. Counter fields in
	// the given job are ignored.
	Update(ctx context.Context, job *models.JobPosting) error

	// IncrementFilled atomically bumps labourersFilled and appends the
	// labourer to the accepted list, provided filled < required at the time
	// of the attempt. Returns the updated job, or a CAPACITY_EXCEEDED error
	// when the job is already at capacity.
	IncrementFilled(ctx context.Context, jobID, labourerID string, at time.Time) (*models.JobPosting, error)

	SetActive(ctx context.Context, jobID string, active bool) error

	// ListOpen returns active, unfilled jobs whose validUntil is after now.
	ListOpen(ctx context.Context, now time.Time) ([]*models.JobPosting, error)

	// ListScheduledOn returns jobs whose work day equals the given calendar
	// day.
	ListScheduledOn(ctx context.Context, day time.Time) ([]*models.JobPosting, error)

	// RepairFilled overwrites the filled counter and accepted list with
	// values recomputed from accepted applications.
	RepairFilled(ctx context.Context, jobID string, filled int, accepted []models.AcceptedLabourer) error
}

// AvailabilityStore persists per-labourer, per-day availability records. At
// most one active record exists per (labourer, day); Upsert enforces that
// atomically.
type AvailabilityStore interface {
	// Upsert creates the active record for (record.LabourerID, record.Date)
	// or replaces it in place, preserving the existing id and creation time.
	// created reports whether a new record came into existence.
	Upsert(ctx context.Context, record *models.AvailabilityRecord) (created bool, updated *models.AvailabilityRecord, err error)

	Get(ctx context.Context, id string) (*models.AvailabilityRecord, error)

	GetActive(ctx context.Context, labourerID string, date time.Time) (*models.AvailabilityRecord, error)

	// List returns a labourer's records, optionally filtered by status
	// (empty status means all).
	List(ctx context.Context, labourerID string, status models.AvailabilityStatus) ([]*models.AvailabilityRecord, error)

	// Transition moves the record from status `from` to `to`. changed is
	// false when the record is no longer in `from`; a missing record is a
	// NOT_FOUND error.
	Transition(ctx context.Context, id string, from, to models.AvailabilityStatus) (changed bool, err error)

	// ListActiveBefore returns active records dated strictly before day.
	ListActiveBefore(ctx context.Context, day time.Time) ([]*models.AvailabilityRecord, error)

	// ListAvailableOn returns active, isAvailable=true records for day.
	ListAvailableOn(ctx context.Context, day time.Time) ([]*models.AvailabilityRecord, error)

	// AppendMatches appends audit entries to the record's matchedJobs list,
	// skipping jobs already present.
	AppendMatches(ctx context.Context, id string, matches []models.JobMatch) error
}

// ApplicationStore persists job applications with a uniqueness guarantee per
// (job, labourer) pair.
type ApplicationStore interface {
	// Insert stores a new application; a DUPLICATE error reports an existing
	// application for the same (job, labourer) pair.
	Insert(ctx context.Context, app *models.JobApplication) error

	Get(ctx context.Context, id string) (*models.JobApplication, error)

	// Transition flips status from `from` to `to` as a conditional write.
	// A record no longer in `from` yields an ALREADY_FINALIZED error.
	Transition(ctx context.Context, id string, from, to models.ApplicationStatus, decidedAt time.Time) (*models.JobApplication, error)

	ListByJob(ctx context.Context, jobID string) ([]*models.JobApplication, error)

	CountByJob(ctx context.Context, jobID string, status models.ApplicationStatus) (int, error)
}

// TokenDirectory resolves user ids to push tokens. It is a pure read from
// the user-record collaborator; users without a token are simply absent from
// the result.
type TokenDirectory interface {
	SetToken(ctx context.Context, userID, token string) error
	Tokens(ctx context.Context, userIDs []string) (map[string]string, error)
}

// ReminderLedger deduplicates reminder sends per (application, day).
type ReminderLedger interface {
	// MarkSent records the pair and reports whether this call was the first
	// to do so.
	MarkSent(ctx context.Context, applicationID string, day time.Time) (bool, error)
}
