// Package applications owns the lifecycle of a labourer's application to a
// job: applied, then exactly one terminal decision. The accept path enforces
// the capacity invariant by incrementing the job's filled counter before the
// status flip, so a lost race leaves the application untouched.
package applications

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/Abinashmotract/labour-backend-sub000/internal/clock"
	"github.com/Abinashmotract/labour-backend-sub000/internal/errors"
	"github.com/Abinashmotract/labour-backend-sub000/internal/events"
	"github.com/Abinashmotract/labour-backend-sub000/internal/jobs"
	"github.com/Abinashmotract/labour-backend-sub000/internal/models"
	"github.com/Abinashmotract/labour-backend-sub000/internal/storage"
	"github.com/Abinashmotract/labour-backend-sub000/internal/telemetry"

	"github.com/google/uuid"
)

var tracer = telemetry.GetTracer("labour/applications")

// Decision is a contractor's verdict on an application.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

type Machine struct {
	store     storage.ApplicationStore
	jobs      *jobs.Registry
	publisher events.Publisher
	clock     clock.Clock
	logger    *zap.Logger
}

func NewMachine(
	store storage.ApplicationStore,
	registry *jobs.Registry,
	publisher events.Publisher,
	clk clock.Clock,
	logger *zap.Logger,
) *Machine {
	return &Machine{
		store:     store,
		jobs:      registry,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
	}
}

// Apply submits a labourer's application to a job. At most one application
// exists per (job, labourer) pair.
func (m *Machine) Apply(ctx context.Context, jobID, labourerID, coverLetter string) (*models.JobApplication, error) {
	ctx, span := tracer.Start(ctx, "Apply")
	defer span.End()

	if labourerID == "" {
		return nil, errors.Validation("labourer id is required", nil)
	}

	job, err := m.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	if !job.IsActive || !job.ValidUntil.After(now) {
		return nil, errors.JobInactive("job is no longer accepting applications", nil)
	}
	if job.IsFilled() {
		return nil, errors.JobFull("job already has all labourers it needs", nil)
	}

	app := &models.JobApplication{
		ID:          uuid.NewString(),
		JobID:       jobID,
		LabourerID:  labourerID,
		CoverLetter: coverLetter,
		Status:      models.ApplicationApplied,
		CreatedAt:   now,
	}

	if err := m.store.Insert(ctx, app); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := m.publisher.ApplicationSubmitted(ctx, events.ApplicationSubmitted{
		Application: *app,
		JobOwnerID:  job.ContractorID,
		JobTitle:    job.Title,
		At:          now,
	}); err != nil {
		m.logger.Warn("failed to publish application submitted event",
			zap.String("application_id", app.ID), zap.Error(err))
	}

	m.logger.Info("application submitted",
		zap.String("application_id", app.ID),
		zap.String("job_id", jobID),
		zap.String("labourer_id", labourerID))
	return app, nil
}

// Decide records the owning contractor's verdict. On accept the capacity
// increment happens first; if the job just filled, the application stays
// `applied` and the caller sees the CAPACITY_EXCEEDED error. Only a
// successful increment flips the status, which keeps the count of accepted
// applications equal to the filled counter at all times.
func (m *Machine) Decide(ctx context.Context, applicationID, deciderID string, decision Decision) (*models.JobApplication, error) {
	ctx, span := tracer.Start(ctx, "Decide")
	defer span.End()
	span.SetAttributes(telemetry.String("application.decision", string(decision)))

	app, err := m.store.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	job, err := m.jobs.Get(ctx, app.JobID)
	if err != nil {
		return nil, err
	}
	if job.ContractorID != deciderID {
		return nil, errors.Unauthorized("only the owning contractor may decide on applications", nil)
	}
	if app.Status.Terminal() {
		return nil, errors.AlreadyFinalized(fmt.Sprintf("application is already %s", app.Status), nil)
	}

	var target models.ApplicationStatus
	switch decision {
	case DecisionAccept:
		target = models.ApplicationAccepted
		if _, err := m.jobs.IncrementFilled(ctx, app.JobID, app.LabourerID); err != nil {
			span.RecordError(err)
			return nil, err
		}
	case DecisionReject:
		target = models.ApplicationRejected
	default:
		return nil, errors.Validation(fmt.Sprintf("unknown decision %q", decision), nil)
	}

	decided, err := m.store.Transition(ctx, applicationID, models.ApplicationApplied, target, m.clock.Now())
	if err != nil {
		// On the accept path the counter has already moved; the
		// reconciliation pass repairs this window after a crash.
		span.RecordError(err)
		m.logger.Error("application status flip failed after capacity increment",
			zap.String("application_id", applicationID),
			zap.String("decision", string(decision)),
			zap.Error(err))
		return nil, err
	}

	if err := m.publisher.ApplicationDecided(ctx, events.ApplicationDecided{
		Application: *decided,
		JobTitle:    job.Title,
		Accepted:    decision == DecisionAccept,
		At:          m.clock.Now(),
	}); err != nil {
		m.logger.Warn("failed to publish application decided event",
			zap.String("application_id", applicationID), zap.Error(err))
	}

	m.logger.Info("application decided",
		zap.String("application_id", applicationID),
		zap.String("job_id", app.JobID),
		zap.String("decision", string(decision)))
	return decided, nil
}

// Get returns an application by id.
func (m *Machine) Get(ctx context.Context, applicationID string) (*models.JobApplication, error) {
	return m.store.Get(ctx, applicationID)
}

// ListByJob returns every application for a job.
func (m *Machine) ListByJob(ctx context.Context, jobID string) ([]*models.JobApplication, error) {
	return m.store.ListByJob(ctx, jobID)
}

// Reconcile recomputes a job's filled counter from its accepted
// applications. The application status is the source of truth for who is
// accepted; the counter is repaired to match. Detected drift is reported as
// a CAPACITY_RECONCILIATION error after the repair.
func (m *Machine) Reconcile(ctx context.Context, jobID string) error {
	ctx, span := tracer.Start(ctx, "Reconcile")
	defer span.End()

	job, err := m.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}

	apps, err := m.store.ListByJob(ctx, jobID)
	if err != nil {
		return err
	}

	var accepted []*models.JobApplication
	for _, app := range apps {
		if app.Status == models.ApplicationAccepted {
			accepted = append(accepted, app)
		}
	}
	if len(accepted) == job.LabourersFilled {
		return nil
	}

	sort.Slice(accepted, func(i, j int) bool {
		ti, tj := accepted[i].CreatedAt, accepted[j].CreatedAt
		if accepted[i].DecidedAt != nil && accepted[j].DecidedAt != nil {
			ti, tj = *accepted[i].DecidedAt, *accepted[j].DecidedAt
		}
		return ti.Before(tj)
	})

	list := make([]models.AcceptedLabourer, len(accepted))
	for i, app := range accepted {
		at := app.CreatedAt
		if app.DecidedAt != nil {
			at = *app.DecidedAt
		}
		list[i] = models.AcceptedLabourer{LabourerID: app.LabourerID, AcceptedAt: at}
	}

	if err := m.jobs.Repair(ctx, jobID, len(list), list); err != nil {
		return err
	}

	return errors.Reconciliation(
		fmt.Sprintf("job %s filled counter was %d but %d applications are accepted",
			jobID, job.LabourersFilled, len(list)), nil)
}
