// Package jobs owns job postings: creation, the activation window, the
// capacity counter, and the open-jobs query surface.
package jobs

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Abinashmotract/labour-backend-sub000/internal/clock"
	"github.com/Abinashmotract/labour-backend-sub000/internal/errors"
	"github.com/Abinashmotract/labour-backend-sub000/internal/events"
	"github.com/Abinashmotract/labour-backend-sub000/internal/geo"
	"github.com/Abinashmotract/labour-backend-sub000/internal/models"
	"github.com/Abinashmotract/labour-backend-sub000/internal/skills"
	"github.com/Abinashmotract/labour-backend-sub000/internal/storage"
	"github.com/Abinashmotract/labour-backend-sub000/internal/telemetry"

	"github.com/google/uuid"
)

var tracer = telemetry.GetTracer("labour/jobs")

type Registry struct {
	store         storage.JobStore
	catalog       skills.Catalog
	geoIndex      geo.Index
	publisher     events.Publisher
	clock         clock.Clock
	logger        *zap.Logger
	defaultRadius float64
}

func NewRegistry(
	store storage.JobStore,
	catalog skills.Catalog,
	geoIndex geo.Index,
	publisher events.Publisher,
	clk clock.Clock,
	logger *zap.Logger,
	defaultRadiusMeters float64,
) *Registry {
	return &Registry{
		store:         store,
		catalog:       catalog,
		geoIndex:      geoIndex,
		publisher:     publisher,
		clock:         clk,
		logger:        logger,
		defaultRadius: defaultRadiusMeters,
	}
}

// JobSpec is the contractor's input to CreateJob.
type JobSpec struct {
	ContractorID      string
	Title             string
	Description       string
	Address           string
	Location          models.Point
	Skills            []string
	LabourersRequired int
	ScheduledFor      time.Time
	ValidUntil        time.Time
	RadiusMeters      float64 // 0 means the configured default
}

func (r *Registry) CreateJob(ctx context.Context, spec JobSpec) (*models.JobPosting, error) {
	ctx, span := tracer.Start(ctx, "CreateJob")
	defer span.End()

	now := r.clock.Now()
	if spec.ContractorID == "" {
		return nil, errors.Validation("contractor id is required", nil)
	}
	if spec.Title == "" {
		return nil, errors.Validation("title is required", nil)
	}
	if !spec.Location.Valid() {
		return nil, errors.Validation("a valid job location is required", nil)
	}
	if len(spec.Skills) == 0 {
		return nil, errors.Validation("at least one required skill is needed", nil)
	}
	if spec.LabourersRequired < 1 {
		return nil, errors.Validation("labourers required must be at least 1", nil)
	}
	if !spec.ValidUntil.After(now) {
		return nil, errors.Validation("valid-until must be in the future", nil)
	}
	if spec.ScheduledFor.IsZero() {
		return nil, errors.Validation("scheduled work day is required", nil)
	}
	if clock.Day(spec.ScheduledFor).Before(clock.Today(r.clock)) {
		return nil, errors.Validation("scheduled work day cannot be in the past", nil)
	}
	if err := r.catalog.ResolveAll(ctx, spec.Skills); err != nil {
		return nil, err
	}

	radius := spec.RadiusMeters
	if radius <= 0 {
		radius = r.defaultRadius
	}

	job := &models.JobPosting{
		ID:                uuid.NewString(),
		ContractorID:      spec.ContractorID,
		Title:             spec.Title,
		Description:       spec.Description,
		Address:           spec.Address,
		Location:          spec.Location,
		Skills:            spec.Skills,
		LabourersRequired: spec.LabourersRequired,
		ScheduledFor:      clock.Day(spec.ScheduledFor),
		ValidUntil:        spec.ValidUntil,
		RadiusMeters:      radius,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := r.store.Insert(ctx, job); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := r.geoIndex.Insert(ctx, geo.JobsNamespace, job.ID, job.Location); err != nil {
		r.logger.Warn("failed to geo-index job", zap.String("job_id", job.ID), zap.Error(err))
	}

	if err := r.publisher.JobCreated(ctx, events.JobCreated{Job: *job, At: now}); err != nil {
		r.logger.Warn("failed to publish job created event",
			zap.String("job_id", job.ID), zap.Error(err))
	}

	r.logger.Info("job created",
		zap.String("job_id", job.ID),
		zap.String("contractor_id", job.ContractorID),
		zap.Int("labourers_required", job.LabourersRequired),
		zap.Time("scheduled_for", job.ScheduledFor))
	return job, nil
}

func (r *Registry) Get(ctx context.Context, id string) (*models.JobPosting, error) {
	return r.store.Get(ctx, id)
}

// IncrementFilled is the sole path by which a job's filled counter moves.
// The store performs the compare-and-increment atomically; losing the race
// for the last slot surfaces as a CAPACITY_EXCEEDED error.
func (r *Registry) IncrementFilled(ctx context.Context, jobID, labourerID string) (*models.JobPosting, error) {
	ctx, span := tracer.Start(ctx, "IncrementFilled")
	defer span.End()

	job, err := r.store.IncrementFilled(ctx, jobID, labourerID, r.clock.Now())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if job.IsFilled() {
		if err := r.geoIndex.Remove(ctx, geo.JobsNamespace, job.ID); err != nil {
			r.logger.Warn("failed to remove filled job from geo index",
				zap.String("job_id", job.ID), zap.Error(err))
		}
	}

	r.logger.Info("job slot filled",
		zap.String("job_id", jobID),
		zap.String("labourer_id", labourerID),
		zap.Int("labourers_filled", job.LabourersFilled),
		zap.Int("labourers_required", job.LabourersRequired))
	return job, nil
}

// Repair overwrites the filled counter with values recomputed from accepted
// applications. Only the reconciliation pass calls this.
func (r *Registry) Repair(ctx context.Context, jobID string, filled int, accepted []models.AcceptedLabourer) error {
	if err := r.store.RepairFilled(ctx, jobID, filled, accepted); err != nil {
		return err
	}
	r.logger.Warn("repaired job filled counter",
		zap.String("job_id", jobID),
		zap.Int("labourers_filled", filled))
	return nil
}

// Deactivate soft-deletes a job on behalf of its owning contractor.
func (r *Registry) Deactivate(ctx context.Context, jobID, ownerID string) error {
	ctx, span := tracer.Start(ctx, "Deactivate")
	defer span.End()

	job, err := r.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.ContractorID != ownerID {
		return errors.Unauthorized("only the owning contractor may deactivate a job", nil)
	}

	if err := r.store.SetActive(ctx, jobID, false); err != nil {
		span.RecordError(err)
		return err
	}
	if err := r.geoIndex.Remove(ctx, geo.JobsNamespace, jobID); err != nil {
		r.logger.Warn("failed to remove deactivated job from geo index",
			zap.String("job_id", jobID), zap.Error(err))
	}
	return nil
}

// QueryFilter narrows the open-jobs query. A nil Center skips the proximity
// filter; empty Skills skips the skill filter.
type QueryFilter struct {
	Center       *models.Point
	RadiusMeters float64
	Skills       []string
}

// Query returns active, unfilled, unexpired jobs matching the filter, sorted
// by distance ascending then recency descending.
func (r *Registry) Query(ctx context.Context, filter QueryFilter) ([]*models.JobPosting, error) {
	ctx, span := tracer.Start(ctx, "Query")
	defer span.End()

	now := r.clock.Now()

	if filter.Center == nil {
		jobs, err := r.store.ListOpen(ctx, now)
		if err != nil {
			return nil, err
		}
		return filterBySkills(jobs, filter.Skills), nil
	}

	radius := filter.RadiusMeters
	if radius <= 0 {
		radius = r.defaultRadius
	}
	entries, err := r.geoIndex.Search(ctx, geo.JobsNamespace, *filter.Center, radius, 0)
	if err != nil {
		return nil, err
	}

	type ranked struct {
		job      *models.JobPosting
		distance float64
	}
	var matches []ranked
	for _, entry := range entries {
		job, err := r.store.Get(ctx, entry.ID)
		if err != nil {
			if errors.IsType(err, errors.ErrTypeNotFound) {
				continue
			}
			return nil, err
		}
		if !job.Open(now) {
			continue
		}
		if len(filter.Skills) > 0 && !skills.Intersects(job.Skills, filter.Skills) {
			continue
		}
		matches = append(matches, ranked{job: job, distance: entry.DistanceMeters})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].job.CreatedAt.After(matches[j].job.CreatedAt)
	})

	out := make([]*models.JobPosting, len(matches))
	for i, m := range matches {
		out[i] = m.job
	}
	return out, nil
}

func filterBySkills(jobs []*models.JobPosting, offered []string) []*models.JobPosting {
	if len(offered) == 0 {
		return jobs
	}
	out := jobs[:0]
	for _, job := range jobs {
		if skills.Intersects(job.Skills, offered) {
			out = append(out, job)
		}
	}
	return out
}
