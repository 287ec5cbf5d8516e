// Package availability owns per-labourer, per-day availability declarations
// and their lifecycle: declare (idempotent upsert), cancel, expire.
package availability

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Abinashmotract/labour-backend-sub000/internal/clock"
	"github.com/Abinashmotract/labour-backend-sub000/internal/errors"
	"github.com/Abinashmotract/labour-backend-sub000/internal/events"
	"github.com/Abinashmotract/labour-backend-sub000/internal/geo"
	"github.com/Abinashmotract/labour-backend-sub000/internal/models"
	"github.com/Abinashmotract/labour-backend-sub000/internal/storage"
	"github.com/Abinashmotract/labour-backend-sub000/internal/telemetry"

	"github.com/google/uuid"
)

var tracer = telemetry.GetTracer("labour/availability")

type Registry struct {
	store     storage.AvailabilityStore
	geoIndex  geo.Index
	publisher events.Publisher
	clock     clock.Clock
	logger    *zap.Logger
}

func NewRegistry(
	store storage.AvailabilityStore,
	geoIndex geo.Index,
	publisher events.Publisher,
	clk clock.Clock,
	logger *zap.Logger,
) *Registry {
	return &Registry{
		store:     store,
		geoIndex:  geoIndex,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
	}
}

// Declare records a labourer's availability for one calendar day. A second
// declaration for the same day updates the existing active record in place
// rather than erroring; only the first creation of an available record
// triggers matching.
func (r *Registry) Declare(ctx context.Context, labourerID string, date time.Time, isAvailable bool, skillSet []string, location models.Point) (*models.AvailabilityRecord, error) {
	ctx, span := tracer.Start(ctx, "Declare")
	defer span.End()

	if labourerID == "" {
		return nil, errors.Validation("labourer id is required", nil)
	}
	if isAvailable && !location.Valid() {
		return nil, errors.Validation("a valid location is required when declaring availability", nil)
	}

	day := clock.Day(date)
	if day.Before(clock.Today(r.clock)) {
		return nil, errors.PastDate("cannot declare availability for a past date", nil)
	}

	now := r.clock.Now()
	record := &models.AvailabilityRecord{
		ID:          uuid.NewString(),
		LabourerID:  labourerID,
		Date:        day,
		Skills:      skillSet,
		Location:    location,
		IsAvailable: isAvailable,
		Status:      models.AvailabilityActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, stored, err := r.store.Upsert(ctx, record)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(telemetry.Bool("availability.created", created))

	namespace := geo.AvailabilityNamespace(day)
	if stored.IsAvailable {
		if err := r.geoIndex.Insert(ctx, namespace, stored.ID, stored.Location); err != nil {
			r.logger.Warn("failed to geo-index availability record",
				zap.String("record_id", stored.ID), zap.Error(err))
		}
	} else {
		if err := r.geoIndex.Remove(ctx, namespace, stored.ID); err != nil {
			r.logger.Warn("failed to remove unavailable record from geo index",
				zap.String("record_id", stored.ID), zap.Error(err))
		}
	}

	if created && stored.IsAvailable {
		if err := r.publisher.AvailabilityDeclared(ctx, events.AvailabilityDeclared{Record: *stored, At: now}); err != nil {
			r.logger.Warn("failed to publish availability declared event",
				zap.String("record_id", stored.ID), zap.Error(err))
		}
	}

	r.logger.Info("availability declared",
		zap.String("labourer_id", labourerID),
		zap.Time("date", day),
		zap.Bool("is_available", isAvailable),
		zap.Bool("created", created))
	return stored, nil
}

// Cancel withdraws an active record owned by the labourer.
func (r *Registry) Cancel(ctx context.Context, recordID, labourerID string) error {
	ctx, span := tracer.Start(ctx, "Cancel")
	defer span.End()

	record, err := r.store.Get(ctx, recordID)
	if err != nil {
		return err
	}
	if record.LabourerID != labourerID || record.Status != models.AvailabilityActive {
		return errors.NotFound("no active availability record for this labourer", nil)
	}

	changed, err := r.store.Transition(ctx, recordID, models.AvailabilityActive, models.AvailabilityCancelled)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !changed {
		return errors.NotFound("no active availability record for this labourer", nil)
	}

	if err := r.geoIndex.Remove(ctx, geo.AvailabilityNamespace(record.Date), recordID); err != nil {
		r.logger.Warn("failed to remove cancelled record from geo index",
			zap.String("record_id", recordID), zap.Error(err))
	}

	r.logger.Info("availability cancelled",
		zap.String("record_id", recordID),
		zap.String("labourer_id", labourerID))
	return nil
}

// Sweep expires every active record dated before today. It is idempotent
// and safe to run alongside declarations, which only touch today or later.
func (r *Registry) Sweep(ctx context.Context, now time.Time) (int, error) {
	ctx, span := tracer.Start(ctx, "Sweep")
	defer span.End()

	records, err := r.store.ListActiveBefore(ctx, clock.Day(now))
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	expired := 0
	for _, record := range records {
		changed, err := r.store.Transition(ctx, record.ID, models.AvailabilityActive, models.AvailabilityExpired)
		if err != nil {
			r.logger.Warn("failed to expire availability record",
				zap.String("record_id", record.ID), zap.Error(err))
			continue
		}
		if !changed {
			continue
		}
		if err := r.geoIndex.Remove(ctx, geo.AvailabilityNamespace(record.Date), record.ID); err != nil {
			r.logger.Warn("failed to remove expired record from geo index",
				zap.String("record_id", record.ID), zap.Error(err))
		}
		expired++
	}

	span.SetAttributes(telemetry.Int("availability.expired", expired))
	if expired > 0 {
		r.logger.Info("expired stale availability records", zap.Int("count", expired))
	}
	return expired, nil
}

// Get returns the labourer's active record for a day, if any.
func (r *Registry) Get(ctx context.Context, labourerID string, date time.Time) (*models.AvailabilityRecord, error) {
	return r.store.GetActive(ctx, labourerID, clock.Day(date))
}

// GetRecord returns a record by id regardless of status.
func (r *Registry) GetRecord(ctx context.Context, recordID string) (*models.AvailabilityRecord, error) {
	return r.store.Get(ctx, recordID)
}

// List returns a labourer's records, optionally filtered by status.
func (r *Registry) List(ctx context.Context, labourerID string, status models.AvailabilityStatus) ([]*models.AvailabilityRecord, error) {
	return r.store.List(ctx, labourerID, status)
}
