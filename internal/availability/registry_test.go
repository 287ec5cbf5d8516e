package availability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Abinashmotract/labour-backend-sub000/internal/availability"
	"github.com/Abinashmotract/labour-backend-sub000/internal/clock"
	"github.com/Abinashmotract/labour-backend-sub000/internal/errors"
	"github.com/Abinashmotract/labour-backend-sub000/internal/events"
	"github.com/Abinashmotract/labour-backend-sub000/internal/geo"
	"github.com/Abinashmotract/labour-backend-sub000/internal/geo/memgeo"
	"github.com/Abinashmotract/labour-backend-sub000/internal/models"
	"github.com/Abinashmotract/labour-backend-sub000/internal/storage/memstore"
)

var base = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type env struct {
	registry *availability.Registry
	store    *memstore.Availability
	geoIndex *memgeo.Index
	events   *events.Recorder
	clock    *clock.Fake
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		store:    memstore.NewAvailability(),
		geoIndex: memgeo.New(),
		events:   events.NewRecorder(),
		clock:    clock.NewFake(base),
	}
	e.registry = availability.NewRegistry(e.store, e.geoIndex, e.events, e.clock, zap.NewNop())
	return e
}

var here = models.Point{Lat: 51.5, Lon: -0.12}

func TestDeclare(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	day := base.AddDate(0, 0, 1)
	record, err := e.registry.Declare(ctx, "lab-1", day, true, []string{"plumbing"}, here)
	require.NoError(t, err)

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, clock.Day(day), record.Date)
	assert.Equal(t, models.AvailabilityActive, record.Status)
	assert.True(t, record.IsAvailable)

	require.Len(t, e.events.AvailabilityDeclareds, 1)
	assert.Equal(t, record.ID, e.events.AvailabilityDeclareds[0].Record.ID)

	entries, err := e.geoIndex.Search(ctx, geo.AvailabilityNamespace(day), here, 1_000, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, record.ID, entries[0].ID)
}

func TestDeclareValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.registry.Declare(ctx, "", base, true, nil, here)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	_, err = e.registry.Declare(ctx, "lab-1", base, true, nil, models.Point{Lat: 95, Lon: 0})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}

func TestDeclarePastDate(t *testing.T) {
	e := newEnv(t)

	_, err := e.registry.Declare(context.Background(), "lab-1", base.AddDate(0, 0, -1), true, nil, here)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypePastDate))
}

func TestDeclareUpsertsInPlace(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	day := base.AddDate(0, 0, 1)
	first, err := e.registry.Declare(ctx, "lab-1", day, true, []string{"plumbing"}, here)
	require.NoError(t, err)

	second, err := e.registry.Declare(ctx, "lab-1", day, false, []string{"carpentry"}, here)
	require.NoError(t, err)

	// Same record, updated in place; no second matching event.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.False(t, second.IsAvailable)
	assert.Equal(t, []string{"carpentry"}, second.Skills)
	assert.Len(t, e.events.AvailabilityDeclareds, 1)

	// Flipping to unavailable pulls the record out of the proximity index.
	entries, err := e.geoIndex.Search(ctx, geo.AvailabilityNamespace(day), here, 1_000, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	active, err := e.registry.Get(ctx, "lab-1", day)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)
	assert.False(t, active.IsAvailable)
}

func TestDeclareDifferentDaysAreIndependent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first, err := e.registry.Declare(ctx, "lab-1", base, true, nil, here)
	require.NoError(t, err)
	second, err := e.registry.Declare(ctx, "lab-1", base.AddDate(0, 0, 1), true, nil, here)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, e.events.AvailabilityDeclareds, 2)
}

func TestCancel(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	day := base.AddDate(0, 0, 1)
	record, err := e.registry.Declare(ctx, "lab-1", day, true, nil, here)
	require.NoError(t, err)

	err = e.registry.Cancel(ctx, record.ID, "somebody-else")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))

	require.NoError(t, e.registry.Cancel(ctx, record.ID, "lab-1"))

	cancelled, err := e.registry.GetRecord(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AvailabilityCancelled, cancelled.Status)

	// Cancelling again finds no active record.
	err = e.registry.Cancel(ctx, record.ID, "lab-1")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))

	entries, err := e.geoIndex.Search(ctx, geo.AvailabilityNamespace(day), here, 1_000, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// A fresh declaration for the same day starts a new record and matches
	// again.
	fresh, err := e.registry.Declare(ctx, "lab-1", day, true, nil, here)
	require.NoError(t, err)
	assert.NotEqual(t, record.ID, fresh.ID)
	assert.Len(t, e.events.AvailabilityDeclareds, 2)
}

func TestSweep(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	stale, err := e.registry.Declare(ctx, "lab-1", base, true, nil, here)
	require.NoError(t, err)
	current, err := e.registry.Declare(ctx, "lab-2", base.AddDate(0, 0, 2), true, nil, here)
	require.NoError(t, err)

	e.clock.Advance(48 * time.Hour)

	expired, err := e.registry.Sweep(ctx, e.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	staleRecord, err := e.registry.GetRecord(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AvailabilityExpired, staleRecord.Status)

	currentRecord, err := e.registry.GetRecord(ctx, current.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AvailabilityActive, currentRecord.Status)

	entries, err := e.geoIndex.Search(ctx, geo.AvailabilityNamespace(base), here, 1_000, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Sweeping again is a no-op.
	expired, err = e.registry.Sweep(ctx, e.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, expired)
}

func TestList(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first, err := e.registry.Declare(ctx, "lab-1", base, true, nil, here)
	require.NoError(t, err)
	_, err = e.registry.Declare(ctx, "lab-1", base.AddDate(0, 0, 1), true, nil, here)
	require.NoError(t, err)
	require.NoError(t, e.registry.Cancel(ctx, first.ID, "lab-1"))

	all, err := e.registry.List(ctx, "lab-1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := e.registry.List(ctx, "lab-1", models.AvailabilityActive)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}
