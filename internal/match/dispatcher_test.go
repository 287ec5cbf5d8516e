package match_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Abinashmotract/labour-backend-sub000/internal/audit"
	"github.com/Abinashmotract/labour-backend-sub000/internal/availability"
	"github.com/Abinashmotract/labour-backend-sub000/internal/clock"
	"github.com/Abinashmotract/labour-backend-sub000/internal/events"
	"github.com/Abinashmotract/labour-backend-sub000/internal/geo"
	"github.com/Abinashmotract/labour-backend-sub000/internal/geo/memgeo"
	"github.com/Abinashmotract/labour-backend-sub000/internal/match"
	"github.com/Abinashmotract/labour-backend-sub000/internal/models"
	"github.com/Abinashmotract/labour-backend-sub000/internal/notify"
	"github.com/Abinashmotract/labour-backend-sub000/internal/storage/memstore"
)

var base = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

var site = models.Point{Lat: 51.5, Lon: -0.12}

type env struct {
	dispatcher   *match.Dispatcher
	availability *availability.Registry
	jobStore     *memstore.Jobs
	availStore   *memstore.Availability
	tokens       *memstore.Tokens
	geoIndex     *memgeo.Index
	pushes       *notify.Recorder
	clock        *clock.Fake
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		jobStore:   memstore.NewJobs(),
		availStore: memstore.NewAvailability(),
		tokens:     memstore.NewTokens(),
		geoIndex:   memgeo.New(),
		pushes:     notify.NewRecorder(),
		clock:      clock.NewFake(base),
	}
	e.availability = availability.NewRegistry(e.availStore, e.geoIndex, events.NewRecorder(), e.clock, zap.NewNop())
	e.dispatcher = match.NewDispatcher(
		e.jobStore, e.availStore, e.geoIndex, e.tokens,
		e.pushes, audit.Nop{}, e.clock, zap.NewNop(), 500,
	)
	return e
}

func (e *env) registerToken(t *testing.T, userID string) string {
	t.Helper()
	token := "tok-" + userID
	require.NoError(t, e.tokens.SetToken(context.Background(), userID, token))
	return token
}

func (e *env) newJob(required int) *models.JobPosting {
	return &models.JobPosting{
		ID:                "job-1",
		ContractorID:      "contractor-1",
		Title:             "Roof repair",
		Address:           "12 Mill Road",
		Location:          site,
		Skills:            []string{"plumbing"},
		LabourersRequired: required,
		ScheduledFor:      clock.Day(base.AddDate(0, 0, 1)),
		ValidUntil:        base.Add(24 * time.Hour),
		RadiusMeters:      30_000,
		IsActive:          true,
		CreatedAt:         base,
		UpdatedAt:         base,
	}
}

func TestOnNewJobNotifiesAvailableLabourers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	day := base.AddDate(0, 0, 1)

	nearToken := e.registerToken(t, "lab-near")
	farToken := e.registerToken(t, "lab-far")
	otherToken := e.registerToken(t, "lab-other-skill")

	_, err := e.availability.Declare(ctx, "lab-near", day, true, []string{"plumbing"}, models.Point{Lat: 51.51, Lon: -0.12})
	require.NoError(t, err)
	_, err = e.availability.Declare(ctx, "lab-far", day, true, []string{"plumbing"}, models.Point{Lat: 53.0, Lon: -0.12})
	require.NoError(t, err)
	_, err = e.availability.Declare(ctx, "lab-other-skill", day, true, []string{"carpentry"}, models.Point{Lat: 51.51, Lon: -0.12})
	require.NoError(t, err)

	job := e.newJob(2)
	e.dispatcher.OnNewJob(ctx, job)

	// Broadcast plus nearby for the close labourer, broadcast only for the
	// distant one, nothing for the skill mismatch.
	assert.Equal(t, 2, e.pushes.CountTo(nearToken))
	assert.Equal(t, 1, e.pushes.CountTo(farToken))
	assert.Equal(t, 0, e.pushes.CountTo(otherToken))

	nearRecord, err := e.availStore.GetActive(ctx, "lab-near", clock.Day(day))
	require.NoError(t, err)
	require.Len(t, nearRecord.MatchedJobs, 1)
	assert.Equal(t, job.ID, nearRecord.MatchedJobs[0].JobID)
}

func TestOnNewJobIgnoresOtherDays(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	token := e.registerToken(t, "lab-1")
	_, err := e.availability.Declare(ctx, "lab-1", base.AddDate(0, 0, 2), true, []string{"plumbing"}, site)
	require.NoError(t, err)

	e.dispatcher.OnNewJob(ctx, e.newJob(1))
	assert.Equal(t, 0, e.pushes.CountTo(token))
}

func TestOnNewJobSkipsUnavailableDeclarations(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	day := base.AddDate(0, 0, 1)

	token := e.registerToken(t, "lab-1")
	_, err := e.availability.Declare(ctx, "lab-1", day, false, []string{"plumbing"}, site)
	require.NoError(t, err)

	e.dispatcher.OnNewJob(ctx, e.newJob(1))
	assert.Equal(t, 0, e.pushes.CountTo(token))
}

type failingGeo struct{}

func (failingGeo) Insert(ctx context.Context, namespace, id string, point models.Point) error {
	return nil
}

func (failingGeo) Remove(ctx context.Context, namespace, id string) error {
	return nil
}

func (failingGeo) Search(ctx context.Context, namespace string, center models.Point, radiusMeters float64, limit int) ([]geo.Entry, error) {
	return nil, fmt.Errorf("geo backend down")
}

func TestOnNewJobWavesAreIsolated(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	day := base.AddDate(0, 0, 1)

	token := e.registerToken(t, "lab-1")
	_, err := e.availability.Declare(ctx, "lab-1", day, true, []string{"plumbing"}, site)
	require.NoError(t, err)

	broken := match.NewDispatcher(
		e.jobStore, e.availStore, failingGeo{}, e.tokens,
		e.pushes, audit.Nop{}, e.clock, zap.NewNop(), 500,
	)
	broken.OnNewJob(ctx, e.newJob(1))

	// The proximity wave failed; the broadcast still went out.
	assert.Equal(t, 1, e.pushes.CountTo(token))
}

func TestOnNewAvailabilityNotifiesContractors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	day := base.AddDate(0, 0, 1)

	contractorToken := e.registerToken(t, "contractor-1")

	job := e.newJob(2)
	require.NoError(t, e.jobStore.Insert(ctx, job))

	otherDay := e.newJob(2)
	otherDay.ID = "job-other-day"
	otherDay.ContractorID = "contractor-2"
	otherDay.ScheduledFor = clock.Day(base.AddDate(0, 0, 3))
	require.NoError(t, e.jobStore.Insert(ctx, otherDay))
	otherToken := e.registerToken(t, "contractor-2")

	record, err := e.availability.Declare(ctx, "lab-1", day, true, []string{"plumbing"}, models.Point{Lat: 51.51, Lon: -0.12})
	require.NoError(t, err)

	e.dispatcher.OnNewAvailability(ctx, record)

	assert.Equal(t, 1, e.pushes.CountTo(contractorToken))
	assert.Equal(t, 0, e.pushes.CountTo(otherToken))

	stored, err := e.availStore.Get(ctx, record.ID)
	require.NoError(t, err)
	require.Len(t, stored.MatchedJobs, 1)
	assert.Equal(t, job.ID, stored.MatchedJobs[0].JobID)
	assert.Equal(t, "contractor-1", stored.MatchedJobs[0].ContractorID)
}

func TestOnNewAvailabilityRespectsRadiusAndSkills(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	day := base.AddDate(0, 0, 1)

	token := e.registerToken(t, "contractor-1")
	require.NoError(t, e.jobStore.Insert(ctx, e.newJob(2)))

	farAway, err := e.availability.Declare(ctx, "lab-far", day, true, []string{"plumbing"}, models.Point{Lat: 53.0, Lon: -0.12})
	require.NoError(t, err)
	e.dispatcher.OnNewAvailability(ctx, farAway)
	assert.Equal(t, 0, e.pushes.CountTo(token))

	wrongSkill, err := e.availability.Declare(ctx, "lab-skill", day, true, []string{"carpentry"}, site)
	require.NoError(t, err)
	e.dispatcher.OnNewAvailability(ctx, wrongSkill)
	assert.Equal(t, 0, e.pushes.CountTo(token))

	eligible, err := e.availability.Declare(ctx, "lab-ok", day, true, []string{"plumbing"}, site)
	require.NoError(t, err)
	e.dispatcher.OnNewAvailability(ctx, eligible)
	assert.Equal(t, 1, e.pushes.CountTo(token))
}
