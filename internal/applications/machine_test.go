package applications_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Abinashmotract/labour-backend-sub000/internal/applications"
	"github.com/Abinashmotract/labour-backend-sub000/internal/clock"
	"github.com/Abinashmotract/labour-backend-sub000/internal/errors"
	"github.com/Abinashmotract/labour-backend-sub000/internal/events"
	"github.com/Abinashmotract/labour-backend-sub000/internal/geo/memgeo"
	"github.com/Abinashmotract/labour-backend-sub000/internal/jobs"
	"github.com/Abinashmotract/labour-backend-sub000/internal/models"
	"github.com/Abinashmotract/labour-backend-sub000/internal/skills"
	"github.com/Abinashmotract/labour-backend-sub000/internal/storage/memstore"
)

var base = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type env struct {
	machine  *applications.Machine
	jobs     *jobs.Registry
	jobStore *memstore.Jobs
	appStore *memstore.Applications
	events   *events.Recorder
	clock    *clock.Fake
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		jobStore: memstore.NewJobs(),
		appStore: memstore.NewApplications(),
		events:   events.NewRecorder(),
		clock:    clock.NewFake(base),
	}
	catalog := skills.NewMemoryCatalog("plumbing", "carpentry")
	e.jobs = jobs.NewRegistry(e.jobStore, catalog, memgeo.New(), e.events, e.clock, zap.NewNop(), 50_000)
	e.machine = applications.NewMachine(e.appStore, e.jobs, e.events, e.clock, zap.NewNop())
	return e
}

func (e *env) createJob(t *testing.T, required int) *models.JobPosting {
	t.Helper()
	job, err := e.jobs.CreateJob(context.Background(), jobs.JobSpec{
		ContractorID:      "contractor-1",
		Title:             "Roof repair",
		Address:           "12 Mill Road",
		Location:          models.Point{Lat: 51.5, Lon: -0.12},
		Skills:            []string{"plumbing"},
		LabourersRequired: required,
		ScheduledFor:      base.AddDate(0, 0, 1),
		ValidUntil:        base.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	return job
}

func TestApply(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	job := e.createJob(t, 2)

	app, err := e.machine.Apply(ctx, job.ID, "lab-1", "I can start tomorrow")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationApplied, app.Status)
	assert.Nil(t, app.DecidedAt)

	require.Len(t, e.events.ApplicationSubmitteds, 1)
	assert.Equal(t, "contractor-1", e.events.ApplicationSubmitteds[0].JobOwnerID)
	assert.Equal(t, job.Title, e.events.ApplicationSubmitteds[0].JobTitle)
}

func TestApplyDuplicate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	job := e.createJob(t, 2)

	_, err := e.machine.Apply(ctx, job.ID, "lab-1", "")
	require.NoError(t, err)

	_, err = e.machine.Apply(ctx, job.ID, "lab-1", "trying again")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeDuplicate), "got %v", err)
	assert.Len(t, e.events.ApplicationSubmitteds, 1)
}

func TestApplyClosedJob(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	t.Run("deactivated", func(t *testing.T) {
		job := e.createJob(t, 1)
		require.NoError(t, e.jobs.Deactivate(ctx, job.ID, "contractor-1"))

		_, err := e.machine.Apply(ctx, job.ID, "lab-1", "")
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeJobInactive), "got %v", err)
	})

	t.Run("filled", func(t *testing.T) {
		job := e.createJob(t, 1)
		_, err := e.jobs.IncrementFilled(ctx, job.ID, "lab-0")
		require.NoError(t, err)

		_, err = e.machine.Apply(ctx, job.ID, "lab-1", "")
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeJobFull), "got %v", err)
	})

	t.Run("expired", func(t *testing.T) {
		job := e.createJob(t, 1)
		e.clock.Advance(25 * time.Hour)
		defer e.clock.Set(base)

		_, err := e.machine.Apply(ctx, job.ID, "lab-1", "")
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeJobInactive), "got %v", err)
	})

	t.Run("unknown job", func(t *testing.T) {
		_, err := e.machine.Apply(ctx, "no-such-job", "lab-1", "")
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeNotFound), "got %v", err)
	})
}

func TestDecideAuthorization(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	job := e.createJob(t, 1)

	app, err := e.machine.Apply(ctx, job.ID, "lab-1", "")
	require.NoError(t, err)

	_, err = e.machine.Decide(ctx, app.ID, "somebody-else", applications.DecisionAccept)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeUnauthorized), "got %v", err)

	_, err = e.machine.Decide(ctx, app.ID, "contractor-1", "maybe")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation), "got %v", err)
}

func TestDecideAccept(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	job := e.createJob(t, 2)

	app1, err := e.machine.Apply(ctx, job.ID, "lab-1", "")
	require.NoError(t, err)
	app2, err := e.machine.Apply(ctx, job.ID, "lab-2", "")
	require.NoError(t, err)
	app3, err := e.machine.Apply(ctx, job.ID, "lab-3", "")
	require.NoError(t, err)

	decided, err := e.machine.Decide(ctx, app1.ID, "contractor-1", applications.DecisionAccept)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationAccepted, decided.Status)
	require.NotNil(t, decided.DecidedAt)

	_, err = e.machine.Decide(ctx, app2.ID, "contractor-1", applications.DecisionAccept)
	require.NoError(t, err)

	// Both slots are gone; the third applicant loses the race at the counter
	// and stays pending.
	_, err = e.machine.Decide(ctx, app3.ID, "contractor-1", applications.DecisionAccept)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeCapacity), "got %v", err)

	pending, err := e.machine.Get(ctx, app3.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationApplied, pending.Status)

	// The pending applicant can still be rejected.
	_, err = e.machine.Decide(ctx, app3.ID, "contractor-1", applications.DecisionReject)
	require.NoError(t, err)

	final, err := e.jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, final.LabourersFilled)
	assert.Len(t, final.AcceptedLabourers, 2)

	require.Len(t, e.events.ApplicationDecideds, 3)
	assert.True(t, e.events.ApplicationDecideds[0].Accepted)
	assert.False(t, e.events.ApplicationDecideds[2].Accepted)
}

func TestDecideAlreadyFinalized(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	job := e.createJob(t, 2)

	app, err := e.machine.Apply(ctx, job.ID, "lab-1", "")
	require.NoError(t, err)

	_, err = e.machine.Decide(ctx, app.ID, "contractor-1", applications.DecisionReject)
	require.NoError(t, err)

	for _, decision := range []applications.Decision{applications.DecisionAccept, applications.DecisionReject} {
		_, err = e.machine.Decide(ctx, app.ID, "contractor-1", decision)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeFinalized), "got %v", err)
	}

	// A rejection never touches the counter.
	final, err := e.jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, final.LabourersFilled)
}

func TestDecideConcurrentLastSlot(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	job := e.createJob(t, 1)

	const applicants = 8
	apps := make([]*models.JobApplication, applicants)
	for i := range apps {
		app, err := e.machine.Apply(ctx, job.ID, fmt.Sprintf("lab-%d", i), "")
		require.NoError(t, err)
		apps[i] = app
	}

	results := make([]error, applicants)
	var wg sync.WaitGroup
	for i := range apps {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = e.machine.Decide(ctx, apps[i].ID, "contractor-1", applications.DecisionAccept)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.IsType(err, errors.ErrTypeCapacity), "got %v", err)
	}
	assert.Equal(t, 1, succeeded)

	// The number of accepted applications always equals the filled counter.
	acceptedCount, err := e.appStore.CountByJob(ctx, job.ID, models.ApplicationAccepted)
	require.NoError(t, err)
	final, err := e.jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, final.LabourersFilled, acceptedCount)
	assert.Equal(t, 1, final.LabourersFilled)
}

func TestReconcile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	job := e.createJob(t, 3)

	app, err := e.machine.Apply(ctx, job.ID, "lab-1", "")
	require.NoError(t, err)
	_, err = e.machine.Decide(ctx, app.ID, "contractor-1", applications.DecisionAccept)
	require.NoError(t, err)

	// Counters agree; reconciliation is a no-op.
	require.NoError(t, e.machine.Reconcile(ctx, job.ID))

	// Manufacture the crash window: counter moved without a matching
	// accepted application.
	require.NoError(t, e.jobs.Repair(ctx, job.ID, 3, []models.AcceptedLabourer{
		{LabourerID: "lab-1", AcceptedAt: base},
		{LabourerID: "ghost-1", AcceptedAt: base},
		{LabourerID: "ghost-2", AcceptedAt: base},
	}))

	err = e.machine.Reconcile(ctx, job.ID)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeReconciliation), "got %v", err)

	repaired, err := e.jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired.LabourersFilled)
	require.Len(t, repaired.AcceptedLabourers, 1)
	assert.Equal(t, "lab-1", repaired.AcceptedLabourers[0].LabourerID)
}
