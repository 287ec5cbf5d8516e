package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abinashmotract/labour-backend-sub000/internal/errors"
	"github.com/Abinashmotract/labour-backend-sub000/internal/models"
)

var base = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestAvailabilityUpsertKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	store := NewAvailability()
	day := base.AddDate(0, 0, 1)

	created, first, err := store.Upsert(ctx, &models.AvailabilityRecord{
		ID:          "rec-1",
		LabourerID:  "lab-1",
		Date:        day,
		IsAvailable: true,
		Status:      models.AvailabilityActive,
		CreatedAt:   base,
		UpdatedAt:   base,
	})
	require.NoError(t, err)
	assert.True(t, created)

	created, second, err := store.Upsert(ctx, &models.AvailabilityRecord{
		ID:          "rec-2",
		LabourerID:  "lab-1",
		Date:        day,
		IsAvailable: false,
		Status:      models.AvailabilityActive,
		CreatedAt:   base.Add(time.Hour),
		UpdatedAt:   base.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.False(t, second.IsAvailable)

	// A stale lookup by the replaced id still resolves to the live record.
	_, err = store.Get(ctx, "rec-2")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
}

func TestAvailabilityTransitionReleasesSlot(t *testing.T) {
	ctx := context.Background()
	store := NewAvailability()
	day := base.AddDate(0, 0, 1)

	_, record, err := store.Upsert(ctx, &models.AvailabilityRecord{
		ID:          "rec-1",
		LabourerID:  "lab-1",
		Date:        day,
		IsAvailable: true,
		Status:      models.AvailabilityActive,
	})
	require.NoError(t, err)

	changed, err := store.Transition(ctx, record.ID, models.AvailabilityActive, models.AvailabilityCancelled)
	require.NoError(t, err)
	assert.True(t, changed)

	// The status check makes a repeated transition a no-op, not an error.
	changed, err = store.Transition(ctx, record.ID, models.AvailabilityActive, models.AvailabilityExpired)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = store.GetActive(ctx, "lab-1", day)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))

	// The slot is free again for a fresh declaration.
	created, fresh, err := store.Upsert(ctx, &models.AvailabilityRecord{
		ID:          "rec-2",
		LabourerID:  "lab-1",
		Date:        day,
		IsAvailable: true,
		Status:      models.AvailabilityActive,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, record.ID, fresh.ID)
}

func TestApplicationsUniquePerPair(t *testing.T) {
	ctx := context.Background()
	store := NewApplications()

	require.NoError(t, store.Insert(ctx, &models.JobApplication{
		ID:         "app-1",
		JobID:      "job-1",
		LabourerID: "lab-1",
		Status:     models.ApplicationApplied,
	}))

	err := store.Insert(ctx, &models.JobApplication{
		ID:         "app-2",
		JobID:      "job-1",
		LabourerID: "lab-1",
		Status:     models.ApplicationApplied,
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeDuplicate))

	// Same labourer, different job is fine.
	require.NoError(t, store.Insert(ctx, &models.JobApplication{
		ID:         "app-3",
		JobID:      "job-2",
		LabourerID: "lab-1",
		Status:     models.ApplicationApplied,
	}))
}

func TestApplicationsTransitionIsConditional(t *testing.T) {
	ctx := context.Background()
	store := NewApplications()

	require.NoError(t, store.Insert(ctx, &models.JobApplication{
		ID:         "app-1",
		JobID:      "job-1",
		LabourerID: "lab-1",
		Status:     models.ApplicationApplied,
		CreatedAt:  base,
	}))

	decided, err := store.Transition(ctx, "app-1", models.ApplicationApplied, models.ApplicationAccepted, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationAccepted, decided.Status)
	require.NotNil(t, decided.DecidedAt)
	assert.Equal(t, base.Add(time.Hour), *decided.DecidedAt)

	_, err = store.Transition(ctx, "app-1", models.ApplicationApplied, models.ApplicationRejected, base.Add(2*time.Hour))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeFinalized))
}

func TestRemindersMarkSent(t *testing.T) {
	ctx := context.Background()
	ledger := NewReminders()
	day := base.AddDate(0, 0, 1)

	first, err := ledger.MarkSent(ctx, "app-1", day)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := ledger.MarkSent(ctx, "app-1", day)
	require.NoError(t, err)
	assert.False(t, again)

	otherDay, err := ledger.MarkSent(ctx, "app-1", day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, otherDay)
}

func TestTokens(t *testing.T) {
	ctx := context.Background()
	directory := NewTokens()

	require.NoError(t, directory.SetToken(ctx, "user-1", "tok-1"))
	require.NoError(t, directory.SetToken(ctx, "user-1", "tok-1b"))
	require.NoError(t, directory.SetToken(ctx, "user-2", "tok-2"))

	tokens, err := directory.Tokens(ctx, []string{"user-1", "user-2", "user-missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"user-1": "tok-1b", "user-2": "tok-2"}, tokens)
}
