package memgeo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abinashmotract/labour-backend-sub000/internal/models"
)

func TestSearch(t *testing.T) {
	ctx := context.Background()
	index := New()
	center := models.Point{Lat: 51.5, Lon: -0.12}

	require.NoError(t, index.Insert(ctx, "jobs", "near", models.Point{Lat: 51.51, Lon: -0.12}))
	require.NoError(t, index.Insert(ctx, "jobs", "far", models.Point{Lat: 51.7, Lon: -0.12}))
	require.NoError(t, index.Insert(ctx, "jobs", "out-of-range", models.Point{Lat: 53.0, Lon: -0.12}))
	require.NoError(t, index.Insert(ctx, "other", "wrong-namespace", center))

	entries, err := index.Search(ctx, "jobs", center, 30_000, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "near", entries[0].ID)
	assert.Equal(t, "far", entries[1].ID)
	assert.Less(t, entries[0].DistanceMeters, entries[1].DistanceMeters)

	limited, err := index.Search(ctx, "jobs", center, 30_000, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "near", limited[0].ID)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	index := New()
	center := models.Point{Lat: 51.5, Lon: -0.12}

	require.NoError(t, index.Insert(ctx, "jobs", "a", center))
	require.NoError(t, index.Remove(ctx, "jobs", "a"))
	// Removing twice is harmless.
	require.NoError(t, index.Remove(ctx, "jobs", "a"))

	entries, err := index.Search(ctx, "jobs", center, 1_000, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
