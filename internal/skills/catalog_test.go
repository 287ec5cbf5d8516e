package skills

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abinashmotract/labour-backend-sub000/internal/errors"
)

func TestIntersects(t *testing.T) {
	cases := []struct {
		name     string
		required []string
		offered  []string
		want     bool
	}{
		{"direct overlap", []string{"plumbing"}, []string{"plumbing"}, true},
		{"one of many", []string{"plumbing", "carpentry"}, []string{"carpentry"}, true},
		{"no overlap", []string{"plumbing"}, []string{"carpentry"}, false},
		{"empty required matches anyone", nil, []string{"carpentry"}, true},
		{"empty required matches empty offered", nil, nil, true},
		{"empty offered never matches", []string{"plumbing"}, nil, false},
		{"case and whitespace insensitive", []string{"Plumbing"}, []string{"  plumbing "}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Intersects(tc.required, tc.offered))
		})
	}
}

func TestMemoryCatalogResolveAll(t *testing.T) {
	ctx := context.Background()
	catalog := NewMemoryCatalog("plumbing", "carpentry")

	require.NoError(t, catalog.ResolveAll(ctx, []string{"plumbing", "Carpentry"}))
	require.NoError(t, catalog.ResolveAll(ctx, nil))

	err := catalog.ResolveAll(ctx, []string{"plumbing", "juggling"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
	assert.Contains(t, err.Error(), "juggling")

	catalog.Deactivate("plumbing")
	err = catalog.ResolveAll(ctx, []string{"plumbing"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}
