package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointValid(t *testing.T) {
	assert.True(t, Point{Lat: 51.5, Lon: -0.12}.Valid())
	assert.True(t, Point{Lat: -90, Lon: 180}.Valid())
	assert.False(t, Point{Lat: 90.1, Lon: 0}.Valid())
	assert.False(t, Point{Lat: 0, Lon: -180.1}.Valid())
}

func TestDistanceMeters(t *testing.T) {
	london := Point{Lat: 51.5074, Lon: -0.1278}
	paris := Point{Lat: 48.8566, Lon: 2.3522}

	d := london.DistanceMeters(paris)
	// Roughly 344 km between the two city centres.
	assert.InDelta(t, 344_000, d, 5_000)

	assert.Zero(t, london.DistanceMeters(london))
	assert.InDelta(t, d, paris.DistanceMeters(london), 1)
}
