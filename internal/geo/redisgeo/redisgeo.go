// Package redisgeo implements the proximity index on Redis geospatial
// commands (GEOADD / GEOSEARCH).
package redisgeo

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/Abinashmotract/labour-backend-sub000/internal/errors"
	"github.com/Abinashmotract/labour-backend-sub000/internal/geo"
	"github.com/Abinashmotract/labour-backend-sub000/internal/models"
)

const keyPrefix = "geo:"

type Index struct {
	client *redis.Client
}

func New(client *redis.Client) *Index {
	return &Index{client: client}
}

func (i *Index) Insert(ctx context.Context, namespace, id string, point models.Point) error {
	err := i.client.GeoAdd(ctx, keyPrefix+namespace, &redis.GeoLocation{
		Name:      id,
		Longitude: point.Lon,
		Latitude:  point.Lat,
	}).Err()
	if err != nil {
		return errors.Internal("indexing location", err)
	}
	return nil
}

func (i *Index) Remove(ctx context.Context, namespace, id string) error {
	// Geo sets are plain sorted sets underneath.
	if err := i.client.ZRem(ctx, keyPrefix+namespace, id).Err(); err != nil {
		return errors.Internal("removing location", err)
	}
	return nil
}

func (i *Index) Search(ctx context.Context, namespace string, center models.Point, radiusMeters float64, limit int) ([]geo.Entry, error) {
	locations, err := i.client.GeoSearchLocation(ctx, keyPrefix+namespace, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  center.Lon,
			Latitude:   center.Lat,
			Radius:     radiusMeters,
			RadiusUnit: "m",
			Sort:       "ASC",
			Count:      limit,
		},
		WithDist: true,
	}).Result()
	if err != nil {
		return nil, errors.Internal("searching locations", err)
	}

	entries := make([]geo.Entry, 0, len(locations))
	for _, loc := range locations {
		entries = append(entries, geo.Entry{
			ID:             loc.Name,
			DistanceMeters: loc.Dist,
		})
	}
	return entries, nil
}
