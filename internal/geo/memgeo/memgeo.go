// Package memgeo is a brute-force in-process proximity index used by tests
// and local development. Haversine distance, full scan per search.
package memgeo

import (
	"context"
	"sort"
	"sync"

	"github.com/Abinashmotract/labour-backend-sub000/internal/geo"
	"github.com/Abinashmotract/labour-backend-sub000/internal/models"
)

type Index struct {
	mu     sync.Mutex
	points map[string]map[string]models.Point // namespace -> id -> point
}

func New() *Index {
	return &Index{points: make(map[string]map[string]models.Point)}
}

func (i *Index) Insert(ctx context.Context, namespace, id string, point models.Point) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	ns, ok := i.points[namespace]
	if !ok {
		ns = make(map[string]models.Point)
		i.points[namespace] = ns
	}
	ns[id] = point
	return nil
}

func (i *Index) Remove(ctx context.Context, namespace, id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if ns, ok := i.points[namespace]; ok {
		delete(ns, id)
	}
	return nil
}

func (i *Index) Search(ctx context.Context, namespace string, center models.Point, radiusMeters float64, limit int) ([]geo.Entry, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	var entries []geo.Entry
	for id, point := range i.points[namespace] {
		d := center.DistanceMeters(point)
		if d <= radiusMeters {
			entries = append(entries, geo.Entry{ID: id, DistanceMeters: d})
		}
	}
	sort.Slice(entries, func(a, b int) bool {
		return entries[a].DistanceMeters < entries[b].DistanceMeters
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
