// Package geo defines the proximity index the matching engine queries. The
// contract is radius cutoff plus nearest-first ordering; the backing
// structure is an implementation detail.
package geo

import (
	"context"
	"time"

	"github.com/Abinashmotract/labour-backend-sub000/internal/models"
)

// Entry is one indexed entity within a search radius.
type Entry struct {
	ID             string
	DistanceMeters float64
}

// Index stores entity locations in named namespaces and answers
// within-radius queries ordered nearest first.
type Index interface {
	Insert(ctx context.Context, namespace, id string, point models.Point) error

	Remove(ctx context.Context, namespace, id string) error

	// Search returns entries within radiusMeters of center, nearest first,
	// capped at limit (0 means no cap).
	Search(ctx context.Context, namespace string, center models.Point, radiusMeters float64, limit int) ([]Entry, error)
}

// JobsNamespace indexes job posting locations.
const JobsNamespace = "jobs"

// AvailabilityNamespace returns the per-day namespace for availability
// record locations. Scoping by day keeps a job's search confined to
// labourers available on its work day.
func AvailabilityNamespace(day time.Time) string {
	return "avail:" + day.UTC().Format("2006-01-02")
}
