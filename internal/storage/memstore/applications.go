package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/Abinashmotract/labour-backend-sub000/internal/errors"
	"github.com/Abinashmotract/labour-backend-sub000/internal/models"
)

// Applications implements storage.ApplicationStore.
type Applications struct {
	mu    sync.Mutex
	apps  map[string]*models.JobApplication
	pairs map[string]string // (job, labourer) -> application id
}

func NewApplications() *Applications {
	return &Applications{
		apps:  make(map[string]*models.JobApplication),
		pairs: make(map[string]string),
	}
}

func (s *Applications) Insert(ctx context.Context, app *models.JobApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair := pairKey(app.JobID, app.LabourerID)
	if _, ok := s.pairs[pair]; ok {
		return errors.Duplicate("application already exists for this job", nil)
	}

	s.apps[app.ID] = cloneApplication(app)
	s.pairs[pair] = app.ID
	return nil
}

func (s *Applications) Get(ctx context.Context, id string) (*models.JobApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.apps[id]
	if !ok {
		return nil, errors.NotFound("application not found", nil)
	}
	return cloneApplication(app), nil
}

func (s *Applications) Transition(ctx context.Context, id string, from, to models.ApplicationStatus, decidedAt time.Time) (*models.JobApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.apps[id]
	if !ok {
		return nil, errors.NotFound("application not found", nil)
	}
	if app.Status != from {
		return nil, errors.AlreadyFinalized("application status is terminal", nil)
	}

	app.Status = to
	at := decidedAt
	app.DecidedAt = &at
	return cloneApplication(app), nil
}

func (s *Applications) ListByJob(ctx context.Context, jobID string) ([]*models.JobApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.JobApplication
	for _, app := range s.apps {
		if app.JobID == jobID {
			out = append(out, cloneApplication(app))
		}
	}
	return out, nil
}

func (s *Applications) CountByJob(ctx context.Context, jobID string, status models.ApplicationStatus) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, app := range s.apps {
		if app.JobID == jobID && app.Status == status {
			count++
		}
	}
	return count, nil
}
