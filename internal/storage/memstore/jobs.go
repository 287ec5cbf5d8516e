package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Abinashmotract/labour-backend-sub000/internal/clock"
	"github.com/Abinashmotract/labour-backend-sub000/internal/errors"
	"github.com/Abinashmotract/labour-backend-sub000/internal/models"
)

// Jobs implements storage.JobStore. The store-wide mutex makes
// IncrementFilled the critical section the capacity invariant needs.
type Jobs struct {
	mu   sync.Mutex
	jobs map[string]*models.JobPosting
}

func NewJobs() *Jobs {
	return &Jobs{jobs: make(map[string]*models.JobPosting)}
}

func (s *Jobs) Insert(ctx context.Context, job *models.JobPosting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return errors.Duplicate("job already exists", nil)
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (s *Jobs) Get(ctx context.Context, id string) (*models.JobPosting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, errors.NotFound("job not found", nil)
	}
	return cloneJob(job), nil
}

func (s *Jobs) Update(ctx context.Context, job *models.JobPosting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.jobs[job.ID]
	if !ok {
		return errors.NotFound("job not found", nil)
	}

	next := cloneJob(job)
	// Counter fields never move through Update.
	next.LabourersFilled = current.LabourersFilled
	next.AcceptedLabourers = append([]models.AcceptedLabourer(nil), current.AcceptedLabourers...)
	s.jobs[job.ID] = next
	return nil
}

func (s *Jobs) IncrementFilled(ctx context.Context, jobID, labourerID string, at time.Time) (*models.JobPosting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, errors.NotFound("job not found", nil)
	}
	if job.LabourersFilled >= job.LabourersRequired {
		return nil, errors.CapacityExceeded("job already at capacity", nil)
	}

	job.LabourersFilled++
	job.AcceptedLabourers = append(job.AcceptedLabourers, models.AcceptedLabourer{
		LabourerID: labourerID,
		AcceptedAt: at,
	})
	job.UpdatedAt = at
	return cloneJob(job), nil
}

func (s *Jobs) SetActive(ctx context.Context, jobID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return errors.NotFound("job not found", nil)
	}
	job.IsActive = active
	return nil
}

func (s *Jobs) ListOpen(ctx context.Context, now time.Time) ([]*models.JobPosting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.JobPosting
	for _, job := range s.jobs {
		if job.Open(now) {
			out = append(out, cloneJob(job))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Jobs) ListScheduledOn(ctx context.Context, day time.Time) ([]*models.JobPosting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dayKey(clock.Day(day))
	var out []*models.JobPosting
	for _, job := range s.jobs {
		if dayKey(clock.Day(job.ScheduledFor)) == key {
			out = append(out, cloneJob(job))
		}
	}
	return out, nil
}

func (s *Jobs) RepairFilled(ctx context.Context, jobID string, filled int, accepted []models.AcceptedLabourer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return errors.NotFound("job not found", nil)
	}
	job.LabourersFilled = filled
	job.AcceptedLabourers = append([]models.AcceptedLabourer(nil), accepted...)
	return nil
}
