package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/Abinashmotract/labour-backend-sub000/internal/clock"
	"github.com/Abinashmotract/labour-backend-sub000/internal/errors"
	"github.com/Abinashmotract/labour-backend-sub000/internal/models"
)

// Availability implements storage.AvailabilityStore.
type Availability struct {
	mu      sync.Mutex
	records map[string]*models.AvailabilityRecord
	slots   map[string]string // (labourer, day) -> active record id
}

func NewAvailability() *Availability {
	return &Availability{
		records: make(map[string]*models.AvailabilityRecord),
		slots:   make(map[string]string),
	}
}

func (s *Availability) Upsert(ctx context.Context, record *models.AvailabilityRecord) (bool, *models.AvailabilityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneRecord(record)
	slot := slotKey(record.LabourerID, record.Date)

	if existingID, ok := s.slots[slot]; ok {
		existing := s.records[existingID]
		next.ID = existing.ID
		next.CreatedAt = existing.CreatedAt
		s.records[next.ID] = next
		return false, cloneRecord(next), nil
	}

	s.records[next.ID] = next
	s.slots[slot] = next.ID
	return true, cloneRecord(next), nil
}

func (s *Availability) Get(ctx context.Context, id string) (*models.AvailabilityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return nil, errors.NotFound("availability record not found", nil)
	}
	return cloneRecord(record), nil
}

func (s *Availability) GetActive(ctx context.Context, labourerID string, date time.Time) (*models.AvailabilityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.slots[slotKey(labourerID, date)]
	if !ok {
		return nil, errors.NotFound("no active availability record", nil)
	}
	return cloneRecord(s.records[id]), nil
}

func (s *Availability) List(ctx context.Context, labourerID string, status models.AvailabilityStatus) ([]*models.AvailabilityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.AvailabilityRecord
	for _, record := range s.records {
		if record.LabourerID != labourerID {
			continue
		}
		if status != "" && record.Status != status {
			continue
		}
		out = append(out, cloneRecord(record))
	}
	return out, nil
}

func (s *Availability) Transition(ctx context.Context, id string, from, to models.AvailabilityStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return false, errors.NotFound("availability record not found", nil)
	}
	if record.Status != from {
		return false, nil
	}

	record.Status = to
	if from == models.AvailabilityActive {
		delete(s.slots, slotKey(record.LabourerID, record.Date))
	}
	return true, nil
}

func (s *Availability) ListActiveBefore(ctx context.Context, day time.Time) ([]*models.AvailabilityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := clock.Day(day)
	var out []*models.AvailabilityRecord
	for _, record := range s.records {
		if record.Status == models.AvailabilityActive && record.Date.Before(cutoff) {
			out = append(out, cloneRecord(record))
		}
	}
	return out, nil
}

func (s *Availability) ListAvailableOn(ctx context.Context, day time.Time) ([]*models.AvailabilityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dayKey(clock.Day(day))
	var out []*models.AvailabilityRecord
	for _, record := range s.records {
		if record.Status != models.AvailabilityActive || !record.IsAvailable {
			continue
		}
		if dayKey(record.Date) != key {
			continue
		}
		out = append(out, cloneRecord(record))
	}
	return out, nil
}

func (s *Availability) AppendMatches(ctx context.Context, id string, matches []models.JobMatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return errors.NotFound("availability record not found", nil)
	}

	seen := make(map[string]struct{}, len(record.MatchedJobs))
	for _, m := range record.MatchedJobs {
		seen[m.JobID] = struct{}{}
	}
	for _, m := range matches {
		if _, ok := seen[m.JobID]; ok {
			continue
		}
		record.MatchedJobs = append(record.MatchedJobs, m)
		seen[m.JobID] = struct{}{}
	}
	return nil
}
