package models

import (
	"encoding/json"
	"time"
)

type AvailabilityStatus string

const (
	AvailabilityActive    AvailabilityStatus = "active"
	AvailabilityCancelled AvailabilityStatus = "cancelled"
	AvailabilityExpired   AvailabilityStatus = "expired"
)

// JobMatch is one audit entry recording that a record matched a job.
type JobMatch struct {
	JobID        string    `json:"job_id"`
	ContractorID string    `json:"contractor_id"`
	MatchedAt    time.Time `json:"matched_at"`
}

// AvailabilityRecord is a labourer's declaration for one calendar day. Date
// carries no time-of-day; Skills is a snapshot taken at declaration time.
// An explicit IsAvailable=false record is distinct from no record at all.
type AvailabilityRecord struct {
	ID          string             `json:"id"`
	LabourerID  string             `json:"labourer_id"`
	Date        time.Time          `json:"date"`
	Skills      []string           `json:"skills,omitempty"`
	Location    Point              `json:"location"`
	IsAvailable bool               `json:"is_available"`
	Status      AvailabilityStatus `json:"status"`
	MatchedJobs []JobMatch         `json:"matched_jobs,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func (r AvailabilityRecord) MarshalBinary() ([]byte, error) {
	return json.Marshal(r)
}

func (r *AvailabilityRecord) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, r)
}
