package models

import (
	"encoding/json"
	"time"
)

// AcceptedLabourer is one entry in a job's append-only accepted list.
type AcceptedLabourer struct {
	LabourerID string    `json:"labourer_id"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// JobPosting is a contractor's day-labour posting. The filled counter only
// ever moves through the store's conditional increment, never through a blind
// field write.
type JobPosting struct {
	ID                string             `json:"id"`
	ContractorID      string             `json:"contractor_id"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	Address           string             `json:"address"`
	Location          Point              `json:"location"`
	Skills            []string           `json:"skills,omitempty"`
	LabourersRequired int                `json:"labourers_required"`
	LabourersFilled   int                `json:"labourers_filled"`
	AcceptedLabourers []AcceptedLabourer `json:"accepted_labourers,omitempty"`
	ScheduledFor      time.Time          `json:"scheduled_for"`
	ValidUntil        time.Time          `json:"valid_until"`
	RadiusMeters      float64            `json:"radius_meters"`
	IsActive          bool               `json:"is_active"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// IsFilled reports whether the job has reached capacity.
func (j *JobPosting) IsFilled() bool {
	return j.LabourersFilled >= j.LabourersRequired
}

// Open reports whether the job can still take applications at the given time.
func (j *JobPosting) Open(now time.Time) bool {
	return j.IsActive && !j.IsFilled() && j.ValidUntil.After(now)
}

func (j JobPosting) MarshalBinary() ([]byte, error) {
	return json.Marshal(j)
}

func (j *JobPosting) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, j)
}
