package models

import (
	"encoding/json"
	"time"
)

type ApplicationStatus string

const (
	ApplicationApplied  ApplicationStatus = "applied"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

// Terminal reports whether s permits no further transition.
func (s ApplicationStatus) Terminal() bool {
	return s == ApplicationAccepted || s == ApplicationRejected
}

// JobApplication is one labourer's application to one job. At most one exists
// per (job, labourer) pair, and its status is write-once-terminal.
type JobApplication struct {
	ID          string            `json:"id"`
	JobID       string            `json:"job_id"`
	LabourerID  string            `json:"labourer_id"`
	CoverLetter string            `json:"cover_letter"`
	Status      ApplicationStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	DecidedAt   *time.Time        `json:"decided_at,omitempty"`
}

func (a JobApplication) MarshalBinary() ([]byte, error) {
	return json.Marshal(a)
}

func (a *JobApplication) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, a)
}
