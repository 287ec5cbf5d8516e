// Package memstore holds mutex-guarded, in-process implementations of the
// storage contracts. It backs the test suite and local development; the
// conditional-update semantics match the redisstore implementations.
package memstore

import (
	"time"

	"github.com/Abinashmotract/labour-backend-sub000/internal/models"
)

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func slotKey(labourerID string, date time.Time) string {
	return labourerID + "|" + dayKey(date)
}

func pairKey(jobID, labourerID string) string {
	return jobID + "|" + labourerID
}

func cloneJob(j *models.JobPosting) *models.JobPosting {
	out := *j
	out.Skills = append([]string(nil), j.Skills...)
	out.AcceptedLabourers = append([]models.AcceptedLabourer(nil), j.AcceptedLabourers...)
	return &out
}

func cloneRecord(r *models.AvailabilityRecord) *models.AvailabilityRecord {
	out := *r
	out.Skills = append([]string(nil), r.Skills...)
	out.MatchedJobs = append([]models.JobMatch(nil), r.MatchedJobs...)
	return &out
}

func cloneApplication(a *models.JobApplication) *models.JobApplication {
	out := *a
	if a.DecidedAt != nil {
		t := *a.DecidedAt
		out.DecidedAt = &t
	}
	return &out
}
