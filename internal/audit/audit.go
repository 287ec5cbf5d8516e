// Package audit is the append-only trail behind matching and delivery.
// Writes are best-effort: a failed append is logged and never surfaces into
// the operation that produced the row.
package audit

import (
	"context"
	"time"
)

// MatchRow records one (job, labourer) match decision.
type MatchRow struct {
	JobID          string
	ContractorID   string
	LabourerID     string
	RecordID       string
	Wave           string
	DistanceMeters float64
	MatchedAt      time.Time
}

// DeliveryRow records one push delivery attempt.
type DeliveryRow struct {
	Recipient string
	Token     string
	Subject   string
	Title     string
	Succeeded bool
	Error     string
	SentAt    time.Time
}

// Match wave labels.
const (
	WaveBroadcast = "broadcast"
	WaveNearby    = "nearby"
	WaveJobOwner  = "job_owner"
)

type Sink interface {
	RecordMatch(ctx context.Context, row MatchRow) error
	RecordDelivery(ctx context.Context, row DeliveryRow) error
}

// Nop discards all rows; used in tests and when no ClickHouse is configured.
type Nop struct{}

func (Nop) RecordMatch(ctx context.Context, row MatchRow) error {
	return nil
}

func (Nop) RecordDelivery(ctx context.Context, row DeliveryRow) error {
	return nil
}
