package audit

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"

	"github.com/Abinashmotract/labour-backend-sub000/internal/telemetry"
)

var tracer = telemetry.GetTracer("labour/audit")

// ClickHouseSink appends audit rows to the match_audit and notification_log
// tables.
type ClickHouseSink struct {
	conn   clickhouse.Conn
	logger *zap.Logger
}

func NewClickHouseSink(conn clickhouse.Conn, logger *zap.Logger) *ClickHouseSink {
	return &ClickHouseSink{conn: conn, logger: logger}
}

func (s *ClickHouseSink) RecordMatch(ctx context.Context, row MatchRow) error {
	ctx, span := tracer.Start(ctx, "RecordMatch")
	defer span.End()

	query := `
		INSERT INTO match_audit (
			job_id, contractor_id, labourer_id, record_id, wave,
			distance_meters, matched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if err := s.conn.Exec(ctx, query,
		row.JobID,
		row.ContractorID,
		row.LabourerID,
		row.RecordID,
		row.Wave,
		row.DistanceMeters,
		row.MatchedAt,
	); err != nil {
		span.RecordError(err)
		return fmt.Errorf("insert match audit row: %w", err)
	}
	return nil
}

func (s *ClickHouseSink) RecordDelivery(ctx context.Context, row DeliveryRow) error {
	ctx, span := tracer.Start(ctx, "RecordDelivery")
	defer span.End()

	query := `
		INSERT INTO notification_log (
			recipient, token, subject, title, succeeded, error, sent_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if err := s.conn.Exec(ctx, query,
		row.Recipient,
		row.Token,
		row.Subject,
		row.Title,
		row.Succeeded,
		row.Error,
		row.SentAt,
	); err != nil {
		span.RecordError(err)
		return fmt.Errorf("insert notification log row: %w", err)
	}
	return nil
}
