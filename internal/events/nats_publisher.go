package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Abinashmotract/labour-backend-sub000/internal/config"
	"github.com/Abinashmotract/labour-backend-sub000/internal/errors"
	"github.com/Abinashmotract/labour-backend-sub000/internal/telemetry"
)

var tracer = telemetry.GetTracer("labour/events")

type natsPublisher struct {
	conn   *nats.Conn
	logger *zap.Logger
}

func NewPublisher(logger *zap.Logger, config *config.Config) (Publisher, error) {
	opts := []nats.Option{
		nats.Timeout(config.NATSConnTimeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	}

	conn, err := nats.Connect(config.NATSURL, opts...)
	if err != nil {
		return nil, errors.Internal("connecting to NATS", err)
	}

	return &natsPublisher{
		conn:   conn,
		logger: logger,
	}, nil
}

// NewPublisherWithConn wraps an existing connection, leaving its lifecycle
// to the owner.
func NewPublisherWithConn(conn *nats.Conn, logger *zap.Logger) Publisher {
	return &natsPublisher{conn: conn, logger: logger}
}

func (p *natsPublisher) JobCreated(ctx context.Context, event JobCreated) error {
	return p.publish(ctx, SubjectJobCreated, event)
}

func (p *natsPublisher) AvailabilityDeclared(ctx context.Context, event AvailabilityDeclared) error {
	return p.publish(ctx, SubjectAvailabilityDeclared, event)
}

func (p *natsPublisher) ApplicationSubmitted(ctx context.Context, event ApplicationSubmitted) error {
	return p.publish(ctx, SubjectApplicationSubmitted, event)
}

func (p *natsPublisher) ApplicationDecided(ctx context.Context, event ApplicationDecided) error {
	return p.publish(ctx, SubjectApplicationDecided, event)
}

func (p *natsPublisher) publish(ctx context.Context, subject string, event interface{}) error {
	_, span := tracer.Start(ctx, "PublishEvent")
	defer span.End()

	data, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		return errors.Internal("marshaling event", err)
	}

	span.SetAttributes(
		telemetry.String("nats.subject", subject),
		telemetry.Int("message.size", len(data)),
	)

	if err := p.conn.Publish(subject, data); err != nil {
		span.RecordError(err)
		p.logger.Error("failed to publish event",
			zap.String("subject", subject),
			zap.Error(err))
		return errors.Internal("publishing to NATS", err)
	}

	p.logger.Debug("published event", zap.String("subject", subject))
	return nil
}

func (p *natsPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
