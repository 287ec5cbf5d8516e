package match

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Abinashmotract/labour-backend-sub000/internal/events"
)

const queueGroup = "match-dispatcher"

// Handler consumes job and availability events off the queue and hands them
// to the dispatcher. Malformed messages are dropped with a log line; the
// queue group shares the subject load across instances.
type Handler struct {
	logger     *zap.Logger
	nc         *nats.Conn
	dispatcher *Dispatcher
	subs       []*nats.Subscription
}

func NewHandler(logger *zap.Logger, nc *nats.Conn, dispatcher *Dispatcher) *Handler {
	return &Handler{
		logger:     logger,
		nc:         nc,
		dispatcher: dispatcher,
	}
}

func (h *Handler) RegisterSubscriptions(lc fx.Lifecycle) error {
	jobSub, err := h.nc.QueueSubscribe(events.SubjectJobCreated, queueGroup, h.handleJobCreated)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", events.SubjectJobCreated, err)
	}
	h.subs = append(h.subs, jobSub)

	availSub, err := h.nc.QueueSubscribe(events.SubjectAvailabilityDeclared, queueGroup, h.handleAvailabilityDeclared)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", events.SubjectAvailabilityDeclared, err)
	}
	h.subs = append(h.subs, availSub)

	h.logger.Info("Registered match subscriptions")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			for _, sub := range h.subs {
				if err := sub.Unsubscribe(); err != nil {
					return err
				}
			}
			return nil
		},
	})

	return nil
}

func (h *Handler) handleJobCreated(msg *nats.Msg) {
	ctx, span := tracer.Start(context.Background(), "handleJobCreated")
	defer span.End()

	var event events.JobCreated
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		h.logger.Error("Failed to decode job created event",
			zap.Error(err),
			zap.String("subject", msg.Subject),
		)
		return
	}

	h.dispatcher.OnNewJob(ctx, &event.Job)
}

func (h *Handler) handleAvailabilityDeclared(msg *nats.Msg) {
	ctx, span := tracer.Start(context.Background(), "handleAvailabilityDeclared")
	defer span.End()

	var event events.AvailabilityDeclared
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		h.logger.Error("Failed to decode availability event",
			zap.Error(err),
			zap.String("subject", msg.Subject),
		)
		return
	}

	h.dispatcher.OnNewAvailability(ctx, &event.Record)
}
