package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Abinashmotract/labour-backend-sub000/internal/audit"
	"github.com/Abinashmotract/labour-backend-sub000/internal/clock"
	"github.com/Abinashmotract/labour-backend-sub000/internal/events"
	"github.com/Abinashmotract/labour-backend-sub000/internal/storage"
)

const queueGroup = "application-notifier"

// Dispatcher consumes application lifecycle events and pushes the
// corresponding party a notification: the job owner hears about new
// applications, the labourer hears about decisions.
type Dispatcher struct {
	logger *zap.Logger
	nc     *nats.Conn
	tokens storage.TokenDirectory
	fanout Fanout
	sink   audit.Sink
	clock  clock.Clock
	subs   []*nats.Subscription
}

func NewDispatcher(
	logger *zap.Logger,
	nc *nats.Conn,
	tokens storage.TokenDirectory,
	fanout Fanout,
	sink audit.Sink,
	clk clock.Clock,
) *Dispatcher {
	return &Dispatcher{
		logger: logger,
		nc:     nc,
		tokens: tokens,
		fanout: fanout,
		sink:   sink,
		clock:  clk,
	}
}

func (d *Dispatcher) RegisterSubscriptions(lc fx.Lifecycle) error {
	submittedSub, err := d.nc.QueueSubscribe(events.SubjectApplicationSubmitted, queueGroup, d.handleSubmitted)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", events.SubjectApplicationSubmitted, err)
	}
	d.subs = append(d.subs, submittedSub)

	decidedSub, err := d.nc.QueueSubscribe(events.SubjectApplicationDecided, queueGroup, d.handleDecided)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", events.SubjectApplicationDecided, err)
	}
	d.subs = append(d.subs, decidedSub)

	d.logger.Info("Registered notification subscriptions")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			for _, sub := range d.subs {
				if err := sub.Unsubscribe(); err != nil {
					return err
				}
			}
			return nil
		},
	})

	return nil
}

func (d *Dispatcher) handleSubmitted(msg *nats.Msg) {
	ctx, span := tracer.Start(context.Background(), "handleSubmitted")
	defer span.End()

	var event events.ApplicationSubmitted
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		d.logger.Error("Failed to decode application submitted event",
			zap.Error(err),
			zap.String("subject", msg.Subject),
		)
		return
	}

	note := Notification{
		Title: fmt.Sprintf("New application for %s", event.JobTitle),
		Body:  "A labourer has applied to your job.",
		Data: map[string]string{
			"job_id":         event.Application.JobID,
			"application_id": event.Application.ID,
			"kind":           "application_submitted",
		},
	}
	d.send(ctx, event.JobOwnerID, msg.Subject, note)
}

func (d *Dispatcher) handleDecided(msg *nats.Msg) {
	ctx, span := tracer.Start(context.Background(), "handleDecided")
	defer span.End()

	var event events.ApplicationDecided
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		d.logger.Error("Failed to decode application decided event",
			zap.Error(err),
			zap.String("subject", msg.Subject),
		)
		return
	}

	note := Notification{
		Title: fmt.Sprintf("Update on %s", event.JobTitle),
		Data: map[string]string{
			"job_id":         event.Application.JobID,
			"application_id": event.Application.ID,
			"kind":           "application_decided",
		},
	}
	if event.Accepted {
		note.Body = "You have been accepted. See the job for details."
	} else {
		note.Body = "Your application was not selected this time."
	}
	d.send(ctx, event.Application.LabourerID, msg.Subject, note)
}

func (d *Dispatcher) send(ctx context.Context, userID, subject string, note Notification) {
	tokens, err := d.tokens.Tokens(ctx, []string{userID})
	if err != nil {
		d.logger.Warn("failed to resolve push token",
			zap.String("user_id", userID), zap.Error(err))
		return
	}
	token, ok := tokens[userID]
	if !ok {
		d.logger.Debug("no push token registered", zap.String("user_id", userID))
		return
	}

	sendErr := d.fanout.SendToOne(ctx, token, note)
	if sendErr != nil {
		d.logger.Warn("push delivery failed",
			zap.String("user_id", userID), zap.Error(sendErr))
	}

	row := audit.DeliveryRow{
		Recipient: userID,
		Token:     token,
		Subject:   subject,
		Title:     note.Title,
		Succeeded: sendErr == nil,
		SentAt:    d.clock.Now(),
	}
	if sendErr != nil {
		row.Error = sendErr.Error()
	}
	if err := d.sink.RecordDelivery(ctx, row); err != nil {
		d.logger.Warn("failed to record delivery audit row", zap.Error(err))
	}
}
