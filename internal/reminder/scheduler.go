// Package reminder runs the scheduled sweeps: evening work reminders for
// accepted applications and the nightly expiry of stale availability. Sends
// are at-least-once; the ledger keeps re-runs from repeating a reminder.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Abinashmotract/labour-backend-sub000/internal/audit"
	"github.com/Abinashmotract/labour-backend-sub000/internal/availability"
	"github.com/Abinashmotract/labour-backend-sub000/internal/clock"
	"github.com/Abinashmotract/labour-backend-sub000/internal/config"
	"github.com/Abinashmotract/labour-backend-sub000/internal/models"
	"github.com/Abinashmotract/labour-backend-sub000/internal/notify"
	"github.com/Abinashmotract/labour-backend-sub000/internal/storage"
	"github.com/Abinashmotract/labour-backend-sub000/internal/telemetry"
)

var tracer = telemetry.GetTracer("labour/reminder")

const reminderSubject = "reminder"

type Scheduler struct {
	jobs         storage.JobStore
	applications storage.ApplicationStore
	tokens       storage.TokenDirectory
	ledger       storage.ReminderLedger
	availability *availability.Registry
	fanout       notify.Fanout
	sink         audit.Sink
	clock        clock.Clock
	logger       *zap.Logger
	cron         *cron.Cron
}

func NewScheduler(
	jobs storage.JobStore,
	applications storage.ApplicationStore,
	tokens storage.TokenDirectory,
	ledger storage.ReminderLedger,
	availabilityRegistry *availability.Registry,
	fanout notify.Fanout,
	sink audit.Sink,
	clk clock.Clock,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		jobs:         jobs,
		applications: applications,
		tokens:       tokens,
		ledger:       ledger,
		availability: availabilityRegistry,
		fanout:       fanout,
		sink:         sink,
		clock:        clk,
		logger:       logger,
	}
}

// Register wires the cron entries into the application lifecycle.
func (s *Scheduler) Register(lc fx.Lifecycle, config *config.Config) error {
	s.cron = cron.New(cron.WithSeconds())

	if _, err := s.cron.AddFunc(config.ReminderCronSpec, func() {
		if err := s.RunOnce(context.Background()); err != nil {
			s.logger.Error("reminder sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule reminder sweep: %w", err)
	}

	if _, err := s.cron.AddFunc(config.ExpiryCronSpec, func() {
		expired, err := s.availability.Sweep(context.Background(), s.clock.Now())
		if err != nil {
			s.logger.Error("availability expiry sweep failed", zap.Error(err))
			return
		}
		s.logger.Info("availability expiry sweep finished", zap.Int("expired", expired))
	}); err != nil {
		return fmt.Errorf("schedule expiry sweep: %w", err)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.cron.Start()
			s.logger.Info("Started reminder scheduler",
				zap.String("reminder_spec", config.ReminderCronSpec),
				zap.String("expiry_spec", config.ExpiryCronSpec))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopped := s.cron.Stop()
			select {
			case <-stopped.Done():
			case <-ctx.Done():
			}
			return nil
		},
	})

	return nil
}

// RunOnce sends work reminders for every job scheduled tomorrow: one to each
// accepted labourer and one to the contractor. The ledger makes a repeated
// run on the same day a no-op.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "ReminderSweep")
	defer span.End()

	workDay := clock.Tomorrow(s.clock)
	span.SetAttributes(telemetry.String("work_day", workDay.Format("2006-01-02")))

	jobs, err := s.jobs.ListScheduledOn(ctx, workDay)
	if err != nil {
		return err
	}

	sent := 0
	for _, job := range jobs {
		if !job.IsActive {
			continue
		}
		n, err := s.remindForJob(ctx, job, workDay)
		if err != nil {
			s.logger.Error("failed to send reminders for job",
				zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		sent += n
	}

	s.logger.Info("reminder sweep finished",
		zap.Int("jobs", len(jobs)), zap.Int("reminders", sent))
	span.SetAttributes(telemetry.Int("reminders.sent", sent))
	return nil
}

func (s *Scheduler) remindForJob(ctx context.Context, job *models.JobPosting, workDay time.Time) (int, error) {
	apps, err := s.applications.ListByJob(ctx, job.ID)
	if err != nil {
		return 0, err
	}

	sent := 0
	accepted := 0
	for _, app := range apps {
		if app.Status != models.ApplicationAccepted {
			continue
		}
		accepted++

		first, err := s.ledger.MarkSent(ctx, app.ID, workDay)
		if err != nil {
			s.logger.Warn("reminder ledger write failed",
				zap.String("application_id", app.ID), zap.Error(err))
			continue
		}
		if !first {
			continue
		}

		note := notify.Notification{
			Title: fmt.Sprintf("Work tomorrow: %s", job.Title),
			Body:  fmt.Sprintf("You are expected at %s on %s.", job.Address, workDay.Format("Mon, 2 Jan")),
			Data: map[string]string{
				"job_id":         job.ID,
				"application_id": app.ID,
				"kind":           "work_reminder",
			},
		}
		if s.push(ctx, app.LabourerID, note) {
			sent++
		}
	}

	if accepted == 0 {
		return sent, nil
	}

	// One contractor reminder per job, keyed through the same ledger.
	first, err := s.ledger.MarkSent(ctx, "job:"+job.ID, workDay)
	if err != nil {
		s.logger.Warn("reminder ledger write failed",
			zap.String("job_id", job.ID), zap.Error(err))
		return sent, nil
	}
	if !first {
		return sent, nil
	}

	note := notify.Notification{
		Title: fmt.Sprintf("Your job runs tomorrow: %s", job.Title),
		Body:  fmt.Sprintf("%d accepted labourer(s) are expected on %s.", accepted, workDay.Format("Mon, 2 Jan")),
		Data:  map[string]string{"job_id": job.ID, "kind": "work_reminder"},
	}
	if s.push(ctx, job.ContractorID, note) {
		sent++
	}
	return sent, nil
}

// push resolves the user's token and sends; it reports whether a send went
// out and logs the delivery outcome.
func (s *Scheduler) push(ctx context.Context, userID string, note notify.Notification) bool {
	tokens, err := s.tokens.Tokens(ctx, []string{userID})
	if err != nil {
		s.logger.Warn("failed to resolve push token",
			zap.String("user_id", userID), zap.Error(err))
		return false
	}
	token, ok := tokens[userID]
	if !ok {
		return false
	}

	sendErr := s.fanout.SendToOne(ctx, token, note)
	if sendErr != nil {
		s.logger.Warn("reminder delivery failed",
			zap.String("user_id", userID), zap.Error(sendErr))
	}

	row := audit.DeliveryRow{
		Recipient: userID,
		Token:     token,
		Subject:   reminderSubject,
		Title:     note.Title,
		Succeeded: sendErr == nil,
		SentAt:    s.clock.Now(),
	}
	if sendErr != nil {
		row.Error = sendErr.Error()
	}
	if err := s.sink.RecordDelivery(ctx, row); err != nil {
		s.logger.Warn("failed to record delivery audit row", zap.Error(err))
	}
	return sendErr == nil
}
