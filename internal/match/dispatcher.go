// Package match computes which labourers hear about which jobs. It consumes
// the core's typed events and fans candidate sets out to the notification
// boundary; a matching or delivery failure never reaches back into the
// mutation that triggered it.
package match

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Abinashmotract/labour-backend-sub000/internal/audit"
	"github.com/Abinashmotract/labour-backend-sub000/internal/clock"
	"github.com/Abinashmotract/labour-backend-sub000/internal/geo"
	"github.com/Abinashmotract/labour-backend-sub000/internal/models"
	"github.com/Abinashmotract/labour-backend-sub000/internal/notify"
	"github.com/Abinashmotract/labour-backend-sub000/internal/skills"
	"github.com/Abinashmotract/labour-backend-sub000/internal/storage"
	"github.com/Abinashmotract/labour-backend-sub000/internal/telemetry"
)

var tracer = telemetry.GetTracer("labour/match")

type Dispatcher struct {
	jobs         storage.JobStore
	availability storage.AvailabilityStore
	geoIndex     geo.Index
	tokens       storage.TokenDirectory
	fanout       notify.Fanout
	sink         audit.Sink
	clock        clock.Clock
	logger       *zap.Logger
	queryLimit   int
}

func NewDispatcher(
	jobStore storage.JobStore,
	availabilityStore storage.AvailabilityStore,
	geoIndex geo.Index,
	tokens storage.TokenDirectory,
	fanout notify.Fanout,
	sink audit.Sink,
	clk clock.Clock,
	logger *zap.Logger,
	queryLimit int,
) *Dispatcher {
	if queryLimit <= 0 {
		queryLimit = 500
	}
	return &Dispatcher{
		jobs:         jobStore,
		availability: availabilityStore,
		geoIndex:     geoIndex,
		tokens:       tokens,
		fanout:       fanout,
		sink:         sink,
		clock:        clk,
		logger:       logger,
		queryLimit:   queryLimit,
	}
}

// candidate ties a labourer to the availability record that qualified them.
type candidate struct {
	record         *models.AvailabilityRecord
	distanceMeters float64
}

// OnNewJob notifies labourers about a freshly created job in two
// independent waves: a broadcast to every skill-matching labourer available
// on the job's day, and a distance-ranked message to those within the job's
// radius. A failure in one wave never blocks the other.
func (d *Dispatcher) OnNewJob(ctx context.Context, job *models.JobPosting) {
	ctx, span := tracer.Start(ctx, "OnNewJob")
	defer span.End()
	span.SetAttributes(telemetry.String("job.id", job.ID))

	if err := d.broadcastWave(ctx, job); err != nil {
		d.logger.Error("broadcast wave failed",
			zap.String("job_id", job.ID), zap.Error(err))
	}
	if err := d.nearbyWave(ctx, job); err != nil {
		d.logger.Error("nearby wave failed",
			zap.String("job_id", job.ID), zap.Error(err))
	}
}

func (d *Dispatcher) broadcastWave(ctx context.Context, job *models.JobPosting) error {
	records, err := d.availability.ListAvailableOn(ctx, job.ScheduledFor)
	if err != nil {
		return err
	}

	byLabourer := make(map[string]candidate)
	for _, record := range records {
		if !skills.Intersects(job.Skills, record.Skills) {
			continue
		}
		if _, ok := byLabourer[record.LabourerID]; !ok {
			byLabourer[record.LabourerID] = candidate{record: record}
		}
	}
	if len(byLabourer) == 0 {
		return nil
	}

	note := notify.Notification{
		Title: fmt.Sprintf("New job: %s", job.Title),
		Body:  fmt.Sprintf("Labourers are needed on %s near %s.", job.ScheduledFor.Format("Mon, 2 Jan"), job.Address),
		Data:  map[string]string{"job_id": job.ID, "kind": "job_broadcast"},
	}
	d.deliverWave(ctx, job, byLabourer, note, audit.WaveBroadcast)
	return nil
}

func (d *Dispatcher) nearbyWave(ctx context.Context, job *models.JobPosting) error {
	namespace := geo.AvailabilityNamespace(job.ScheduledFor)
	entries, err := d.geoIndex.Search(ctx, namespace, job.Location, job.RadiusMeters, d.queryLimit)
	if err != nil {
		return err
	}

	byLabourer := make(map[string]candidate)
	for _, entry := range entries {
		record, err := d.availability.Get(ctx, entry.ID)
		if err != nil {
			d.logger.Warn("failed to load availability record for geo hit",
				zap.String("record_id", entry.ID), zap.Error(err))
			continue
		}
		if record.Status != models.AvailabilityActive || !record.IsAvailable {
			continue
		}
		if !skills.Intersects(job.Skills, record.Skills) {
			continue
		}
		// Entries arrive nearest first; keep the closest per labourer.
		if _, ok := byLabourer[record.LabourerID]; !ok {
			byLabourer[record.LabourerID] = candidate{record: record, distanceMeters: entry.DistanceMeters}
		}
	}
	if len(byLabourer) == 0 {
		return nil
	}

	for labourerID, cand := range byLabourer {
		note := notify.Notification{
			Title: fmt.Sprintf("Job near you: %s", job.Title),
			Body: fmt.Sprintf("A job about %.0f km away needs labourers on %s.",
				cand.distanceMeters/1000, job.ScheduledFor.Format("Mon, 2 Jan")),
			Data: map[string]string{"job_id": job.ID, "kind": "job_nearby"},
		}
		d.deliverWave(ctx, job, map[string]candidate{labourerID: cand}, note, audit.WaveNearby)
	}
	return nil
}

func (d *Dispatcher) deliverWave(ctx context.Context, job *models.JobPosting, candidates map[string]candidate, note notify.Notification, wave string) {
	now := d.clock.Now()
	match := models.JobMatch{JobID: job.ID, ContractorID: job.ContractorID, MatchedAt: now}

	labourerIDs := make([]string, 0, len(candidates))
	for id, cand := range candidates {
		labourerIDs = append(labourerIDs, id)
		if err := d.availability.AppendMatches(ctx, cand.record.ID, []models.JobMatch{match}); err != nil {
			d.logger.Warn("failed to append match audit entry",
				zap.String("record_id", cand.record.ID), zap.Error(err))
		}
		if err := d.sink.RecordMatch(ctx, audit.MatchRow{
			JobID:          job.ID,
			ContractorID:   job.ContractorID,
			LabourerID:     id,
			RecordID:       cand.record.ID,
			Wave:           wave,
			DistanceMeters: cand.distanceMeters,
			MatchedAt:      now,
		}); err != nil {
			d.logger.Warn("failed to record match audit row", zap.Error(err))
		}
	}

	tokens, err := d.tokens.Tokens(ctx, labourerIDs)
	if err != nil {
		d.logger.Warn("failed to resolve labourer tokens",
			zap.String("job_id", job.ID), zap.Error(err))
		return
	}

	tokenList := make([]string, 0, len(tokens))
	tokenOwner := make(map[string]string, len(tokens))
	for labourerID, token := range tokens {
		tokenList = append(tokenList, token)
		tokenOwner[token] = labourerID
	}

	deliveries := d.fanout.SendToMany(ctx, tokenList, note)
	for _, delivery := range deliveries {
		d.recordDelivery(ctx, tokenOwner[delivery.Token], delivery, wave, note.Title)
	}
	d.logger.Info("match wave delivered",
		zap.String("job_id", job.ID),
		zap.String("wave", wave),
		zap.Int("candidates", len(candidates)),
		zap.Int("deliveries", len(deliveries)))
}

// OnNewAvailability notifies contractors whose open jobs match a freshly
// declared availability record.
func (d *Dispatcher) OnNewAvailability(ctx context.Context, record *models.AvailabilityRecord) {
	ctx, span := tracer.Start(ctx, "OnNewAvailability")
	defer span.End()
	span.SetAttributes(telemetry.String("availability.record_id", record.ID))

	now := d.clock.Now()
	openJobs, err := d.jobs.ListOpen(ctx, now)
	if err != nil {
		d.logger.Error("failed to list open jobs for availability match",
			zap.String("record_id", record.ID), zap.Error(err))
		return
	}

	var matches []models.JobMatch
	for _, job := range openJobs {
		if !clock.Day(job.ScheduledFor).Equal(clock.Day(record.Date)) {
			continue
		}
		if !skills.Intersects(job.Skills, record.Skills) {
			continue
		}
		distance := record.Location.DistanceMeters(job.Location)
		if distance > job.RadiusMeters {
			continue
		}

		matches = append(matches, models.JobMatch{
			JobID:        job.ID,
			ContractorID: job.ContractorID,
			MatchedAt:    now,
		})
		d.notifyContractor(ctx, job, record, distance)
	}

	if len(matches) == 0 {
		return
	}
	if err := d.availability.AppendMatches(ctx, record.ID, matches); err != nil {
		d.logger.Warn("failed to append match audit entries",
			zap.String("record_id", record.ID), zap.Error(err))
	}
	d.logger.Info("availability matched against open jobs",
		zap.String("record_id", record.ID),
		zap.Int("matches", len(matches)))
}

func (d *Dispatcher) notifyContractor(ctx context.Context, job *models.JobPosting, record *models.AvailabilityRecord, distance float64) {
	now := d.clock.Now()
	if err := d.sink.RecordMatch(ctx, audit.MatchRow{
		JobID:          job.ID,
		ContractorID:   job.ContractorID,
		LabourerID:     record.LabourerID,
		RecordID:       record.ID,
		Wave:           audit.WaveJobOwner,
		DistanceMeters: distance,
		MatchedAt:      now,
	}); err != nil {
		d.logger.Warn("failed to record match audit row", zap.Error(err))
	}

	tokens, err := d.tokens.Tokens(ctx, []string{job.ContractorID})
	if err != nil {
		d.logger.Warn("failed to resolve contractor token",
			zap.String("contractor_id", job.ContractorID), zap.Error(err))
		return
	}
	token, ok := tokens[job.ContractorID]
	if !ok {
		return
	}

	note := notify.Notification{
		Title: fmt.Sprintf("Labourer available for %s", job.Title),
		Body: fmt.Sprintf("A labourer about %.0f km from the site is available on %s.",
			distance/1000, clock.Day(record.Date).Format("Mon, 2 Jan")),
		Data: map[string]string{"job_id": job.ID, "record_id": record.ID, "kind": "availability_match"},
	}
	err = d.fanout.SendToOne(ctx, token, note)
	d.recordDelivery(ctx, job.ContractorID, notify.Delivery{Token: token, Err: err}, audit.WaveJobOwner, note.Title)
}

func (d *Dispatcher) recordDelivery(ctx context.Context, recipient string, delivery notify.Delivery, subject, title string) {
	row := audit.DeliveryRow{
		Recipient: recipient,
		Token:     delivery.Token,
		Subject:   subject,
		Title:     title,
		Succeeded: delivery.Err == nil,
		SentAt:    d.clock.Now(),
	}
	if delivery.Err != nil {
		row.Error = delivery.Err.Error()
	}
	if err := d.sink.RecordDelivery(ctx, row); err != nil {
		d.logger.Warn("failed to record delivery audit row", zap.Error(err))
	}
}
