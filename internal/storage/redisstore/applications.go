package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Abinashmotract/labour-backend-sub000/internal/errors"
	"github.com/Abinashmotract/labour-backend-sub000/internal/models"
)

// Applications implements storage.ApplicationStore. The (job, labourer)
// uniqueness invariant rides on a SETNX pair guard.
type Applications struct {
	client *redis.Client
	logger *zap.Logger
}

func NewApplications(client *redis.Client, logger *zap.Logger) *Applications {
	return &Applications{client: client, logger: logger}
}

func appKey(id string) string {
	return appKeyPrefix + id
}

func appPairKey(jobID, labourerID string) string {
	return appPairPrefix + jobID + ":" + labourerID
}

func (s *Applications) Insert(ctx context.Context, app *models.JobApplication) error {
	ok, err := s.client.SetNX(ctx, appPairKey(app.JobID, app.LabourerID), app.ID, 0).Result()
	if err != nil {
		return errors.Internal("claiming application slot", err)
	}
	if !ok {
		return errors.Duplicate("application already exists for this job", nil)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, appKey(app.ID), app, 0)
	pipe.SAdd(ctx, appsByJobPrefix+app.JobID, app.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Internal("storing application", err)
	}
	return nil
}

func (s *Applications) Get(ctx context.Context, id string) (*models.JobApplication, error) {
	raw, err := s.client.Get(ctx, appKey(id)).Bytes()
	if isNil(err) {
		return nil, errors.NotFound("application not found", nil)
	}
	if err != nil {
		return nil, errors.Internal("fetching application", err)
	}

	var app models.JobApplication
	if err := app.UnmarshalBinary(raw); err != nil {
		return nil, errors.Internal("decoding application", err)
	}
	return &app, nil
}

func (s *Applications) Transition(ctx context.Context, id string, from, to models.ApplicationStatus, decidedAt time.Time) (*models.JobApplication, error) {
	raw, err := transitionApplicationScript.Run(ctx, s.client,
		[]string{appKey(id)},
		string(from), string(to), decidedAt.UTC().Format(time.RFC3339Nano),
	).Text()
	if err != nil {
		return nil, mapScriptErr(err, "transitioning application")
	}

	var app models.JobApplication
	if err := app.UnmarshalBinary([]byte(raw)); err != nil {
		return nil, errors.Internal("decoding application after transition", err)
	}
	return &app, nil
}

func (s *Applications) ListByJob(ctx context.Context, jobID string) ([]*models.JobApplication, error) {
	ids, err := s.client.SMembers(ctx, appsByJobPrefix+jobID).Result()
	if err != nil {
		return nil, errors.Internal("querying job applications index", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = appKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Internal("fetching applications", err)
	}

	out := make([]*models.JobApplication, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			s.logger.Warn("dangling application index entry", zap.String("application_id", ids[i]))
			continue
		}
		var app models.JobApplication
		if err := app.UnmarshalBinary([]byte(raw)); err != nil {
			s.logger.Warn("undecodable application document", zap.String("application_id", ids[i]), zap.Error(err))
			continue
		}
		out = append(out, &app)
	}
	return out, nil
}

func (s *Applications) CountByJob(ctx context.Context, jobID string, status models.ApplicationStatus) (int, error) {
	apps, err := s.ListByJob(ctx, jobID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, app := range apps {
		if app.Status == status {
			count++
		}
	}
	return count, nil
}
