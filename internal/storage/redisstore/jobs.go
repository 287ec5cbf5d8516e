package redisstore

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Abinashmotract/labour-backend-sub000/internal/clock"
	"github.com/Abinashmotract/labour-backend-sub000/internal/errors"
	"github.com/Abinashmotract/labour-backend-sub000/internal/models"
)

// Jobs implements storage.JobStore.
type Jobs struct {
	client *redis.Client
	logger *zap.Logger
}

func NewJobs(client *redis.Client, logger *zap.Logger) *Jobs {
	return &Jobs{client: client, logger: logger}
}

func jobKey(id string) string {
	return jobKeyPrefix + id
}

func (s *Jobs) Insert(ctx context.Context, job *models.JobPosting) error {
	ok, err := s.client.SetNX(ctx, jobKey(job.ID), job, 0).Result()
	if err != nil {
		return errors.Internal("storing job", err)
	}
	if !ok {
		return errors.Duplicate("job already exists", nil)
	}

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, openJobsKey, redis.Z{Score: float64(job.ValidUntil.Unix()), Member: job.ID})
	pipe.SAdd(ctx, jobsByDayPrefix+dayKey(job.ScheduledFor), job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Internal("indexing job", err)
	}
	return nil
}

func (s *Jobs) Get(ctx context.Context, id string) (*models.JobPosting, error) {
	raw, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if isNil(err) {
		return nil, errors.NotFound("job not found", nil)
	}
	if err != nil {
		return nil, errors.Internal("fetching job", err)
	}

	var job models.JobPosting
	if err := job.UnmarshalBinary(raw); err != nil {
		return nil, errors.Internal("decoding job", err)
	}
	return &job, nil
}

func (s *Jobs) Update(ctx context.Context, job *models.JobPosting) error {
	data, err := job.MarshalBinary()
	if err != nil {
		return errors.Internal("encoding job", err)
	}

	raw, err := updateJobScript.Run(ctx, s.client, []string{jobKey(job.ID)}, string(data)).Text()
	if err != nil {
		return mapScriptErr(err, "updating job")
	}
	var updated models.JobPosting
	if err := updated.UnmarshalBinary([]byte(raw)); err != nil {
		return errors.Internal("decoding updated job", err)
	}
	s.reindex(ctx, &updated)
	return nil
}

func (s *Jobs) IncrementFilled(ctx context.Context, jobID, labourerID string, at time.Time) (*models.JobPosting, error) {
	raw, err := incrementFilledScript.Run(ctx, s.client,
		[]string{jobKey(jobID), openJobsKey},
		labourerID, at.UTC().Format(time.RFC3339Nano), jobID,
	).Text()
	if err != nil {
		return nil, mapScriptErr(err, "incrementing filled count")
	}

	var job models.JobPosting
	if err := job.UnmarshalBinary([]byte(raw)); err != nil {
		return nil, errors.Internal("decoding job after increment", err)
	}
	return &job, nil
}

func (s *Jobs) SetActive(ctx context.Context, jobID string, active bool) error {
	flag := "0"
	if active {
		flag = "1"
	}
	raw, err := setJobActiveScript.Run(ctx, s.client, []string{jobKey(jobID)}, flag).Text()
	if err != nil {
		return mapScriptErr(err, "setting job active flag")
	}
	var job models.JobPosting
	if err := job.UnmarshalBinary([]byte(raw)); err != nil {
		return errors.Internal("decoding job after flag change", err)
	}
	s.reindex(ctx, &job)
	return nil
}

func (s *Jobs) ListOpen(ctx context.Context, now time.Time) ([]*models.JobPosting, error) {
	ids, err := s.client.ZRangeByScore(ctx, openJobsKey, &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(now.Unix(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, errors.Internal("querying open jobs index", err)
	}

	jobs, err := s.fetch(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := jobs[:0]
	for _, job := range jobs {
		if job.Open(now) {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Jobs) ListScheduledOn(ctx context.Context, day time.Time) ([]*models.JobPosting, error) {
	ids, err := s.client.SMembers(ctx, jobsByDayPrefix+dayKey(clock.Day(day))).Result()
	if err != nil {
		return nil, errors.Internal("querying scheduled jobs index", err)
	}
	return s.fetch(ctx, ids)
}

func (s *Jobs) RepairFilled(ctx context.Context, jobID string, filled int, accepted []models.AcceptedLabourer) error {
	list, err := jsonArray(accepted)
	if err != nil {
		return errors.Internal("encoding accepted list", err)
	}
	_, err = repairFilledScript.Run(ctx, s.client,
		[]string{jobKey(jobID), openJobsKey},
		filled, list, jobID, time.Now().UTC().Format(time.RFC3339Nano),
	).Result()
	return mapScriptErr(err, "repairing filled count")
}

func (s *Jobs) fetch(ctx context.Context, ids []string) ([]*models.JobPosting, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = jobKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Internal("fetching jobs", err)
	}

	out := make([]*models.JobPosting, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			s.logger.Warn("dangling job index entry", zap.String("job_id", ids[i]))
			continue
		}
		var job models.JobPosting
		if err := job.UnmarshalBinary([]byte(raw)); err != nil {
			s.logger.Warn("undecodable job document", zap.String("job_id", ids[i]), zap.Error(err))
			continue
		}
		out = append(out, &job)
	}
	return out, nil
}

// reindex realigns the open-jobs index with the document. Stale entries are
// tolerated because readers re-check Open().
func (s *Jobs) reindex(ctx context.Context, job *models.JobPosting) {
	var err error
	if job.IsActive && !job.IsFilled() {
		err = s.client.ZAdd(ctx, openJobsKey, redis.Z{
			Score:  float64(job.ValidUntil.Unix()),
			Member: job.ID,
		}).Err()
	} else {
		err = s.client.ZRem(ctx, openJobsKey, job.ID).Err()
	}
	if err != nil {
		s.logger.Warn("failed to reindex job", zap.String("job_id", job.ID), zap.Error(err))
	}
}
