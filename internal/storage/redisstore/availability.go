package redisstore

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Abinashmotract/labour-backend-sub000/internal/clock"
	"github.com/Abinashmotract/labour-backend-sub000/internal/errors"
	"github.com/Abinashmotract/labour-backend-sub000/internal/models"
)

// Availability implements storage.AvailabilityStore. The active record for a
// (labourer, day) slot lives under a slot key; every record, whatever its
// status, also lives under its id. The upsert script keeps the two aligned.
type Availability struct {
	client *redis.Client
	logger *zap.Logger
}

func NewAvailability(client *redis.Client, logger *zap.Logger) *Availability {
	return &Availability{client: client, logger: logger}
}

func availRecKey(id string) string {
	return availRecPrefix + id
}

func availSlotKey(labourerID string, date time.Time) string {
	return availSlotPrefix + labourerID + ":" + dayKey(date)
}

func (s *Availability) Upsert(ctx context.Context, record *models.AvailabilityRecord) (bool, *models.AvailabilityRecord, error) {
	data, err := record.MarshalBinary()
	if err != nil {
		return false, nil, errors.Internal("encoding availability record", err)
	}

	res, err := upsertAvailabilityScript.Run(ctx, s.client,
		[]string{
			availSlotKey(record.LabourerID, record.Date),
			availByDateKey,
			availByLabPrefix + record.LabourerID,
		},
		string(data), clock.Day(record.Date).Unix(), availRecPrefix,
	).Slice()
	if err != nil {
		return false, nil, mapScriptErr(err, "upserting availability record")
	}

	created, _ := res[0].(int64)
	raw, _ := res[1].(string)
	var updated models.AvailabilityRecord
	if err := updated.UnmarshalBinary([]byte(raw)); err != nil {
		return false, nil, errors.Internal("decoding upserted record", err)
	}
	return created == 1, &updated, nil
}

func (s *Availability) Get(ctx context.Context, id string) (*models.AvailabilityRecord, error) {
	raw, err := s.client.Get(ctx, availRecKey(id)).Bytes()
	if isNil(err) {
		return nil, errors.NotFound("availability record not found", nil)
	}
	if err != nil {
		return nil, errors.Internal("fetching availability record", err)
	}

	var record models.AvailabilityRecord
	if err := record.UnmarshalBinary(raw); err != nil {
		return nil, errors.Internal("decoding availability record", err)
	}
	return &record, nil
}

func (s *Availability) GetActive(ctx context.Context, labourerID string, date time.Time) (*models.AvailabilityRecord, error) {
	raw, err := s.client.Get(ctx, availSlotKey(labourerID, date)).Bytes()
	if isNil(err) {
		return nil, errors.NotFound("no active availability record", nil)
	}
	if err != nil {
		return nil, errors.Internal("fetching availability slot", err)
	}

	var record models.AvailabilityRecord
	if err := record.UnmarshalBinary(raw); err != nil {
		return nil, errors.Internal("decoding availability slot", err)
	}
	return &record, nil
}

func (s *Availability) List(ctx context.Context, labourerID string, status models.AvailabilityStatus) ([]*models.AvailabilityRecord, error) {
	ids, err := s.client.SMembers(ctx, availByLabPrefix+labourerID).Result()
	if err != nil {
		return nil, errors.Internal("querying labourer availability index", err)
	}

	records, err := s.fetch(ctx, ids)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return records, nil
	}

	out := records[:0]
	for _, record := range records {
		if record.Status == status {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *Availability) Transition(ctx context.Context, id string, from, to models.AvailabilityStatus) (bool, error) {
	res, err := transitionAvailabilityScript.Run(ctx, s.client,
		[]string{availRecKey(id), availByDateKey},
		string(from), string(to), id, availSlotPrefix,
	).Slice()
	if err != nil {
		return false, mapScriptErr(err, "transitioning availability record")
	}
	changed, _ := res[0].(int64)
	return changed == 1, nil
}

func (s *Availability) ListActiveBefore(ctx context.Context, day time.Time) ([]*models.AvailabilityRecord, error) {
	cutoff := clock.Day(day).Unix()
	ids, err := s.client.ZRangeByScore(ctx, availByDateKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff, 10),
	}).Result()
	if err != nil {
		return nil, errors.Internal("querying availability date index", err)
	}

	records, err := s.fetch(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := records[:0]
	for _, record := range records {
		if record.Status == models.AvailabilityActive {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *Availability) ListAvailableOn(ctx context.Context, day time.Time) ([]*models.AvailabilityRecord, error) {
	score := strconv.FormatInt(clock.Day(day).Unix(), 10)
	ids, err := s.client.ZRangeByScore(ctx, availByDateKey, &redis.ZRangeBy{
		Min: score,
		Max: score,
	}).Result()
	if err != nil {
		return nil, errors.Internal("querying availability date index", err)
	}

	records, err := s.fetch(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := records[:0]
	for _, record := range records {
		if record.Status == models.AvailabilityActive && record.IsAvailable {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *Availability) AppendMatches(ctx context.Context, id string, matches []models.JobMatch) error {
	list, err := jsonArray(matches)
	if err != nil {
		return errors.Internal("encoding match list", err)
	}
	_, err = appendMatchesScript.Run(ctx, s.client,
		[]string{availRecKey(id), availByDateKey},
		list, availSlotPrefix,
	).Result()
	return mapScriptErr(err, "appending match audit entries")
}

func (s *Availability) fetch(ctx context.Context, ids []string) ([]*models.AvailabilityRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = availRecKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Internal("fetching availability records", err)
	}

	out := make([]*models.AvailabilityRecord, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			s.logger.Warn("dangling availability index entry", zap.String("record_id", ids[i]))
			continue
		}
		var record models.AvailabilityRecord
		if err := record.UnmarshalBinary([]byte(raw)); err != nil {
			s.logger.Warn("undecodable availability document", zap.String("record_id", ids[i]), zap.Error(err))
			continue
		}
		out = append(out, &record)
	}
	return out, nil
}
