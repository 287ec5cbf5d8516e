package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Abinashmotract/labour-backend-sub000/internal/clock"
	"github.com/Abinashmotract/labour-backend-sub000/internal/errors"
)

// Tokens implements storage.TokenDirectory over a single hash.
type Tokens struct {
	client *redis.Client
}

func NewTokens(client *redis.Client) *Tokens {
	return &Tokens{client: client}
}

func (s *Tokens) SetToken(ctx context.Context, userID, token string) error {
	if err := s.client.HSet(ctx, tokensKey, userID, token).Err(); err != nil {
		return errors.Internal("storing push token", err)
	}
	return nil
}

func (s *Tokens) Tokens(ctx context.Context, userIDs []string) (map[string]string, error) {
	if len(userIDs) == 0 {
		return map[string]string{}, nil
	}
	values, err := s.client.HMGet(ctx, tokensKey, userIDs...).Result()
	if err != nil {
		return nil, errors.Internal("resolving push tokens", err)
	}

	out := make(map[string]string, len(userIDs))
	for i, value := range values {
		if token, ok := value.(string); ok && token != "" {
			out[userIDs[i]] = token
		}
	}
	return out, nil
}

// Reminders implements storage.ReminderLedger with SET NX EX dedupe keys.
// The TTL only needs to outlive the reminder window, not the application.
type Reminders struct {
	client *redis.Client
	ttl    time.Duration
}

func NewReminders(client *redis.Client, ttl time.Duration) *Reminders {
	return &Reminders{client: client, ttl: ttl}
}

func (s *Reminders) MarkSent(ctx context.Context, applicationID string, day time.Time) (bool, error) {
	key := reminderPrefix + applicationID + ":" + dayKey(clock.Day(day))
	ok, err := s.client.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, errors.Internal("marking reminder sent", err)
	}
	return ok, nil
}
