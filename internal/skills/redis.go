package skills

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/Abinashmotract/labour-backend-sub000/internal/errors"
)

const activeSkillsKey = "skills:active"

// RedisCatalog keeps the active skill set in a Redis SET.
type RedisCatalog struct {
	client *redis.Client
}

func NewRedisCatalog(client *redis.Client) *RedisCatalog {
	return &RedisCatalog{client: client}
}

func (c *RedisCatalog) IsActive(ctx context.Context, skillID string) (bool, error) {
	active, err := c.client.SIsMember(ctx, activeSkillsKey, normalize(skillID)).Result()
	if err != nil {
		return false, errors.Internal("querying skill catalog", err)
	}
	return active, nil
}

func (c *RedisCatalog) ResolveAll(ctx context.Context, skillIDs []string) error {
	return resolveAll(ctx, c, skillIDs)
}

// Activate registers a skill id as active.
func (c *RedisCatalog) Activate(ctx context.Context, skillIDs ...string) error {
	members := make([]interface{}, len(skillIDs))
	for i, id := range skillIDs {
		members[i] = normalize(id)
	}
	if err := c.client.SAdd(ctx, activeSkillsKey, members...).Err(); err != nil {
		return errors.Internal("activating skills", err)
	}
	return nil
}

// Deactivate retires a skill id.
func (c *RedisCatalog) Deactivate(ctx context.Context, skillID string) error {
	if err := c.client.SRem(ctx, activeSkillsKey, normalize(skillID)).Err(); err != nil {
		return errors.Internal("deactivating skill", err)
	}
	return nil
}
