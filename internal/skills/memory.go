package skills

import (
	"context"
	"sync"
)

// MemoryCatalog is the in-process catalog used by tests.
type MemoryCatalog struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewMemoryCatalog(skillIDs ...string) *MemoryCatalog {
	c := &MemoryCatalog{active: make(map[string]struct{})}
	for _, id := range skillIDs {
		c.active[normalize(id)] = struct{}{}
	}
	return c
}

func (c *MemoryCatalog) IsActive(ctx context.Context, skillID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.active[normalize(skillID)]
	return ok, nil
}

func (c *MemoryCatalog) ResolveAll(ctx context.Context, skillIDs []string) error {
	return resolveAll(ctx, c, skillIDs)
}

func (c *MemoryCatalog) Activate(skillIDs ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range skillIDs {
		c.active[normalize(id)] = struct{}{}
	}
}

func (c *MemoryCatalog) Deactivate(skillID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.active, normalize(skillID))
}
