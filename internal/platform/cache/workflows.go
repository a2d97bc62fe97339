package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"leadflow/internal/platform/models"
)

type WorkflowLister interface {
	ListActiveByTrigger(ctx context.Context, orgID, triggerType string) ([]*models.Workflow, error)
}

type cachedWorkflows struct {
	workflows []*models.Workflow
	cachedAt  time.Time
}

// WorkflowCache keeps dispatch candidates per organization and trigger type for ttl.
// Entries are shared read-only between callers. Errors are never cached.
//
// Each organization has a generation bumped by Invalidate. A fill only lands if the
// generation it started under is still current, so a read that overlaps an admin
// write cannot put the old list back.
type WorkflowCache struct {
	next  WorkflowLister
	store sync.Map // map["org\x00trigger"]*cachedWorkflows
	ttl   time.Duration
	now   func() time.Time

	mu          sync.Mutex
	generations map[string]uint64
}

func NewWorkflowCache(next WorkflowLister, ttl time.Duration) *WorkflowCache {
	return &WorkflowCache{
		next:        next,
		ttl:         ttl,
		now:         time.Now,
		generations: make(map[string]uint64),
	}
}

func (c *WorkflowCache) generation(orgID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[orgID]
}

func cacheKey(orgID, triggerType string) string {
	return orgID + "\x00" + triggerType
}

func (c *WorkflowCache) ListActiveByTrigger(ctx context.Context, orgID, triggerType string) ([]*models.Workflow, error) {
	key := cacheKey(orgID, triggerType)
	if val, ok := c.store.Load(key); ok {
		entry := val.(*cachedWorkflows)
		if c.now().Sub(entry.cachedAt) <= c.ttl {
			return entry.workflows, nil
		}
		c.store.Delete(key)
	}

	gen := c.generation(orgID)
	workflows, err := c.next.ListActiveByTrigger(ctx, orgID, triggerType)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.generations[orgID] == gen {
		c.store.Store(key, &cachedWorkflows{workflows: workflows, cachedAt: c.now()})
	}
	c.mu.Unlock()
	return workflows, nil
}

// Invalidate drops every cached trigger type of one organization.
func (c *WorkflowCache) Invalidate(orgID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generations[orgID]++
	prefix := orgID + "\x00"
	c.store.Range(func(key, _ any) bool {
		if strings.HasPrefix(key.(string), prefix) {
			c.store.Delete(key)
		}
		return true
	})
}
