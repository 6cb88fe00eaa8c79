package services

import (
	"context"
	"sync"
	"time"

	"github.com/cppla/commboard/utils"
)

const projectionTTL = time.Hour

// postCache fronts the projection cache. A reader takes a generation before
// its store reads and fills only if no invalidation ran since, so a
// projection read before a committed write is never stored after it.
type postCache struct {
	cache utils.Cache

	mu  sync.RWMutex
	gen uint64
}

func newPostCache(c utils.Cache) *postCache {
	return &postCache{cache: c}
}

func (c *postCache) get(ctx context.Context, key string, dst interface{}) bool {
	return c.cache.GetJSON(ctx, key, dst)
}

func (c *postCache) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// fill stores v under key unless an invalidation happened after gen was taken.
func (c *postCache) fill(ctx context.Context, gen uint64, key string, v interface{}) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.gen != gen {
		return false
	}
	c.cache.SetJSON(ctx, key, v, projectionTTL)
	return true
}

func (c *postCache) invalidate(ctx context.Context, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.cache.Delete(ctx, keys...)
}
