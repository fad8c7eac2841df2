package repository

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/scholardash/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// Cache lookup results reported to metrics.
const (
	lookupHit    = "hit"
	lookupMiss   = "miss"
	lookupShared = "shared"
)

// TableCache holds every loaded table for the lifetime of the process, keyed
// by resolved file path. Concurrent first loads of one path share a single
// read. Failed loads are not cached so a later call can retry.
type TableCache struct {
	mu     sync.RWMutex
	tables map[string]any
	group  singleflight.Group
	loads  atomic.Int64
}

// NewTableCache creates an empty cache.
func NewTableCache() *TableCache {
	return &TableCache{tables: make(map[string]any)}
}

// Loads returns how many loads actually ran.
func (c *TableCache) Loads() int64 { return c.loads.Load() }

// Size returns the number of cached tables.
func (c *TableCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}

func (c *TableCache) get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.tables[key]
	return v, ok
}

// Load returns the cached value for key, running load at most once per key
// across concurrent callers.
func Load[T any](ctx context.Context, c *TableCache, key string, load func(ctx context.Context) (T, error)) (T, error) {
	if v, ok := c.get(key); ok {
		metrics.RecordCacheLookup(lookupHit)
		return v.(T), nil
	}
	v, err, shared := c.group.Do(key, func() (any, error) {
		if v, ok := c.get(key); ok {
			return v, nil
		}
		c.loads.Add(1)
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.tables[key] = v
		c.mu.Unlock()
		return v, nil
	})
	if shared {
		metrics.RecordCacheLookup(lookupShared)
	} else {
		metrics.RecordCacheLookup(lookupMiss)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
