package authz

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Store fetches the role permission mapping from the backing database.
type Store interface {
	FetchMapping(ctx context.Context) (Mapping, error)
}

const mappingKey = "mapping"

// Cache keeps the role permission mapping in memory. It is populated lazily
// on the first resolver call; concurrent misses coalesce into a single store
// fetch. Invalidate clears it and notifies subscribers so observers can
// re-derive displayed capabilities.
type Cache struct {
	store        Store
	logger       *slog.Logger
	fetchTimeout time.Duration

	group singleflight.Group

	mu      sync.RWMutex
	mapping Mapping
	loaded  bool
	gen     uint64

	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int
}

// NewCache constructs a Cache. fetchTimeout bounds each underlying store
// fetch; zero disables the bound.
func NewCache(store Store, logger *slog.Logger, fetchTimeout time.Duration) *Cache {
	return &Cache{
		store:        store,
		logger:       logger,
		fetchTimeout: fetchTimeout,
		subs:         make(map[int]func()),
	}
}

// Snapshot returns the cached mapping without triggering a fetch. The second
// return value is false while the cache has not been populated yet.
func (c *Cache) Snapshot() (Mapping, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mapping, c.loaded
}

// Mapping returns the cached mapping, fetching it from the store when the
// cache is empty. Waiting callers share one fetch.
func (c *Cache) Mapping(ctx context.Context) (Mapping, error) {
	c.mu.RLock()
	if c.loaded {
		m := c.mapping
		c.mu.RUnlock()
		return m, nil
	}
	c.mu.RUnlock()

	resultChan := c.group.DoChan(mappingKey, func() (interface{}, error) {
		c.mu.RLock()
		if c.loaded {
			m := c.mapping
			c.mu.RUnlock()
			return m, nil
		}
		gen := c.gen
		c.mu.RUnlock()

		// Detach from the first caller so its cancellation does not
		// poison the shared fetch.
		fctx := context.WithoutCancel(ctx)
		if c.fetchTimeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, c.fetchTimeout)
			defer cancel()
		}

		mapping, err := c.store.FetchMapping(fctx)
		if err != nil {
			return nil, err
		}

		// An invalidation that raced with the fetch bumps the generation;
		// the fetched mapping may predate the write behind it, so it is
		// served to the waiting callers but not kept. The next Mapping
		// call refetches.
		c.mu.Lock()
		if c.gen == gen {
			c.mapping = mapping
			c.loaded = true
		}
		c.mu.Unlock()
		return mapping, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Mapping), nil
	}
}

// Invalidate clears the cached mapping and notifies subscribers. The next
// Mapping call refetches from the store.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.mapping = nil
	c.loaded = false
	c.gen++
	c.mu.Unlock()

	c.group.Forget(mappingKey)

	c.subMu.Lock()
	listeners := make([]func(), 0, len(c.subs))
	for _, fn := range c.subs {
		listeners = append(listeners, fn)
	}
	c.subMu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	if c.logger != nil {
		c.logger.Debug("permission cache invalidated")
	}
}

// Subscribe registers a listener invoked on every invalidation. The returned
// function removes the listener.
func (c *Cache) Subscribe(fn func()) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}
