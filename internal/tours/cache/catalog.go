// Package cache is the read-through, invalidate-on-write cache in front of the
// tour catalog.
//
// Entries live in Redis under a TTL and are never authoritative: a read that
// cannot use the cache falls back to the repository, and not-found results are
// never stored. Writers must call Invalidate/InvalidateAll after every
// successful tour mutation.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"
	"tourbook/pkg/cache"
	"tourbook/pkg/logger"
	"tourbook/pkg/metrics"
	"tourbook/pkg/model"

	"golang.org/x/sync/singleflight"
)

const AllToursKey = "tours:all"

// loadTimeout bounds a shared repository read, which no single caller's
// context controls.
const loadTimeout = 5 * time.Second

func TourKey(id string) string {
	return "tour:" + id
}

// Source is the authoritative tour store.
type Source interface {
	FindByID(ctx context.Context, id string) (*model.Tour, error)
	FindAll(ctx context.Context) ([]*model.Tour, error)
}

type Catalog struct {
	store   *cache.Store
	source  Source
	ttl     time.Duration
	log     *logger.Logger
	metrics *metrics.Metrics
	loads   singleflight.Group

	mu          sync.Mutex
	generations map[string]uint64
}

func NewCatalog(store *cache.Store, source Source, ttl time.Duration, log *logger.Logger, m *metrics.Metrics) *Catalog {
	return &Catalog{
		store:       store,
		source:      source,
		ttl:         ttl,
		log:         log,
		metrics:     m,
		generations: make(map[string]uint64),
	}
}

func (c *Catalog) Get(ctx context.Context, id string) (*model.Tour, error) {
	key := TourKey(id)

	var tour model.Tour
	if c.lookup(ctx, key, &tour) {
		return &tour, nil
	}

	v, err := c.load(ctx, key, func(ctx context.Context) (any, error) {
		return c.source.FindByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	// Callers may mutate the result; give each its own copy.
	loaded := *v.(*model.Tour)
	return &loaded, nil
}

func (c *Catalog) GetAll(ctx context.Context) ([]*model.Tour, error) {
	var tours []*model.Tour
	if c.lookup(ctx, AllToursKey, &tours) {
		return tours, nil
	}

	v, err := c.load(ctx, AllToursKey, func(ctx context.Context) (any, error) {
		return c.source.FindAll(ctx)
	})
	if err != nil {
		return nil, err
	}

	loaded := v.([]*model.Tour)
	out := make([]*model.Tour, len(loaded))
	for i, t := range loaded {
		cp := *t
		out[i] = &cp
	}
	return out, nil
}

// Invalidate drops the cached entry for one tour. Loads already in flight are
// forgotten so the next Get starts a fresh repository read, and they no longer
// fill the cache with what they read.
func (c *Catalog) Invalidate(ctx context.Context, id string) error {
	key := TourKey(id)
	c.bump(key)
	c.loads.Forget(key)
	if err := c.store.Delete(ctx, key); err != nil {
		return err
	}
	c.metrics.CacheInvalidations.Inc()
	return nil
}

// InvalidateAll drops the cached tour list.
func (c *Catalog) InvalidateAll(ctx context.Context) error {
	c.bump(AllToursKey)
	c.loads.Forget(AllToursKey)
	if err := c.store.Delete(ctx, AllToursKey); err != nil {
		return err
	}
	c.metrics.CacheInvalidations.Inc()
	return nil
}

// lookup reports whether dest was filled from the cache. Backend errors are
// logged and treated as a miss.
func (c *Catalog) lookup(ctx context.Context, key string, dest any) bool {
	err := c.store.GetJSON(ctx, key, dest)
	switch {
	case err == nil:
		c.metrics.CacheRequests.WithLabelValues(metrics.ResultHit).Inc()
		return true
	case errors.Is(err, cache.ErrMiss):
		c.metrics.CacheRequests.WithLabelValues(metrics.ResultMiss).Inc()
	default:
		c.metrics.CacheRequests.WithLabelValues(metrics.ResultError).Inc()
		c.log.Warn("Catalog cache read failed, reading repository", "key", key, "error", err)
	}
	return false
}

// load shares one repository read per key between concurrent callers. The
// read runs detached from the caller that started it; every caller stops
// waiting when its own ctx is done.
func (c *Catalog) load(ctx context.Context, key string, read func(context.Context) (any, error)) (any, error) {
	results := c.loads.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		gen := c.generation(key)
		v, err := read(loadCtx)
		if err != nil {
			return nil, err
		}
		c.fill(loadCtx, key, v, gen)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-results:
		return res.Val, res.Err
	}
}

// fill stores value unless key was invalidated after the read began. An
// invalidation that lands during the write removes the entry again.
func (c *Catalog) fill(ctx context.Context, key string, value any, gen uint64) {
	if c.generation(key) != gen {
		return
	}
	if err := c.store.SetJSON(ctx, key, value, c.ttl); err != nil {
		c.log.Warn("Catalog cache fill failed", "key", key, "error", err)
		return
	}
	if c.generation(key) != gen {
		if err := c.store.Delete(ctx, key); err != nil {
			c.log.Warn("Catalog cache stale fill not removed", "key", key, "error", err)
		}
	}
}

func (c *Catalog) generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[key]
}

func (c *Catalog) bump(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[key]++
}
