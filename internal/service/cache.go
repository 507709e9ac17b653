package service

import (
	"context"
	"sync"
	"time"

	"github.com/mleitner/wardtrack/internal/domain"
	"github.com/mleitner/wardtrack/internal/metrics"
)

// TTL clamp bounds for the registry snapshot cache. The cache exists to
// avoid a registry round-trip per keystroke, so it must expire — a freshly
// registered tag stays invisible only until the next refresh.
const (
	minCacheTTL     = 30 * time.Second
	maxCacheTTL     = time.Hour
	defaultCacheTTL = 5 * time.Minute
)

// RegistryCache supplies registry snapshots to the validator. It is injected
// so tests can substitute NopCache and see every read hit the repo.
type RegistryCache interface {
	// Get returns a registry snapshot, calling fetch when the cached one is
	// missing or stale.
	Get(ctx context.Context, fetch func(context.Context) ([]domain.Department, error)) ([]domain.Department, error)

	// Last returns the most recently fetched snapshot regardless of age,
	// and whether one exists at all. Serves as the local fallback store
	// when the registry itself is unreachable.
	Last() ([]domain.Department, bool)

	// Invalidate discards the cached snapshot after a registry mutation.
	Invalidate()
}

// TTLCache is a single-snapshot cache with a bounded time-to-live.
type TTLCache struct {
	ttl time.Duration

	mu        sync.Mutex
	snapshot  []domain.Department
	fetchedAt time.Time
}

// NewTTLCache returns a TTLCache with ttl clamped to [30s, 1h].
// Non-positive values fall back to the 5 minute default.
func NewTTLCache(ttl time.Duration) *TTLCache {
	switch {
	case ttl <= 0:
		ttl = defaultCacheTTL
	case ttl < minCacheTTL:
		ttl = minCacheTTL
	case ttl > maxCacheTTL:
		ttl = maxCacheTTL
	}
	return &TTLCache{ttl: ttl}
}

// Get returns the cached snapshot while it is fresh, refreshing via fetch
// otherwise. A failed refresh keeps the previous snapshot available through
// Last but still reports the error to the caller.
func (c *TTLCache) Get(ctx context.Context, fetch func(context.Context) ([]domain.Department, error)) ([]domain.Department, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapshot != nil && time.Since(c.fetchedAt) < c.ttl {
		return c.snapshot, nil
	}

	snapshot, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	metrics.RegistryRefreshes.Inc()
	c.snapshot = snapshot
	c.fetchedAt = time.Now()
	return snapshot, nil
}

// Last returns the last fetched snapshot even when stale.
func (c *TTLCache) Last() ([]domain.Department, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot, c.snapshot != nil
}

// Invalidate marks the snapshot stale so the next Get refetches. The stale
// snapshot itself is kept — it remains the fallback of last resort while the
// registry is unreachable.
func (c *TTLCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchedAt = time.Time{}
}

// NopCache never caches: Get always fetches and Last never has a snapshot.
type NopCache struct{}

func (NopCache) Get(ctx context.Context, fetch func(context.Context) ([]domain.Department, error)) ([]domain.Department, error) {
	return fetch(ctx)
}

func (NopCache) Last() ([]domain.Department, bool) { return nil, false }

func (NopCache) Invalidate() {}
