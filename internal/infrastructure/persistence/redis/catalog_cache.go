package redis

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/learnquest/rewards-engine/internal/domain/reward"
	"github.com/learnquest/rewards-engine/internal/domain/shared"
	"github.com/learnquest/rewards-engine/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG CACHE
// Read-through cache in front of the reward catalog. Keys embed a generation
// number; defining a reward bumps the generation, so stale entries are never
// read again and age out by TTL.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultCatalogTTL bounds how long a cached catalog entry lives.
const DefaultCatalogTTL = 10 * time.Minute

const catalogGenerationKey = "catalog:generation"

// store is the subset of Cache the catalog cache needs.
type store interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	Counter(ctx context.Context, key string) (int64, error)
}

// CachingCatalog implements reward.Catalog over another catalog. Cache
// failures are logged and the source catalog answers; repeated failures open
// a breaker that skips the cache until it recovers.
type CachingCatalog struct {
	source  reward.Catalog
	cache   store
	ttl     time.Duration
	logger  *slog.Logger
	breaker *circuitbreaker.CircuitBreaker
}

// NewCachingCatalog creates a read-through catalog.
func NewCachingCatalog(source reward.Catalog, cache *Cache, ttl time.Duration, logger *slog.Logger) *CachingCatalog {
	return newCachingCatalog(source, cache, ttl, logger)
}

func newCachingCatalog(source reward.Catalog, cache store, ttl time.Duration, logger *slog.Logger) *CachingCatalog {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "catalog_cache")
	return &CachingCatalog{
		source: source,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
		breaker: circuitbreaker.CacheBreaker("catalog_cache",
			circuitbreaker.WithIsFailure(func(err error) bool { return !errors.Is(err, ErrCacheMiss) }),
			circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
				logger.Warn("cache breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			}),
		),
	}
}

// guard runs a cache call through the breaker.
func (c *CachingCatalog) guard(ctx context.Context, fn func(context.Context) error) error {
	return c.breaker.Execute(ctx, fn)
}

// GetByID implements reward.Catalog.
func (c *CachingCatalog) GetByID(ctx context.Context, id string) (*reward.Definition, error) {
	key, ok := c.key(ctx, "def:"+id)
	if ok {
		var def reward.Definition
		err := c.guard(ctx, func(ctx context.Context) error { return c.cache.Get(ctx, key, &def) })
		switch {
		case err == nil:
			return &def, nil
		case !errors.Is(err, ErrCacheMiss):
			c.logger.Warn("catalog cache read failed", "key", key, "error", err)
		}
	}

	def, err := c.source.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ok {
		c.store(ctx, key, def)
	}
	return def, nil
}

// List implements reward.Catalog.
func (c *CachingCatalog) List(ctx context.Context, filter reward.Filter) ([]*reward.Definition, error) {
	key, ok := c.key(ctx, "list:"+filterKey(filter))
	if ok {
		var defs []*reward.Definition
		err := c.guard(ctx, func(ctx context.Context) error { return c.cache.Get(ctx, key, &defs) })
		switch {
		case err == nil:
			return defs, nil
		case !errors.Is(err, ErrCacheMiss):
			c.logger.Warn("catalog cache read failed", "key", key, "error", err)
		}
	}

	defs, err := c.source.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if ok {
		c.store(ctx, key, defs)
	}
	return defs, nil
}

// Invalidate makes every cached catalog entry unreachable.
func (c *CachingCatalog) Invalidate(ctx context.Context) error {
	// Invalidation bypasses the breaker: a skipped bump would leave stale
	// entries readable once the cache recovers.
	if _, err := c.cache.Incr(ctx, catalogGenerationKey); err != nil {
		return fmt.Errorf("invalidate catalog cache: %w", err)
	}
	return nil
}

// Register invalidates the cache whenever a reward is defined.
func (c *CachingCatalog) Register(bus shared.EventSubscriber) error {
	return bus.Subscribe(shared.EventRewardDefined, func(shared.Event) error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return c.Invalidate(ctx)
	})
}

// key returns the generation-scoped key. ok is false when the generation
// cannot be read, in which case the cache is bypassed.
func (c *CachingCatalog) key(ctx context.Context, suffix string) (string, bool) {
	var gen int64
	err := c.guard(ctx, func(ctx context.Context) error {
		var err error
		gen, err = c.cache.Counter(ctx, catalogGenerationKey)
		return err
	})
	if circuitbreaker.IsRejection(err) {
		return "", false
	}
	if err != nil {
		c.logger.Warn("catalog cache unavailable", "error", err)
		return "", false
	}
	return fmt.Sprintf("catalog:%d:%s", gen, suffix), true
}

func (c *CachingCatalog) store(ctx context.Context, key string, value any) {
	err := c.guard(ctx, func(ctx context.Context) error { return c.cache.Set(ctx, key, value, c.ttl) })
	if err != nil && !circuitbreaker.IsRejection(err) {
		c.logger.Warn("catalog cache write failed", "key", key, "error", err)
	}
}

// filterKey derives a stable cache key from a filter.
func filterKey(f reward.Filter) string {
	typ, trig, active := "*", "*", "*"
	if f.Type != nil {
		typ = string(*f.Type)
	}
	if f.Trigger != nil {
		trig = string(*f.Trigger)
	}
	if f.IsActive != nil {
		active = fmt.Sprint(*f.IsActive)
	}
	raw := fmt.Sprintf("%s|%s|%s|%t|%d|%d", typ, trig, active, f.HideSecret, f.Limit, f.Offset)
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:8])
}

var _ reward.Catalog = (*CachingCatalog)(nil)
