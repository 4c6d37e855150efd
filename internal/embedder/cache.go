package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/zero-day-ai/cortex/internal/types"
)

// Store is a TTL key/value backend for embedding vectors.
type Store interface {
	Get(ctx context.Context, key string) ([]float64, bool, error)
	Set(ctx context.Context, key string, vec []float64, ttl time.Duration) error
}

// CacheConfig configures the embedding cache.
type CacheConfig struct {
	// Backend is "memory", "redis" or "none".
	Backend  string        `mapstructure:"backend" yaml:"backend" validate:"oneof=memory redis none"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl" validate:"gte=0"`
	RedisURL string        `mapstructure:"redis_url" yaml:"redis_url" validate:"required_if=Backend redis"`

	// MaxEntries bounds the in-memory backend. Zero means unbounded.
	MaxEntries int `mapstructure:"max_entries" yaml:"max_entries" validate:"gte=0"`
}

// DefaultCacheConfig returns an in-memory cache with a ten minute TTL.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Backend:    "memory",
		TTL:        10 * time.Minute,
		MaxEntries: 10000,
	}
}

// CachedEmbedder memoizes an Embedder by model and text. Concurrent misses
// for the same key share one upstream call. Cache failures never fail Embed.
type CachedEmbedder struct {
	inner  Embedder
	store  Store
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// CacheOption configures a CachedEmbedder.
type CacheOption func(*CachedEmbedder)

// WithCacheLogger sets the logger for cache read and write failures.
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *CachedEmbedder) { c.logger = logger }
}

// NewCachedEmbedder wraps inner with store. A zero ttl never expires.
func NewCachedEmbedder(inner Embedder, store Store, ttl time.Duration, opts ...CacheOption) *CachedEmbedder {
	c := &CachedEmbedder{
		inner:  inner,
		store:  store,
		ttl:    ttl,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Embed returns the cached vector for text or computes it once for all
// concurrent callers. A caller that gives up does not cancel the shared call.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	key := cacheKey(c.inner.Model(), text)

	if vec, ok, err := c.store.Get(ctx, key); err != nil {
		c.logger.WarnContext(ctx, "embedding cache read failed", "error", err)
	} else if ok {
		return vec, nil
	}

	// The flight outlives any single waiter; the inner embedder bounds it.
	ch := c.group.DoChan(key, func() (any, error) {
		vec, err := c.inner.Embed(context.WithoutCancel(ctx), text)
		if err != nil {
			return nil, err
		}
		if err := c.store.Set(context.WithoutCancel(ctx), key, vec, c.ttl); err != nil {
			c.logger.WarnContext(ctx, "embedding cache write failed", "error", err)
		}
		return vec, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]float64), nil
	case <-ctx.Done():
		return nil, types.WrapError(ErrCodeEmbeddingTimeout, "embedding wait cancelled", ctx.Err())
	}
}

func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

func (c *CachedEmbedder) Model() string { return c.inner.Model() }

func (c *CachedEmbedder) Health(ctx context.Context) types.HealthStatus {
	return c.inner.Health(ctx)
}

func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
