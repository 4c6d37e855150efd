package embedder

import (
	"context"
	"log/slog"
	"time"
)

type noopStore struct{}

func (noopStore) Get(context.Context, string) ([]float64, bool, error) { return nil, false, nil }

func (noopStore) Set(context.Context, string, []float64, time.Duration) error { return nil }

// NewStore builds the Store for cfg.Backend. The returned close func releases
// backend connections and is never nil.
func NewStore(ctx context.Context, cfg CacheConfig, logger *slog.Logger) (Store, func() error, error) {
	switch cfg.Backend {
	case "redis":
		rs, err := NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("embedding cache using redis", "ttl", cfg.TTL)
		return rs, rs.Close, nil
	case "none":
		return noopStore{}, func() error { return nil }, nil
	default:
		return NewMemoryStore(cfg.MaxEntries), func() error { return nil }, nil
	}
}
