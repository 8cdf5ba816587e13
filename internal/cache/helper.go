package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"prosphere/internal/middleware"
	"prosphere/internal/observability"

	"github.com/redis/go-redis/v9"
)

// load decodes the JSON stored at key into dest. A missing key reports false
// with no error.
func load(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	b, err := rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, json.Unmarshal(b, dest)
}

func store(ctx context.Context, rdb *redis.Client, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, b, ttl).Err()
}

// CacheAside reads key into dest, and on a miss calls fetch to fill dest and
// stores the result for ttl. fetch reporting found=false is not cached.
// Redis being nil or failing only costs a fetch; name labels the hit/miss metric.
func CacheAside(ctx context.Context, rdb *redis.Client, name, key string, dest any, ttl time.Duration, fetch func() (bool, error)) (bool, error) {
	if rdb != nil {
		if hit, err := load(ctx, rdb, key, dest); err == nil && hit {
			observability.CacheResults.WithLabelValues(name, "hit").Inc()
			return true, nil
		}
	}
	observability.CacheResults.WithLabelValues(name, "miss").Inc()

	found, err := fetch()
	if err != nil || !found || rdb == nil {
		return found, err
	}
	if err := store(ctx, rdb, key, dest, ttl); err != nil {
		middleware.Logger.DebugContext(ctx, "cache store failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return true, nil
}
