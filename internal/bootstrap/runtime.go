// Package bootstrap wires the process-level dependencies shared by the commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"prosphere/internal/cache"
	"prosphere/internal/config"
	"prosphere/internal/database"
	"prosphere/internal/middleware"
	"prosphere/internal/repository"
	"prosphere/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedInterests loads the built-in interest taxonomy, skipping ids that exist.
	SeedInterests bool
}

// InitRuntime connects to the database, applies the schema policy, and
// connects to Redis. The Redis client is nil when Redis is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		_ = database.Close(db)
		return nil, nil, fmt.Errorf("apply schema: %w", err)
	}

	rdb := cache.Connect(cfg.RedisURL)

	if opts.SeedInterests {
		n, err := seed.SeedInterests(ctx, repository.NewStore(db))
		if err != nil {
			_ = database.Close(db)
			return nil, nil, fmt.Errorf("seed interests: %w", err)
		}
		middleware.Logger.Info("Interest taxonomy ensured", slog.Int("inserted", n))
	}

	return db, rdb, nil
}
