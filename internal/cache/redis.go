// Package cache wraps Redis for profile and admin-check caching.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"prosphere/internal/middleware"
	"prosphere/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	dialTimeout  = 2 * time.Second
	ioTimeout    = time.Second
	pingTimeout  = 5 * time.Second
	pipelineName = "pipeline"
)

// errorCounter counts failed commands in RedisErrors. A cache miss is not a failure.
type errorCounter struct{}

func countFailure(op string, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		observability.RedisErrors.WithLabelValues(op).Inc()
	}
}

func (errorCounter) DialHook(next redis.DialHook) redis.DialHook { return next }

func (errorCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		countFailure(cmd.Name(), err)
		return err
	}
}

func (errorCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		countFailure(pipelineName, err)
		return err
	}
}

func options(addr string) (*redis.Options, error) {
	if !strings.Contains(addr, "://") {
		return &redis.Options{Addr: addr}, nil
	}
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return opts, nil
}

// NewClient builds a Redis client for addr, which is either host:port or a
// redis:// URL. It does not connect.
func NewClient(addr string) (*redis.Client, error) {
	opts, err := options(addr)
	if err != nil {
		return nil, err
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = dialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = ioTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = ioTimeout
	}

	client := redis.NewClient(opts)
	client.AddHook(errorCounter{})
	return client, nil
}

// Connect returns a pinged client, or nil when addr is invalid or Redis does
// not answer. A nil client disables caching and rate limiting falls back to
// its fail policy.
func Connect(addr string) *redis.Client {
	client, err := NewClient(addr)
	if err != nil {
		middleware.Logger.Warn("redis disabled: invalid address", slog.String("error", err.Error()))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("redis disabled: ping failed",
			slog.String("addr", client.Options().Addr),
			slog.String("error", err.Error()),
		)
		_ = client.Close()
		return nil
	}

	middleware.Logger.Info("redis connected", slog.String("addr", client.Options().Addr))
	return client
}
