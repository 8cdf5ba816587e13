// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// PostsCreated counts successfully created posts.
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prosphere_posts_created_total",
		Help: "Total number of posts created",
	})

	// Reactions counts reaction mutations by action (add, remove).
	Reactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prosphere_reactions_total",
		Help: "Total number of reaction mutations",
	}, []string{"action"})

	// Comments counts comment mutations by action (add, update, delete).
	Comments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prosphere_comments_total",
		Help: "Total number of comment mutations",
	}, []string{"action"})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prosphere_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// RateLimitRejections counts requests refused by the Redis limiter, by resource.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prosphere_rate_limit_rejections_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"resource"})

	// CacheResults counts cache lookups by cache name and result (hit, miss).
	CacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prosphere_cache_results_total",
		Help: "Cache lookups by result",
	}, []string{"cache", "result"})

	// IdentityRequests counts identity provider API calls by endpoint and outcome.
	IdentityRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prosphere_identity_requests_total",
		Help: "Identity provider API requests",
	}, []string{"endpoint", "outcome"})

	// WebhookEvents counts received provider webhooks by event type and result.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prosphere_webhook_events_total",
		Help: "Identity provider webhook events",
	}, []string{"type", "result"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "prosphere_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

const startTimeKey = "prosphere:query_start"

// RegisterDatabaseMetrics installs gorm callbacks that observe query latency.
func RegisterDatabaseMetrics(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(startTimeKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(startTimeKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			table := tx.Statement.Table
			if table == "" {
				table = "raw"
			}
			DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
		}
	}

	cb := db.Callback()
	steps := []struct {
		op       string
		register func(name string, before, after func(*gorm.DB)) error
	}{
		{"create", func(name string, b, a func(*gorm.DB)) error {
			if err := cb.Create().Before("gorm:create").Register(name+":before", b); err != nil {
				return err
			}
			return cb.Create().After("gorm:create").Register(name+":after", a)
		}},
		{"query", func(name string, b, a func(*gorm.DB)) error {
			if err := cb.Query().Before("gorm:query").Register(name+":before", b); err != nil {
				return err
			}
			return cb.Query().After("gorm:query").Register(name+":after", a)
		}},
		{"update", func(name string, b, a func(*gorm.DB)) error {
			if err := cb.Update().Before("gorm:update").Register(name+":before", b); err != nil {
				return err
			}
			return cb.Update().After("gorm:update").Register(name+":after", a)
		}},
		{"delete", func(name string, b, a func(*gorm.DB)) error {
			if err := cb.Delete().Before("gorm:delete").Register(name+":before", b); err != nil {
				return err
			}
			return cb.Delete().After("gorm:delete").Register(name+":after", a)
		}},
		{"raw", func(name string, b, a func(*gorm.DB)) error {
			if err := cb.Raw().Before("gorm:raw").Register(name+":before", b); err != nil {
				return err
			}
			return cb.Raw().After("gorm:raw").Register(name+":after", a)
		}},
	}
	for _, s := range steps {
		if err := s.register("prosphere:metrics_"+s.op, before, after(s.op)); err != nil {
			return err
		}
	}
	return nil
}
