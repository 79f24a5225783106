package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkwell_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// CacheLookups counts cache-aside lookups by result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	// PostsPublished counts scheduled posts made visible by the publish sweep.
	PostsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_posts_published_total",
		Help: "Scheduled posts published by the sweep",
	})

	// SweepRuns counts publish sweeps by outcome.
	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_publish_sweeps_total",
		Help: "Publish sweeps by outcome",
	}, []string{"outcome"})

	// LikeToggles counts like toggles by result (liked, unliked, noop).
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_like_toggles_total",
		Help: "Like toggles by result",
	}, []string{"result"})

	// SharesLogged counts share events by channel.
	SharesLogged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_shares_total",
		Help: "Share events by channel",
	}, []string{"channel"})

	// ModerationRejections counts rejected submissions by rule.
	ModerationRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_moderation_rejections_total",
		Help: "Submissions rejected by the moderation filter",
	}, []string{"surface", "reason"})

	// RateLimited counts requests rejected by a rate limit policy.
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_rate_limited_total",
		Help: "Requests rejected by rate limiting",
	}, []string{"policy"})

	// Subscriptions counts mailing list upserts.
	Subscriptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_subscriptions_total",
		Help: "Mailing list upserts by contact kind and resulting state",
	}, []string{"kind", "subscribed"})

	// BroadcastsPublished counts broadcast publishes by event type and outcome.
	BroadcastsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_broadcasts_total",
		Help: "Broadcast publishes by event type and outcome",
	}, []string{"event", "outcome"})
)

// ObserveQuery records the latency of a database query.
func ObserveQuery(operation, table string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		ObserveQuery(operation, table, start)
	}
}
