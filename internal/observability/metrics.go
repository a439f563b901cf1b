package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Page cache lookup outcomes.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// PageCacheRequests counts index page cache lookups by result.
	PageCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_page_cache_requests_total",
		Help: "Index page cache lookups by result",
	}, []string{"result"})

	// FeedAssemblyLatency records how long building a feed page takes.
	FeedAssemblyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "yatube_feed_assembly_seconds",
		Help:    "Feed assembly latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	// FollowOperations counts follow and unfollow calls by outcome.
	FollowOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_follow_operations_total",
		Help: "Follow graph mutations by operation and result",
	}, []string{"operation", "result"})

	// FeedSocketConnections is the gauge of open following-feed websockets.
	FeedSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "yatube_feed_socket_connections",
		Help: "Number of open following-feed WebSocket connections",
	})

	// FeedSocketDrops counts events not delivered because a client lagged or left.
	FeedSocketDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_feed_socket_drops_total",
		Help: "Following-feed events dropped by reason",
	}, []string{"reason"})
)

// TrackFeed returns a function that records feed assembly latency when called (e.g. defer).
func TrackFeed(kind string) func() {
	start := time.Now()
	return func() {
		FeedAssemblyLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}

// RecordFollow increments the follow operation counter.
func RecordFollow(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	FollowOperations.WithLabelValues(operation, result).Inc()
}
