// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_requests_total",
			Help: "Total number of analysis requests by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "agent_request_duration_seconds",
			Help: "Duration of request processing in seconds",
		},
		[]string{"operation"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_cache_hits_total",
			Help: "Cache hits by entry kind (content, analysis)",
		},
		[]string{"kind"},
	)

	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_rate_limit_rejections_total",
			Help: "Requests rejected by the per-identity rate limiter",
		},
		[]string{"operation"},
	)

	BackendFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_backend_fallbacks_total",
			Help: "Model backend failures that triggered fallback to the next backend",
		},
		[]string{"backend"},
	)

	ExtractionDegraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agent_extraction_degraded_total",
			Help: "Responses served with sentinel-filled fields after unparseable model output",
		},
	)
)
