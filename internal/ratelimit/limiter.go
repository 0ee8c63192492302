// internal/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"insight-agent/internal/common/config"
	"insight-agent/internal/common/logger"
	"insight-agent/internal/common/metrics"
)

// Store is the atomic counter service backing the limiter. IncrWindow
// must increment and arm the window expiry as one operation.
type Store interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter admits or rejects requests against a fixed per-identity window.
// A window starts on the identity's first request and every request inside
// it increments the same counter; the counter expires with the window.
//
// When the counter store is unreachable the limiter fails closed (rejects)
// unless configured to fail open; either way the outage is logged, never
// silently ignored.
type Limiter struct {
	store    Store
	op       string
	limit    int64
	window   time.Duration
	failOpen bool
	logger   logger.Logger
}

func New(store Store, op string, cfg config.WindowConfig, failOpen bool, log logger.Logger) *Limiter {
	return &Limiter{
		store:    store,
		op:       op,
		limit:    int64(cfg.Limit),
		window:   config.GetDuration(cfg.Window),
		failOpen: failOpen,
		logger:   log.WithFields(map[string]interface{}{"component": "ratelimit", "operation": op}),
	}
}

// Allow records one request for identity and reports whether it fits the
// budget. The rejection decision carries the time until the window resets.
func (l *Limiter) Allow(ctx context.Context, identity string) Decision {
	count, ttl, err := l.store.IncrWindow(ctx, l.key(identity), l.window)
	if err != nil {
		l.logger.Error("counter store unreachable", map[string]interface{}{
			"error":    err.Error(),
			"failOpen": l.failOpen,
		})
		if l.failOpen {
			return Decision{Allowed: true, Remaining: int(l.limit)}
		}
		metrics.RateLimitRejections.WithLabelValues(l.op).Inc()
		return Decision{Allowed: false, RetryAfter: l.window}
	}

	if count > l.limit {
		metrics.RateLimitRejections.WithLabelValues(l.op).Inc()
		return Decision{Allowed: false, RetryAfter: ttl}
	}

	return Decision{Allowed: true, Remaining: int(l.limit - count)}
}

// key hashes the identity so bearer tokens are not stored verbatim.
func (l *Limiter) key(identity string) string {
	sum := sha256.Sum256([]byte(identity))
	return fmt.Sprintf("ratelimit:%s:%x", l.op, sum[:16])
}
