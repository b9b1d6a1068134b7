package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ransomguard/internal/config"
	"ransomguard/pkg/logger"
)

// RateChecker is a shared fixed-window rate limit store
type RateChecker interface {
	CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, time.Time, error)
}

// RateLimiter returns middleware that limits requests per client IP. With a
// shared store the limit holds across replicas; without one each process
// keeps its own token buckets.
func RateLimiter(store RateChecker, cfg config.RateLimitConfig, log *logger.Logger) func(next http.Handler) http.Handler {
	local := NewLocalLimiter(cfg.RequestsPerMinute, cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip rate limiting for OPTIONS
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			clientID := getClientID(r)

			if store == nil {
				if !local.Allow(clientID) {
					w.Header().Set("Retry-After", "1")
					writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			allowed, remaining, resetTime, err := store.CheckRateLimit(
				r.Context(),
				clientID,
				int64(cfg.RequestsPerMinute),
				time.Minute,
			)
			if err != nil {
				// the shared store is down, fall back to this process
				log.Warn().Err(err).Msg("rate limit store unavailable")
				if !local.Allow(clientID) {
					w.Header().Set("Retry-After", "1")
					writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerMinute))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

			if !allowed {
				retry := int64(time.Until(resetTime).Seconds())
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.FormatInt(retry, 10))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientID returns the client IP without its port
func getClientID(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalLimiter keeps one token bucket per client
type LocalLimiter struct {
	perMinute int
	burst     int

	mu        sync.Mutex
	limiters  map[string]*ipLimiter
	lastSweep time.Time
}

const (
	sweepInterval = 5 * time.Minute
	idleTimeout   = 10 * time.Minute
)

// NewLocalLimiter creates a limiter refilling perMinute tokens a minute
func NewLocalLimiter(perMinute, burst int) *LocalLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &LocalLimiter{
		perMinute: perMinute,
		burst:     burst,
		limiters:  make(map[string]*ipLimiter),
		lastSweep: time.Now(),
	}
}

// Allow reports whether client may make a request now
func (l *LocalLimiter) Allow(client string) bool {
	now := time.Now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) > sweepInterval {
		for id, e := range l.limiters {
			if now.Sub(e.lastSeen) > idleTimeout {
				delete(l.limiters, id)
			}
		}
		l.lastSweep = now
	}
	e, ok := l.limiters[client]
	if !ok {
		e = &ipLimiter{limiter: rate.NewLimiter(rate.Limit(float64(l.perMinute)/60), l.burst)}
		l.limiters[client] = e
	}
	e.lastSeen = now
	l.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}
