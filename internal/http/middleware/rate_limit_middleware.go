package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sandeepkv93/admin-trust-core/internal/http/response"
	"github.com/sandeepkv93/admin-trust-core/internal/observability"

	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per client address with a token bucket.
// This is a request throttle in front of the auth routes, independent of the
// failed-attempt lockout.
type RateLimiter struct {
	mu       sync.Mutex
	entries  map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	perMin   int
	idleTTL  time.Duration
	scope    string
	keyFunc  func(r *http.Request) string
	nextScan time.Time
	now      func() time.Time
}

func NewRateLimiter(requestsPerMinute int, scope string) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 1
	}
	if scope == "" {
		scope = "api"
	}
	return &RateLimiter{
		entries: make(map[string]*limiterEntry),
		limit:   rate.Limit(float64(requestsPerMinute) / 60),
		burst:   requestsPerMinute,
		perMin:  requestsPerMinute,
		idleTTL: 10 * time.Minute,
		scope:   scope,
		keyFunc: ClientIP,
		now:     time.Now,
	}
}

func (rl *RateLimiter) WithKeyFunc(keyFunc func(r *http.Request) string) *RateLimiter {
	if keyFunc != nil {
		rl.keyFunc = keyFunc
	}
	return rl
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rl.keyFunc(r)
			res := rl.reserve(key)
			if delay := res.DelayFrom(rl.now()); delay > 0 {
				res.CancelAt(rl.now())
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "deny")
				slog.DebugContext(r.Context(), "request throttled", "scope", rl.scope, "key", key)
				writeRateLimitHeaders(w.Header(), rl.perMin, 0, rl.now().Add(delay))
				w.Header().Set("Retry-After", retryAfterHeader(delay))
				response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
				return
			}
			observability.RecordRateLimitDecision(r.Context(), rl.scope, "allow")
			writeRateLimitHeaders(w.Header(), rl.perMin, rl.remaining(key), rl.now().Add(time.Minute))
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) reserve(key string) *rate.Reservation {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.After(rl.nextScan) {
		for k, e := range rl.entries {
			if now.Sub(e.lastSeen) > rl.idleTTL {
				delete(rl.entries, k)
			}
		}
		rl.nextScan = now.Add(rl.idleTTL)
	}
	e, ok := rl.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.ReserveN(now, 1)
}

func (rl *RateLimiter) remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	e, ok := rl.entries[key]
	if !ok {
		return rl.burst
	}
	return int(e.limiter.TokensAt(rl.now()))
}

func retryAfterHeader(d time.Duration) string {
	if d <= 0 {
		return "1"
	}
	seconds := int(d.Round(time.Second).Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return fmt.Sprintf("%d", seconds)
}

func writeRateLimitHeaders(h http.Header, limit int, remaining int, resetAt time.Time) {
	h.Set("X-RateLimit-Limit", fmt.Sprintf("%d", max(limit, 0)))
	h.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", max(remaining, 0)))
	if resetAt.IsZero() {
		resetAt = time.Now().Add(time.Second)
	}
	h.Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetAt.Unix()))
}
