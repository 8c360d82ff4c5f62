package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/sandeepkv93/admin-trust-core/internal/config"
	"github.com/sandeepkv93/admin-trust-core/internal/observability"
)

type AttemptLimiterPolicy struct {
	Threshold int64
	Window    time.Duration
}

func DefaultAttemptLimiterPolicy() AttemptLimiterPolicy {
	return AttemptLimiterPolicy{Threshold: 5, Window: 5 * time.Minute}
}

// AttemptLimiter counts failed verifications per client address. Counter
// store errors degrade to "not limited"; the login path stays available when
// the store is down.
type AttemptLimiter struct {
	store  CounterStore
	policy AttemptLimiterPolicy
	mode   config.TrustMode
}

func NewAttemptLimiter(store CounterStore, policy AttemptLimiterPolicy, mode config.TrustMode) *AttemptLimiter {
	def := DefaultAttemptLimiterPolicy()
	if policy.Threshold <= 0 {
		policy.Threshold = def.Threshold
	}
	if policy.Window <= 0 {
		policy.Window = def.Window
	}
	return &AttemptLimiter{store: store, policy: policy, mode: mode}
}

func (l *AttemptLimiter) Policy() AttemptLimiterPolicy { return l.policy }

func (l *AttemptLimiter) RecordFailure(ctx context.Context, clientAddr string) int64 {
	if l.bypassed(ctx, "record_failure") {
		return 0
	}
	n, err := l.store.IncrementWithTTL(ctx, failureKey(clientAddr), l.policy.Window)
	if err != nil {
		l.backendError(ctx, "record_failure", err)
		return 0
	}
	observability.RecordAttemptLimiterEvent(ctx, "record_failure", "failure")
	return n
}

func (l *AttemptLimiter) IsLocked(ctx context.Context, clientAddr string) bool {
	if l.bypassed(ctx, "is_locked") {
		return false
	}
	n, ok, err := l.store.Get(ctx, failureKey(clientAddr))
	if err != nil {
		l.backendError(ctx, "is_locked", err)
		return false
	}
	locked := ok && l.Exceeded(n)
	if locked {
		observability.RecordAttemptLimiterEvent(ctx, "is_locked", "locked")
	}
	return locked
}

func (l *AttemptLimiter) Reset(ctx context.Context, clientAddr string) {
	if l.bypassed(ctx, "reset") {
		return
	}
	if err := l.store.Delete(ctx, failureKey(clientAddr)); err != nil {
		l.backendError(ctx, "reset", err)
		return
	}
	observability.RecordAttemptLimiterEvent(ctx, "reset", "reset")
}

func (l *AttemptLimiter) Exceeded(count int64) bool {
	return count > l.policy.Threshold
}

func (l *AttemptLimiter) bypassed(ctx context.Context, op string) bool {
	if !l.mode.Bypass() {
		return false
	}
	observability.RecordTrustModeBypass(ctx, "attempt_limiter."+op)
	return true
}

func (l *AttemptLimiter) backendError(ctx context.Context, op string, err error) {
	observability.RecordAttemptLimiterEvent(ctx, op, "backend_error")
	slog.WarnContext(ctx, "attempt limiter backend unavailable, failing open",
		"op", op,
		"error", err.Error(),
	)
}

func failureKey(clientAddr string) string {
	addr := strings.TrimSpace(clientAddr)
	if addr == "" {
		addr = "unknown"
	}
	return "fail:" + addr
}
