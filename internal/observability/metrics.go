package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sandeepkv93/admin-trust-core/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "admin-trust-core"

type AppMetrics struct {
	authLoginCounter        metric.Int64Counter
	authRefreshCounter      metric.Int64Counter
	authLogoutCounter       metric.Int64Counter
	sessionVerifyCounter    metric.Int64Counter
	sessionRevokeCounter    metric.Int64Counter
	attemptLimiterCounter   metric.Int64Counter
	rateLimitCounter        metric.Int64Counter
	previewCounter          metric.Int64Counter
	refreshRedeemCounter    metric.Int64Counter
	roleCacheCounter        metric.Int64Counter
	repositoryCounter       metric.Int64Counter
	trustModeBypassCounter  metric.Int64Counter
	readinessProbeHistogram metric.Float64Histogram
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	var mp *sdkmetric.MeterProvider
	if !cfg.OTELMetricsEnabled {
		mp = sdkmetric.NewMeterProvider()
		logger.Info("otel metrics export disabled")
	} else {
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
		if cfg.OTELExporterOTLPInsecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("create otlp metric exporter: %w", err)
		}
		res, err := newResource(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create metric resource: %w", err)
		}
		reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
		mp = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(reader),
		)
		logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	}
	otel.SetMeterProvider(mp)

	m, err := newAppMetrics(mp.Meter(meterName))
	if err != nil {
		return nil, err
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()
	return mp, nil
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	var (
		m   AppMetrics
		err error
	)
	counters := []struct {
		name string
		dst  *metric.Int64Counter
	}{
		{"auth.login.attempts", &m.authLoginCounter},
		{"auth.refresh.attempts", &m.authRefreshCounter},
		{"auth.logout.attempts", &m.authLogoutCounter},
		{"auth.session.verifications", &m.sessionVerifyCounter},
		{"auth.session.revocations", &m.sessionRevokeCounter},
		{"auth.attempt_limiter.events", &m.attemptLimiterCounter},
		{"http.rate_limit.decisions", &m.rateLimitCounter},
		{"preview.token.events", &m.previewCounter},
		{"refresh.token.redemptions", &m.refreshRedeemCounter},
		{"role.cache.events", &m.roleCacheCounter},
		{"repository.operations", &m.repositoryCounter},
		{"security.trust_mode.bypass", &m.trustModeBypassCounter},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name); err != nil {
			return nil, fmt.Errorf("create counter %s: %w", c.name, err)
		}
	}
	if m.readinessProbeHistogram, err = meter.Float64Histogram("health.readiness.probe.duration", metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("create readiness histogram: %w", err)
	}
	return &m, nil
}

func current() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func RecordAuthLogin(ctx context.Context, status string) {
	if m := current(); m != nil {
		m.authLoginCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}

func RecordAuthRefresh(ctx context.Context, status string) {
	if m := current(); m != nil {
		m.authRefreshCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}

func RecordAuthLogout(ctx context.Context, status string) {
	if m := current(); m != nil {
		m.authLogoutCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}

func RecordSessionVerification(ctx context.Context, outcome string) {
	if m := current(); m != nil {
		m.sessionVerifyCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func RecordSessionRevocation(ctx context.Context, reason, status string) {
	if m := current(); m != nil {
		m.sessionRevokeCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("reason", reason),
			attribute.String("status", status),
		))
	}
}

// RecordAttemptLimiterEvent counts failed-attempt limiter activity. event is
// one of failure, locked, reset or backend_error.
func RecordAttemptLimiterEvent(ctx context.Context, op, event string) {
	if m := current(); m != nil {
		m.attemptLimiterCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("event", event),
		))
	}
}

func RecordRateLimitDecision(ctx context.Context, scope, outcome string) {
	if m := current(); m != nil {
		m.rateLimitCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("scope", scope),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordPreviewEvent(ctx context.Context, op, outcome string) {
	if m := current(); m != nil {
		m.previewCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordRefreshRedemption(ctx context.Context, store, outcome string) {
	if m := current(); m != nil {
		m.refreshRedeemCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("store", store),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordRoleCacheEvent(ctx context.Context, event string) {
	if m := current(); m != nil {
		m.roleCacheCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
	}
}

func RecordRepositoryOperation(ctx context.Context, repo, op, outcome string) {
	if m := current(); m != nil {
		m.repositoryCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("repository", repo),
			attribute.String("operation", op),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordTrustModeBypass(ctx context.Context, check string) {
	if m := current(); m != nil {
		m.trustModeBypassCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("check", check)))
	}
}

func RecordReadinessProbe(ctx context.Context, probe, outcome string, millis float64) {
	if m := current(); m != nil {
		m.readinessProbeHistogram.Record(ctx, millis, metric.WithAttributes(
			attribute.String("probe", probe),
			attribute.String("outcome", outcome),
		))
	}
}
