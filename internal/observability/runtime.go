package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sandeepkv93/admin-trust-core/internal/config"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Runtime owns the OpenTelemetry providers for one process. Any provider may
// be nil when its signal is disabled.
type Runtime struct {
	MeterProvider  *sdkmetric.MeterProvider
	TracerProvider *sdktrace.TracerProvider
	LoggerProvider *sdklog.LoggerProvider
}

func InitRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, lp *sdklog.LoggerProvider) (*Runtime, error) {
	mp, err := InitMetrics(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	tp, err := InitTracing(ctx, cfg, logger)
	if err != nil {
		if mp != nil {
			_ = mp.Shutdown(ctx)
		}
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	return &Runtime{MeterProvider: mp, TracerProvider: tp, LoggerProvider: lp}, nil
}

// Shutdown flushes metrics and spans before logs so records emitted while
// exporters drain still reach the log pipeline.
func (r *Runtime) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}
	type stage struct {
		name string
		fn   func(context.Context) error
	}
	var stages []stage
	if r.MeterProvider != nil {
		stages = append(stages, stage{"metrics", r.MeterProvider.Shutdown})
	}
	if r.TracerProvider != nil {
		stages = append(stages, stage{"tracing", r.TracerProvider.Shutdown})
	}
	if r.LoggerProvider != nil {
		stages = append(stages, stage{"logs", r.LoggerProvider.Shutdown})
	}

	var errs []error
	for _, s := range stages {
		if err := s.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
