package config

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	errEnvFile    = errors.New("load env file")
	errParse      = errors.New("parse")
	errValidation = errors.New("validate config")
)

var (
	configMetricsOnce sync.Once
	configLoads       metric.Int64Counter
)

// loadEvent describes one Load call. TrustMode is empty when loading failed
// before the mode was resolved.
type loadEvent struct {
	profile    string
	trustMode  TrustMode
	store      string
	errorClass string
}

func (e loadEvent) outcome() string {
	if e.errorClass == "none" {
		return "success"
	}
	return "error"
}

// recordConfigLoad binds lazily to the global meter; events recorded before
// the observability runtime installs a provider go to the no-op meter.
func recordConfigLoad(ctx context.Context, e loadEvent) {
	configMetricsOnce.Do(func() {
		counter, err := otel.Meter("admin-trust-core").Int64Counter("trustcore.config.loads")
		if err == nil {
			configLoads = counter
		}
	})
	if configLoads == nil {
		return
	}
	configLoads.Add(ctx, 1, metric.WithAttributes(loadEventAttributes(e)...))
}

func loadEventAttributes(e loadEvent) []attribute.KeyValue {
	mode := string(e.trustMode)
	if mode == "" {
		mode = "unresolved"
	}
	store := e.store
	if store == "" {
		store = "unknown"
	}
	return []attribute.KeyValue{
		attribute.String("profile", normalizeConfigProfile(e.profile)),
		attribute.String("trust_mode", mode),
		attribute.String("refresh_store", store),
		attribute.String("outcome", e.outcome()),
		attribute.String("error_class", e.errorClass),
	}
}

func normalizeConfigProfile(profile string) string {
	v := strings.TrimSpace(strings.ToLower(profile))
	if v == "" {
		return "unknown"
	}
	return v
}

func classifyConfigLoadError(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, errEnvFile):
		return "env_file"
	case errors.Is(err, errValidation):
		return "validation"
	case errors.Is(err, errParse):
		return "parse"
	default:
		return "load"
	}
}
