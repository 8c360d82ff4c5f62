package observability

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/sandeepkv93/admin-trust-core/internal/config"
)

func TestRuntimeWithSignalsDisabled(t *testing.T) {
	cfg := &config.Config{AppEnv: "test", OTELServiceName: "admin-trust-core-test"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rt, err := InitRuntime(context.Background(), cfg, logger, nil)
	if err != nil {
		t.Fatalf("init runtime: %v", err)
	}
	if rt.MeterProvider == nil || rt.TracerProvider == nil {
		t.Fatal("expected local providers even when export is disabled")
	}
	if rt.LoggerProvider != nil {
		t.Fatal("expected no logger provider")
	}
	if err := rt.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestNilRuntimeShutdown(t *testing.T) {
	var rt *Runtime
	if err := rt.Shutdown(context.Background()); err != nil {
		t.Fatalf("nil runtime shutdown: %v", err)
	}
}
