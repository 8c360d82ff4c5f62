package observability

import (
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
)

// Audit writes one structured audit record for a trust decision. Records
// carrying a non-success "outcome" attribute are logged at warn level so
// denied logins and refresh reuse stand out.
func Audit(r *http.Request, event string, attrs ...any) {
	ctx := r.Context()
	base := []any{
		"event", event,
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
		"request_id", chimiddleware.GetReqID(ctx),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		base = append(base, "trace_id", sc.TraceID().String())
	}
	base = append(base, attrs...)

	level := slog.LevelInfo
	if outcome, ok := auditOutcome(attrs); ok && outcome != "success" {
		level = slog.LevelWarn
	}
	slog.Log(ctx, level, "audit", base...)
}

func auditOutcome(attrs []any) (string, bool) {
	for i := 0; i+1 < len(attrs); i += 2 {
		if key, ok := attrs[i].(string); ok && key == "outcome" {
			v, ok := attrs[i+1].(string)
			return v, ok
		}
	}
	return "", false
}
