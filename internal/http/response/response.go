package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
)

type envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
	Meta    meta      `json:"meta"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type meta struct {
	RequestID string    `json:"request_id"`
	TraceID   string    `json:"trace_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// JSON writes a success envelope. Responses are never cacheable since every
// body here is either credential-bearing or a trust decision.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	write(w, r, status, envelope{Success: true, Data: data})
}

func Error(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "status", status, "code", code, "path", r.URL.Path)
	}
	write(w, r, status, envelope{Error: &apiError{Code: code, Message: message, Details: details}})
}

func write(w http.ResponseWriter, r *http.Request, status int, body envelope) {
	body.Meta = buildMeta(r)
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	h.Set("Pragma", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.WarnContext(r.Context(), "response encode failed", "error", err.Error())
	}
}

func buildMeta(r *http.Request) meta {
	ctx := r.Context()
	m := meta{RequestID: chimiddleware.GetReqID(ctx), Timestamp: time.Now().UTC()}
	if m.RequestID == "" {
		m.RequestID = r.Header.Get("X-Request-Id")
	}
	if m.RequestID == "" {
		m.RequestID = "req-unknown"
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		m.TraceID = sc.TraceID().String()
	}
	return m
}
