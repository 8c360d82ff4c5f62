package response

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func TestJSONEnvelopeCarriesRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chimiddleware.RequestIDKey, "req-123"))
	rr := httptest.NewRecorder()

	JSON(rr, req, http.StatusCreated, map[string]string{"ok": "yes"})

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	var body struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
		Meta    struct {
			RequestID string `json:"request_id"`
		} `json:"meta"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Data["ok"] != "yes" || body.Meta.RequestID != "req-123" {
		t.Fatalf("unexpected envelope: %+v", body)
	}
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Fatal("expected no-store cache header")
	}
}

func TestErrorEnvelopeFallsBackToHeaderRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "from-header")
	rr := httptest.NewRecorder()

	Error(rr, req, http.StatusForbidden, "FORBIDDEN", "nope", nil)

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
		Meta struct {
			RequestID string `json:"request_id"`
		} `json:"meta"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success || body.Error.Code != "FORBIDDEN" || body.Meta.RequestID != "from-header" {
		t.Fatalf("unexpected envelope: %+v", body)
	}
}

func TestErrorEnvelopeDisablesCaching(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	rr := httptest.NewRecorder()

	Error(rr, req, http.StatusTooManyRequests, "RATE_LIMITED", "too many attempts", nil)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Cache-Control") != "no-store" || rr.Header().Get("Pragma") != "no-cache" {
		t.Fatalf("unexpected cache headers: %v", rr.Header())
	}
	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := body["data"]; ok {
		t.Fatal("error envelope must not carry data")
	}
	m, _ := body["meta"].(map[string]any)
	if m["request_id"] != "req-unknown" {
		t.Fatalf("expected fallback request id, got %v", m["request_id"])
	}
	if _, ok := m["trace_id"]; ok {
		t.Fatal("trace_id must be omitted without a span")
	}
}
