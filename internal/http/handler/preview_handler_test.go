package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/admin-trust-core/internal/security"
	"github.com/sandeepkv93/admin-trust-core/internal/service"
)

const testPreviewSecret = "handler-preview-secret-012345678"

func servePreview(t *testing.T, secret, target string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewPreviewHandler(service.NewPreviewService(security.NewPreviewCodec(secret), "http://localhost", time.Hour))
	r := chi.NewRouter()
	r.Get("/preview/{resourceId}", h.View)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestPreviewViewStatuses(t *testing.T) {
	codec := security.NewPreviewCodec(testPreviewSecret)
	valid, err := codec.Sign("post-1", "sub-1", 600)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	expired, err := codec.Sign("post-1", "sub-1", -60)
	if err != nil {
		t.Fatalf("sign expired: %v", err)
	}

	cases := []struct {
		name   string
		secret string
		target string
		status int
		code   string
	}{
		{"valid", testPreviewSecret, "/preview/post-1?token=" + valid, http.StatusOK, ""},
		{"expired", testPreviewSecret, "/preview/post-1?token=" + expired, http.StatusGone, "PREVIEW_EXPIRED"},
		{"other resource", testPreviewSecret, "/preview/post-2?token=" + valid, http.StatusForbidden, "PREVIEW_INVALID"},
		{"garbage", testPreviewSecret, "/preview/post-1?token=abc", http.StatusForbidden, "PREVIEW_INVALID"},
		{"missing token", testPreviewSecret, "/preview/post-1", http.StatusForbidden, "PREVIEW_INVALID"},
		{"not configured", "", "/preview/post-1?token=" + valid, http.StatusServiceUnavailable, "PREVIEW_UNAVAILABLE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := servePreview(t, tc.secret, tc.target)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d body=%s", tc.status, rr.Code, rr.Body.String())
			}
			if tc.code != "" && !strings.Contains(rr.Body.String(), tc.code) {
				t.Fatalf("expected code %s in %s", tc.code, rr.Body.String())
			}
		})
	}
}
