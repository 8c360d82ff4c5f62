package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sandeepkv93/admin-trust-core/internal/http/response"
	"github.com/sandeepkv93/admin-trust-core/internal/security"
	"github.com/sandeepkv93/admin-trust-core/internal/service"
)

type contextKey string

const PrincipalContextKey contextKey = "principal"

type SessionAuthorizer interface {
	Authorize(ctx context.Context, credential, capability string) (*service.Principal, error)
}

// RequireSession admits requests carrying a live session credential.
func RequireSession(authz SessionAuthorizer, cookies security.CookieSettings) func(http.Handler) http.Handler {
	return RequireCapability(authz, cookies, "")
}

// SessionCredential reads the session cookie, falling back to a bearer
// token for non-browser clients.
func SessionCredential(r *http.Request) string {
	if raw := security.GetCookie(r, security.SessionCookieName); raw != "" {
		return raw
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func PrincipalFromContext(ctx context.Context) (*service.Principal, bool) {
	p, ok := ctx.Value(PrincipalContextKey).(*service.Principal)
	return p, ok
}

// WriteAuthError maps an orchestrator error onto the response envelope and
// clears auth cookies when the error says so.
func WriteAuthError(w http.ResponseWriter, r *http.Request, cookies security.CookieSettings, err error) {
	ae, ok := service.AsAuthError(err)
	if !ok {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	if ae.ClearCookies {
		security.ClearAuthCookies(w, cookies)
	}
	switch ae.Outcome {
	case service.OutcomeUnauthenticated:
		response.Error(w, r, http.StatusUnauthorized, errorCode(ae.Kind), "authentication required", nil)
	case service.OutcomeForbidden:
		response.Error(w, r, http.StatusForbidden, errorCode(ae.Kind), "insufficient permission", nil)
	case service.OutcomeRateLimited:
		window := ae.RetryAfter
		if window <= 0 {
			window = service.DefaultAttemptLimiterPolicy().Window
		}
		w.Header().Set("Retry-After", retryAfterHeader(window))
		response.Error(w, r, http.StatusTooManyRequests, errorCode(ae.Kind), "too many failed attempts", nil)
	default:
		response.Error(w, r, http.StatusInternalServerError, errorCode(ae.Kind), "internal error", nil)
	}
}

func errorCode(kind error) string {
	switch {
	case kind == nil:
		return "INTERNAL"
	case errors.Is(kind, service.ErrSessionExpired):
		return "SESSION_EXPIRED"
	case errors.Is(kind, service.ErrSessionRevoked):
		return "SESSION_REVOKED"
	case errors.Is(kind, service.ErrSessionInvalid):
		return "SESSION_INVALID"
	case errors.Is(kind, service.ErrRefreshNotFound):
		return "REFRESH_NOT_FOUND"
	case errors.Is(kind, service.ErrAssertionInvalid):
		return "ASSERTION_INVALID"
	case errors.Is(kind, service.ErrAccountDisabled):
		return "ACCOUNT_DISABLED"
	case errors.Is(kind, service.ErrEmailUnverified):
		return "EMAIL_UNVERIFIED"
	case errors.Is(kind, service.ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(kind, service.ErrRateLimited):
		return "RATE_LIMITED"
	case errors.Is(kind, service.ErrDependencyUnavailable):
		return "DEPENDENCY_UNAVAILABLE"
	default:
		return "INTERNAL"
	}
}
