package middleware

import (
	"context"
	"net/http"

	"github.com/sandeepkv93/admin-trust-core/internal/security"
)

// RequireCapability verifies the session and checks that its role grants
// capability in one orchestrator call. The resolved principal is stored in
// the request context.
func RequireCapability(authz SessionAuthorizer, cookies security.CookieSettings, capability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := authz.Authorize(r.Context(), SessionCredential(r), capability)
			if err != nil {
				WriteAuthError(w, r, cookies, err)
				return
			}
			ctx := context.WithValue(r.Context(), PrincipalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
