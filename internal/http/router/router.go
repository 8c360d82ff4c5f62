package router

import (
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/admin-trust-core/internal/health"
	"github.com/sandeepkv93/admin-trust-core/internal/http/handler"
	"github.com/sandeepkv93/admin-trust-core/internal/http/middleware"
	"github.com/sandeepkv93/admin-trust-core/internal/http/response"
	"github.com/sandeepkv93/admin-trust-core/internal/security"
	"github.com/sandeepkv93/admin-trust-core/internal/service"
)

type Dependencies struct {
	AuthHandler      *handler.AuthHandler
	UserHandler      *handler.UserHandler
	AdminHandler     *handler.AdminHandler
	PreviewHandler   *handler.PreviewHandler
	Authorizer       middleware.SessionAuthorizer
	Cookies          security.CookieSettings
	AuthRateLimitRPM int
	AuthRateLimiter  AuthRateLimiterFunc
	TrustedProxies   []netip.Prefix
	Readiness        *health.ProbeRunner
	EnableOTelHTTP   bool
}

type AuthRateLimiterFunc func(http.Handler) http.Handler

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP(dep.TrustedProxies))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.BodyLimit(1 << 20))

	authLimiter := dep.AuthRateLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewRateLimiter(dep.AuthRateLimitRPM, "auth").Middleware()
	}
	requireSession := middleware.RequireSession(dep.Authorizer, dep.Cookies)
	requireCapability := func(capability string) func(http.Handler) http.Handler {
		return middleware.RequireCapability(dep.Authorizer, dep.Cookies, capability)
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Get("/preview/{resourceId}", dep.PreviewHandler.View)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter)
			r.Post("/login", dep.AuthHandler.Login)
			r.Post("/refresh", dep.AuthHandler.Refresh)
			r.Post("/logout", dep.AuthHandler.Logout)
			r.Get("/status", dep.AuthHandler.Status)
		})

		r.With(requireSession).Get("/me", dep.UserHandler.Me)

		r.Route("/admin", func(r chi.Router) {
			r.With(requireCapability(service.CanCreatePreviews)).Post("/previews", dep.AdminHandler.CreatePreview)
			r.Group(func(r chi.Router) {
				r.Use(requireCapability(service.CanManageUsers))
				r.Post("/subjects/{subject}/revoke", dep.AdminHandler.RevokeSubject)
				r.Get("/users", dep.AdminHandler.ListUsers)
				r.Patch("/users/{email}/role", dep.AdminHandler.SetUserRole)
				r.Patch("/users/{email}/disabled", dep.AdminHandler.SetUserDisabled)
			})
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
