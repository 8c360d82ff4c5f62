package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sandeepkv93/admin-trust-core/internal/http/middleware"
	"github.com/sandeepkv93/admin-trust-core/internal/http/response"
	"github.com/sandeepkv93/admin-trust-core/internal/observability"
	"github.com/sandeepkv93/admin-trust-core/internal/security"
	"github.com/sandeepkv93/admin-trust-core/internal/service"
)

type AuthHandler struct {
	auth    *service.AuthService
	cookies security.CookieSettings
}

func NewAuthHandler(auth *service.AuthService, cookies security.CookieSettings) *AuthHandler {
	return &AuthHandler{auth: auth, cookies: cookies}
}

type loginRequest struct {
	Assertion string `json:"assertion"`
	Remember  bool   `json:"remember"`
}

type sessionResponse struct {
	Subject       string    `json:"subject"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	Role          string    `json:"role,omitempty"`
	ExpiresAt     time.Time `json:"expires_at"`
	Remembered    bool      `json:"remembered"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	res, err := h.auth.Login(r.Context(), service.LoginInput{
		Assertion: req.Assertion,
		ClientIP:  middleware.ClientIP(r),
		Remember:  req.Remember,
	})
	if err != nil {
		observability.Audit(r, "auth.login", "outcome", auditOutcome(err))
		middleware.WriteAuthError(w, r, h.cookies, err)
		return
	}
	h.writeSession(w, res)
	observability.Audit(r, "auth.login", "outcome", "success", "subject", res.Session.Claims.Subject, "remember", res.RefreshToken != "")
	response.JSON(w, r, http.StatusOK, toSessionResponse(res))
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.auth.Refresh(r.Context(), security.GetCookie(r, security.RefreshCookieName), middleware.ClientIP(r))
	if err != nil {
		observability.Audit(r, "auth.refresh", "outcome", auditOutcome(err))
		middleware.WriteAuthError(w, r, h.cookies, err)
		return
	}
	h.writeSession(w, res)
	observability.Audit(r, "auth.refresh", "outcome", "success", "subject", res.Session.Claims.Subject)
	response.JSON(w, r, http.StatusOK, toSessionResponse(res))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	out := h.auth.Logout(r.Context(), middleware.SessionCredential(r), security.GetCookie(r, security.RefreshCookieName))
	security.ClearAuthCookies(w, h.cookies)
	observability.Audit(r, "auth.logout", "subject", out.Subject, "revoked", out.Revoked)
	response.JSON(w, r, http.StatusOK, map[string]bool{"logged_out": true})
}

func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.auth.VerificationStatus(r.Context(), middleware.SessionCredential(r), security.GetCookie(r, security.VerifiedCookieName))
	if err != nil {
		middleware.WriteAuthError(w, r, h.cookies, err)
		return
	}
	if st.HintStale {
		switch st.Hint {
		case "":
			security.ClearVerifiedHint(w, h.cookies)
		default:
			security.SetVerifiedHint(w, h.cookies, st.ServerVerified)
		}
	}
	response.JSON(w, r, http.StatusOK, st)
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, res *service.LoginResult) {
	security.SetSessionCookie(w, h.cookies, res.Session.Credential)
	if res.RefreshToken != "" {
		security.SetRefreshCookie(w, h.cookies, res.RefreshToken)
	}
	security.SetVerifiedHint(w, h.cookies, res.Session.Claims.EmailVerified)
}

func toSessionResponse(res *service.LoginResult) sessionResponse {
	c := res.Session.Claims
	return sessionResponse{
		Subject:       c.Subject,
		Email:         c.Email,
		EmailVerified: c.EmailVerified,
		Role:          res.Role,
		ExpiresAt:     c.ExpiresAt.UTC(),
		Remembered:    res.RefreshToken != "",
	}
}

func auditOutcome(err error) string {
	if ae, ok := service.AsAuthError(err); ok {
		return string(ae.Outcome)
	}
	return "error"
}
