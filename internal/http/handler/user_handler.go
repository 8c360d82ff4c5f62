package handler

import (
	"net/http"
	"time"

	"github.com/sandeepkv93/admin-trust-core/internal/http/middleware"
	"github.com/sandeepkv93/admin-trust-core/internal/http/response"
)

type UserHandler struct{}

func NewUserHandler() *UserHandler { return &UserHandler{} }

type meResponse struct {
	Subject       string    `json:"subject"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	Role          string    `json:"role"`
	Capabilities  []string  `json:"capabilities"`
	ExpiresAt     time.Time `json:"expires_at"`
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, meResponse{
		Subject:       p.Claims.Subject,
		Email:         p.Claims.Email,
		EmailVerified: p.Claims.EmailVerified,
		Role:          p.Role,
		Capabilities:  p.Capabilities,
		ExpiresAt:     p.Claims.ExpiresAt.UTC(),
	})
}
