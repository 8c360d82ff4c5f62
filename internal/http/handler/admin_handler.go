package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sandeepkv93/admin-trust-core/internal/http/middleware"
	"github.com/sandeepkv93/admin-trust-core/internal/http/response"
	"github.com/sandeepkv93/admin-trust-core/internal/observability"
	"github.com/sandeepkv93/admin-trust-core/internal/repository"
	"github.com/sandeepkv93/admin-trust-core/internal/security"
	"github.com/sandeepkv93/admin-trust-core/internal/service"

	"github.com/go-chi/chi/v5"
)

type AdminHandler struct {
	admin    *service.AdminService
	previews *service.PreviewService
}

func NewAdminHandler(admin *service.AdminService, previews *service.PreviewService) *AdminHandler {
	return &AdminHandler{admin: admin, previews: previews}
}

type createPreviewRequest struct {
	ResourceID string `json:"resource_id"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

func (h *AdminHandler) CreatePreview(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	var req createPreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ResourceID == "" || req.TTLSeconds < 0 {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "resource_id is required and ttl_seconds must not be negative", nil)
		return
	}
	link, err := h.previews.Issue(r.Context(), req.ResourceID, p.Claims.Subject, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		if errors.Is(err, security.ErrPreviewSecretNotConfigured) {
			slog.ErrorContext(r.Context(), "preview signing requested without a configured secret")
			response.Error(w, r, http.StatusServiceUnavailable, "PREVIEW_UNAVAILABLE", "preview signing is not configured", nil)
			return
		}
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	observability.Audit(r, "preview.issue", "subject", p.Claims.Subject, "resource_id", req.ResourceID, "expires_at", link.ExpiresAt)
	response.JSON(w, r, http.StatusCreated, link)
}

func (h *AdminHandler) RevokeSubject(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	res, err := h.admin.RevokeSubject(r.Context(), subject)
	if err != nil {
		if errors.Is(err, service.ErrDependencyUnavailable) {
			slog.ErrorContext(r.Context(), "subject revocation failed", "subject", subject, "error", err.Error())
			response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNAVAILABLE", "revocation store unavailable", nil)
			return
		}
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	observability.Audit(r, "subject.revoke", "actor", actorSubject(r), "subject", subject, "refresh_tokens", res.RefreshTokensRevoked)
	response.JSON(w, r, http.StatusOK, res)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	result, err := h.admin.ListUsers(r.Context(), repository.AdminUserListQuery{
		PageRequest: repository.PageRequest{Page: page, PageSize: pageSize},
		Email:       q.Get("email"),
		Role:        q.Get("role"),
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "list admin users failed", "error", err.Error())
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not list users", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

type setRoleRequest struct {
	Role string `json:"role"`
}

func (h *AdminHandler) SetUserRole(w http.ResponseWriter, r *http.Request) {
	email, ok := emailParam(w, r)
	if !ok {
		return
	}
	var req setRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	u, err := h.admin.SetRole(r.Context(), email, req.Role)
	if err != nil {
		if errors.Is(err, service.ErrUnknownRole) {
			response.Error(w, r, http.StatusBadRequest, "UNKNOWN_ROLE", err.Error(), nil)
			return
		}
		slog.ErrorContext(r.Context(), "set admin role failed", "error", err.Error())
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not update role", nil)
		return
	}
	observability.Audit(r, "user.role", "actor", actorSubject(r), "email", u.Email, "role", u.Role)
	response.JSON(w, r, http.StatusOK, u)
}

type setDisabledRequest struct {
	Disabled bool `json:"disabled"`
}

func (h *AdminHandler) SetUserDisabled(w http.ResponseWriter, r *http.Request) {
	email, ok := emailParam(w, r)
	if !ok {
		return
	}
	var req setDisabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	u, err := h.admin.SetDisabled(r.Context(), email, req.Disabled)
	if err != nil {
		if errors.Is(err, repository.ErrAdminUserNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
			return
		}
		slog.ErrorContext(r.Context(), "set admin disabled failed", "error", err.Error())
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not update user", nil)
		return
	}
	observability.Audit(r, "user.disabled", "actor", actorSubject(r), "email", u.Email, "disabled", u.Disabled)
	response.JSON(w, r, http.StatusOK, u)
}

func emailParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil || email == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid email", nil)
		return "", false
	}
	return email, true
}

func actorSubject(r *http.Request) string {
	if p, ok := middleware.PrincipalFromContext(r.Context()); ok {
		return p.Claims.Subject
	}
	return ""
}
