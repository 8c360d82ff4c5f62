package handler

import (
	"errors"
	"net/http"

	"github.com/sandeepkv93/admin-trust-core/internal/http/response"
	"github.com/sandeepkv93/admin-trust-core/internal/security"
	"github.com/sandeepkv93/admin-trust-core/internal/service"

	"github.com/go-chi/chi/v5"
)

type PreviewHandler struct {
	previews *service.PreviewService
}

func NewPreviewHandler(previews *service.PreviewService) *PreviewHandler {
	return &PreviewHandler{previews: previews}
}

// View checks the preview capability for a resource. Serving the draft itself
// belongs to the content store; this endpoint only answers whether the link
// is good.
func (h *PreviewHandler) View(w http.ResponseWriter, r *http.Request) {
	resourceID := chi.URLParam(r, "resourceId")
	claims, err := h.previews.Verify(r.Context(), r.URL.Query().Get("token"), resourceID)
	switch {
	case err == nil:
		response.JSON(w, r, http.StatusOK, map[string]any{
			"resource_id": claims.ResourceID,
			"issued_by":   claims.Subject,
			"expires_at":  claims.ExpiresAt.UTC(),
		})
	case errors.Is(err, service.ErrPreviewExpired):
		response.Error(w, r, http.StatusGone, "PREVIEW_EXPIRED", "preview link has expired", nil)
	case errors.Is(err, security.ErrPreviewSecretNotConfigured):
		response.Error(w, r, http.StatusServiceUnavailable, "PREVIEW_UNAVAILABLE", "previews are not configured", nil)
	default:
		response.Error(w, r, http.StatusForbidden, "PREVIEW_INVALID", "preview link is not valid for this resource", nil)
	}
}
