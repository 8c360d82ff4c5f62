package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/admin-trust-core/internal/domain"
	"github.com/sandeepkv93/admin-trust-core/internal/observability"
	"github.com/sandeepkv93/admin-trust-core/internal/security"
)

const MaxPreviewTTL = 7 * 24 * time.Hour

type PreviewLink struct {
	ResourceID string    `json:"resource_id"`
	Token      string    `json:"token"`
	URL        string    `json:"url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type PreviewService struct {
	codec      *security.PreviewCodec
	baseURL    string
	defaultTTL time.Duration
	now        func() time.Time
}

func NewPreviewService(codec *security.PreviewCodec, baseURL string, defaultTTL time.Duration) *PreviewService {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &PreviewService{codec: codec, baseURL: baseURL, defaultTTL: defaultTTL, now: time.Now}
}

// Issue signs a preview link for resourceID on behalf of subject. A zero ttl
// uses the configured default.
func (s *PreviewService) Issue(ctx context.Context, resourceID, subject string, ttl time.Duration) (*PreviewLink, error) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if ttl > MaxPreviewTTL {
		observability.RecordPreviewEvent(ctx, "sign", "ttl_too_long")
		return nil, fmt.Errorf("preview ttl %s exceeds maximum %s", ttl, MaxPreviewTTL)
	}
	seconds := int64(ttl / time.Second)
	token, err := s.codec.Sign(resourceID, subject, seconds)
	if err != nil {
		outcome := "error"
		if errors.Is(err, security.ErrPreviewSecretNotConfigured) {
			outcome = "not_configured"
		}
		observability.RecordPreviewEvent(ctx, "sign", outcome)
		return nil, err
	}
	observability.RecordPreviewEvent(ctx, "sign", "success")
	return &PreviewLink{
		ResourceID: resourceID,
		Token:      token,
		URL:        security.PreviewLink(s.baseURL, resourceID, token),
		ExpiresAt:  s.now().Add(time.Duration(seconds) * time.Second).UTC(),
	}, nil
}

func (s *PreviewService) Verify(ctx context.Context, token, resourceID string) (*domain.PreviewClaims, error) {
	claims, err := s.codec.Verify(token, resourceID)
	observability.RecordPreviewEvent(ctx, "verify", previewOutcome(err))
	return claims, err
}

func previewOutcome(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, ErrPreviewExpired):
		return "expired"
	case errors.Is(err, ErrPreviewInvalidSignature):
		return "bad_signature"
	case errors.Is(err, ErrPreviewResourceMismatch):
		return "resource_mismatch"
	case errors.Is(err, security.ErrPreviewSecretNotConfigured):
		return "not_configured"
	default:
		return "malformed"
	}
}
