package security

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sandeepkv93/admin-trust-core/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

type previewTokenClaims struct {
	ResourceID string `json:"rid"`
	jwt.RegisteredClaims
}

// PreviewCodec signs and verifies stateless preview capabilities. There is no
// server-side record; rotating the secret is the only way to void a token
// before it expires.
type PreviewCodec struct {
	secret []byte
	now    func() time.Time
}

func NewPreviewCodec(secret string) *PreviewCodec {
	return &PreviewCodec{secret: []byte(secret), now: time.Now}
}

func (c *PreviewCodec) WithClock(now func() time.Time) *PreviewCodec {
	cp := *c
	cp.now = now
	return &cp
}

func (c *PreviewCodec) Configured() bool { return len(c.secret) > 0 }

func (c *PreviewCodec) Sign(resourceID, subject string, ttlSeconds int64) (string, error) {
	if !c.Configured() {
		return "", ErrPreviewSecretNotConfigured
	}
	if strings.TrimSpace(resourceID) == "" {
		return "", errors.New("preview resource id is required")
	}
	claims := previewTokenClaims{
		ResourceID: resourceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(c.now().Add(time.Duration(ttlSeconds) * time.Second)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign preview token: %w", err)
	}
	return raw, nil
}

// Verify checks the MAC first, then expiry, then the resource binding, so an
// expired token is always reported as expired rather than invalid.
func (c *PreviewCodec) Verify(token, expectedResourceID string) (*domain.PreviewClaims, error) {
	if !c.Configured() {
		return nil, ErrPreviewSecretNotConfigured
	}
	claims := &previewTokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrPreviewInvalidSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrPreviewExpired
		default:
			return nil, fmt.Errorf("%w: %v", ErrPreviewMalformed, err)
		}
	}
	if claims.ResourceID == "" {
		return nil, fmt.Errorf("%w: missing resource id", ErrPreviewMalformed)
	}
	if claims.ResourceID != expectedResourceID {
		return nil, ErrPreviewResourceMismatch
	}
	return &domain.PreviewClaims{
		ResourceID: claims.ResourceID,
		Subject:    claims.Subject,
		ExpiresAt:  claims.ExpiresAt.Time,
	}, nil
}

func PreviewLink(baseURL, resourceID, token string) string {
	return fmt.Sprintf("%s/preview/%s?token=%s",
		strings.TrimRight(baseURL, "/"),
		url.PathEscape(resourceID),
		url.QueryEscape(token),
	)
}
