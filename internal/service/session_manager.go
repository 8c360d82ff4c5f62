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

type SessionGrant struct {
	Credential string
	Claims     *domain.SessionClaims
}

type SessionManager struct {
	provider security.IdentityProvider
}

func NewSessionManager(provider security.IdentityProvider) *SessionManager {
	return &SessionManager{provider: provider}
}

// Mint exchanges an upstream identity assertion for a session credential.
func (m *SessionManager) Mint(ctx context.Context, assertion string, ttl time.Duration) (*SessionGrant, error) {
	identity, err := m.provider.VerifyAssertion(ctx, assertion)
	if err != nil {
		if errors.Is(err, security.ErrProviderFailure) {
			return nil, fmt.Errorf("%w: %w", ErrDependencyUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrAssertionInvalid, err)
	}
	return m.MintFor(ctx, *identity, ttl)
}

// MintFor issues a credential for an identity the caller has already
// established, e.g. through a redeemed refresh token.
func (m *SessionManager) MintFor(ctx context.Context, identity domain.IdentityClaims, ttl time.Duration) (*SessionGrant, error) {
	raw, claims, err := m.provider.MintSessionCredential(ctx, identity, ttl)
	if err != nil {
		return nil, fmt.Errorf("mint session credential: %w", err)
	}
	return &SessionGrant{Credential: raw, Claims: claims}, nil
}

func (m *SessionManager) Verify(ctx context.Context, credential string) (*domain.SessionClaims, error) {
	claims, err := m.provider.VerifySessionCredential(ctx, credential)
	switch {
	case err == nil:
		observability.RecordSessionVerification(ctx, "valid")
		return claims, nil
	case errors.Is(err, ErrSessionExpired):
		observability.RecordSessionVerification(ctx, "expired")
		return nil, err
	case errors.Is(err, ErrSessionRevoked):
		observability.RecordSessionVerification(ctx, "revoked")
		return nil, err
	case errors.Is(err, security.ErrRevocationBackend), errors.Is(err, security.ErrProviderFailure):
		observability.RecordSessionVerification(ctx, "dependency_error")
		return nil, fmt.Errorf("%w: %w", ErrDependencyUnavailable, err)
	default:
		observability.RecordSessionVerification(ctx, "invalid")
		if !errors.Is(err, ErrSessionInvalid) {
			err = fmt.Errorf("%w: %w", ErrSessionInvalid, err)
		}
		return nil, err
	}
}

// Revoke voids every outstanding credential of subject. Revoking twice is
// not an error.
func (m *SessionManager) Revoke(ctx context.Context, subject string) error {
	if err := m.provider.RevokeAllFor(ctx, subject); err != nil {
		observability.RecordSessionRevocation(ctx, "subject", "error")
		if errors.Is(err, security.ErrRevocationBackend) {
			return fmt.Errorf("%w: %w", ErrDependencyUnavailable, err)
		}
		return err
	}
	observability.RecordSessionRevocation(ctx, "subject", "success")
	return nil
}
