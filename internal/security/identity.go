package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/admin-trust-core/internal/domain"
)

type AssertionVerifier interface {
	Verify(ctx context.Context, assertion string) (*domain.IdentityClaims, error)
}

// RevocationStore records, per subject, the instant before which every
// session credential is void.
type RevocationStore interface {
	RevokeAllFor(ctx context.Context, subject string, at time.Time) error
	ValidAfter(ctx context.Context, subject string) (time.Time, bool, error)
}

type IdentityProvider interface {
	VerifyAssertion(ctx context.Context, assertion string) (*domain.IdentityClaims, error)
	MintSessionCredential(ctx context.Context, identity domain.IdentityClaims, ttl time.Duration) (string, *domain.SessionClaims, error)
	VerifySessionCredential(ctx context.Context, credential string) (*domain.SessionClaims, error)
	RevokeAllFor(ctx context.Context, subject string) error
}

type LocalIdentityProvider struct {
	assertions  AssertionVerifier
	signer      *SessionSigner
	revocations RevocationStore
	now         func() time.Time
}

func NewLocalIdentityProvider(assertions AssertionVerifier, signer *SessionSigner, revocations RevocationStore) *LocalIdentityProvider {
	return &LocalIdentityProvider{
		assertions:  assertions,
		signer:      signer,
		revocations: revocations,
		now:         time.Now,
	}
}

func (p *LocalIdentityProvider) VerifyAssertion(ctx context.Context, assertion string) (*domain.IdentityClaims, error) {
	if assertion == "" {
		return nil, fmt.Errorf("%w: empty assertion", ErrAssertionInvalid)
	}
	claims, err := p.assertions.Verify(ctx, assertion)
	if err != nil {
		if errors.Is(err, ErrProviderFailure) || errors.Is(err, ErrAssertionInvalid) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrAssertionInvalid, err)
	}
	if claims == nil || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrAssertionInvalid)
	}
	return claims, nil
}

func (p *LocalIdentityProvider) MintSessionCredential(_ context.Context, identity domain.IdentityClaims, ttl time.Duration) (string, *domain.SessionClaims, error) {
	return p.signer.Sign(identity, ttl)
}

func (p *LocalIdentityProvider) VerifySessionCredential(ctx context.Context, credential string) (*domain.SessionClaims, error) {
	claims, err := p.signer.Parse(credential)
	if err != nil {
		return nil, err
	}
	if p.revocations == nil {
		return claims, nil
	}
	validAfter, ok, err := p.revocations.ValidAfter(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRevocationBackend, err)
	}
	if ok && !claims.IssuedAt.After(validAfter) {
		return nil, ErrSessionRevoked
	}
	return claims, nil
}

func (p *LocalIdentityProvider) RevokeAllFor(ctx context.Context, subject string) error {
	if subject == "" {
		return fmt.Errorf("%w: empty subject", ErrSessionInvalid)
	}
	if p.revocations == nil {
		return fmt.Errorf("%w: no revocation store configured", ErrRevocationBackend)
	}
	if err := p.revocations.RevokeAllFor(ctx, subject, p.now()); err != nil {
		return fmt.Errorf("%w: %v", ErrRevocationBackend, err)
	}
	return nil
}
