package security

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sandeepkv93/admin-trust-core/internal/domain"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCAssertionVerifier checks upstream ID tokens. Provider discovery runs
// on first use and is retried until it succeeds.
type OIDCAssertionVerifier struct {
	issuerURL string
	clientID  string

	mu       sync.Mutex
	verifier *oidc.IDTokenVerifier
}

func NewOIDCAssertionVerifier(issuerURL, clientID string) *OIDCAssertionVerifier {
	return &OIDCAssertionVerifier{issuerURL: issuerURL, clientID: clientID}
}

func NewOIDCAssertionVerifierFrom(verifier *oidc.IDTokenVerifier) *OIDCAssertionVerifier {
	return &OIDCAssertionVerifier{verifier: verifier}
}

// Discover fetches the provider metadata if it has not been loaded yet.
func (v *OIDCAssertionVerifier) Discover(ctx context.Context) error {
	_, err := v.idTokenVerifier(ctx)
	return err
}

func (v *OIDCAssertionVerifier) idTokenVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.verifier != nil {
		return v.verifier, nil
	}
	provider, err := oidc.NewProvider(ctx, v.issuerURL)
	if err != nil {
		return nil, fmt.Errorf("%w: discover %s: %v", ErrProviderFailure, v.issuerURL, err)
	}
	v.verifier = provider.Verifier(&oidc.Config{ClientID: v.clientID})
	return v.verifier, nil
}

func (v *OIDCAssertionVerifier) Verify(ctx context.Context, assertion string) (*domain.IdentityClaims, error) {
	verifier, err := v.idTokenVerifier(ctx)
	if err != nil {
		return nil, err
	}
	tok, err := verifier.Verify(ctx, assertion)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssertionInvalid, err)
	}
	var extra struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := tok.Claims(&extra); err != nil {
		return nil, fmt.Errorf("%w: decode claims: %v", ErrAssertionInvalid, err)
	}
	if tok.Subject == "" || extra.Email == "" {
		return nil, fmt.Errorf("%w: missing subject or email", ErrAssertionInvalid)
	}
	return &domain.IdentityClaims{
		Subject:       tok.Subject,
		Email:         strings.ToLower(extra.Email),
		EmailVerified: extra.EmailVerified,
	}, nil
}
