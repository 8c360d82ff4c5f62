package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sandeepkv93/admin-trust-core/internal/domain"
	"github.com/sandeepkv93/admin-trust-core/internal/security"
)

type failingRevocationStore struct{}

var errRevocationDown = errors.New("revocation store down")

func (failingRevocationStore) RevokeAllFor(context.Context, string, time.Time) error {
	return errRevocationDown
}

func (failingRevocationStore) ValidAfter(context.Context, string) (time.Time, bool, error) {
	return time.Time{}, false, errRevocationDown
}

func newSessionManagerForTest(t *testing.T, revocations security.RevocationStore) *SessionManager {
	t.Helper()
	verifier, err := security.NewFixtureAssertionVerifier(testFixtureSecret)
	if err != nil {
		t.Fatalf("fixture verifier: %v", err)
	}
	signer, err := security.NewSessionSigner(testSessionSecret, testSessionIssuer)
	if err != nil {
		t.Fatalf("session signer: %v", err)
	}
	return NewSessionManager(security.NewLocalIdentityProvider(verifier, signer, revocations))
}

func TestSessionManagerMintVerifyRevoke(t *testing.T) {
	ctx := context.Background()
	m := newSessionManagerForTest(t, NewInMemoryRevocationStore())

	grant, err := m.Mint(ctx, fixtureAssertion(t, testAdminSubject, testAdminEmail, true), time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	claims, err := m.Verify(ctx, grant.Credential)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != testAdminSubject || claims.Email != testAdminEmail || !claims.EmailVerified {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if err := m.Revoke(ctx, testAdminSubject); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := m.Revoke(ctx, testAdminSubject); err != nil {
		t.Fatalf("second revoke must be a no-op: %v", err)
	}
	if _, err := m.Verify(ctx, grant.Credential); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected revoked, got %v", err)
	}

	fresh, err := m.MintFor(ctx, domain.IdentityClaims{Subject: testAdminSubject, Email: testAdminEmail}, time.Hour)
	if err != nil {
		t.Fatalf("mint after revoke: %v", err)
	}
	if _, err := m.Verify(ctx, fresh.Credential); err != nil {
		t.Fatalf("credential minted after revocation must verify: %v", err)
	}
}

func TestSessionManagerErrorClasses(t *testing.T) {
	ctx := context.Background()
	m := newSessionManagerForTest(t, NewInMemoryRevocationStore())

	if _, err := m.Mint(ctx, "not-an-assertion", time.Hour); !errors.Is(err, ErrAssertionInvalid) {
		t.Fatalf("expected assertion invalid, got %v", err)
	}
	if _, err := m.Verify(ctx, "garbage"); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected session invalid, got %v", err)
	}

	down := newSessionManagerForTest(t, failingRevocationStore{})
	grant, err := down.MintFor(ctx, domain.IdentityClaims{Subject: testSupportSubject}, time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := down.Verify(ctx, grant.Credential); !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected dependency unavailable on verify, got %v", err)
	}
	if err := down.Revoke(ctx, testSupportSubject); !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected dependency unavailable on revoke, got %v", err)
	}
}
