package security

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sandeepkv93/admin-trust-core/internal/domain"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

type fakeRevocations struct {
	mu    sync.Mutex
	after map[string]time.Time
	err   error
}

func (f *fakeRevocations) RevokeAllFor(_ context.Context, subject string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.after == nil {
		f.after = map[string]time.Time{}
	}
	if at.After(f.after[subject]) {
		f.after[subject] = at
	}
	return nil
}

func (f *fakeRevocations) ValidAfter(_ context.Context, subject string) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return time.Time{}, false, f.err
	}
	at, ok := f.after[subject]
	return at, ok, nil
}

const fixtureSecret = "fixture-secret-fixture-secret-00"

func newFixtureProvider(t *testing.T, revocations RevocationStore) *LocalIdentityProvider {
	t.Helper()
	verifier, err := NewFixtureAssertionVerifier(fixtureSecret)
	require.NoError(t, err)
	return NewLocalIdentityProvider(verifier, newTestSigner(t), revocations)
}

func TestLocalIdentityProviderFixtureAssertion(t *testing.T) {
	provider := newFixtureProvider(t, &fakeRevocations{})
	ctx := context.Background()

	assertion, err := SignFixtureAssertion(fixtureSecret, domain.IdentityClaims{Subject: "sub-7", Email: "Ed@Example.com", EmailVerified: true}, time.Minute)
	require.NoError(t, err)

	identity, err := provider.VerifyAssertion(ctx, assertion)
	require.NoError(t, err)
	require.Equal(t, "sub-7", identity.Subject)
	require.Equal(t, "ed@example.com", identity.Email)

	_, err = provider.VerifyAssertion(ctx, "garbage")
	require.ErrorIs(t, err, ErrAssertionInvalid)

	forged, err := SignFixtureAssertion("forged-secret-forged-secret-0000", domain.IdentityClaims{Subject: "sub-7", Email: "ed@example.com"}, time.Minute)
	require.NoError(t, err)
	_, err = provider.VerifyAssertion(ctx, forged)
	require.ErrorIs(t, err, ErrAssertionInvalid)
}

func TestLocalIdentityProviderRevocation(t *testing.T) {
	provider := newFixtureProvider(t, &fakeRevocations{})
	ctx := context.Background()
	identity := domain.IdentityClaims{Subject: "sub-1", Email: "a@example.com"}

	raw, _, err := provider.MintSessionCredential(ctx, identity, time.Hour)
	require.NoError(t, err)
	_, err = provider.VerifySessionCredential(ctx, raw)
	require.NoError(t, err)

	require.NoError(t, provider.RevokeAllFor(ctx, "sub-1"))
	require.NoError(t, provider.RevokeAllFor(ctx, "sub-1"))
	_, err = provider.VerifySessionCredential(ctx, raw)
	require.ErrorIs(t, err, ErrSessionRevoked)

	time.Sleep(time.Millisecond)
	fresh, _, err := provider.MintSessionCredential(ctx, identity, time.Hour)
	require.NoError(t, err)
	claims, err := provider.VerifySessionCredential(ctx, fresh)
	require.NoError(t, err)
	require.Equal(t, "sub-1", claims.Subject)
}

func TestLocalIdentityProviderRevocationStoreFailureFailsClosed(t *testing.T) {
	store := &fakeRevocations{}
	provider := newFixtureProvider(t, store)
	ctx := context.Background()

	raw, _, err := provider.MintSessionCredential(ctx, domain.IdentityClaims{Subject: "sub-1"}, time.Hour)
	require.NoError(t, err)

	store.err = errors.New("connection refused")
	_, err = provider.VerifySessionCredential(ctx, raw)
	require.ErrorIs(t, err, ErrRevocationBackend)
	require.ErrorIs(t, provider.RevokeAllFor(ctx, "sub-1"), ErrRevocationBackend)
}

func TestOIDCAssertionVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	const issuer = "https://accounts.example.com"
	verifier := NewOIDCAssertionVerifierFrom(oidc.NewVerifier(issuer,
		&oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}},
		&oidc.Config{ClientID: "admin-console"},
	))

	sign := func(claims jwt.MapClaims) string {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
		require.NoError(t, err)
		return raw
	}
	now := time.Now()
	valid := sign(jwt.MapClaims{
		"iss": issuer, "aud": "admin-console", "sub": "google-123",
		"email": "Ada@Example.com", "email_verified": true,
		"iat": now.Unix(), "exp": now.Add(time.Minute).Unix(),
	})
	identity, err := verifier.Verify(context.Background(), valid)
	require.NoError(t, err)
	require.Equal(t, "google-123", identity.Subject)
	require.Equal(t, "ada@example.com", identity.Email)
	require.True(t, identity.EmailVerified)

	wrongAudience := sign(jwt.MapClaims{
		"iss": issuer, "aud": "someone-else", "sub": "google-123", "email": "a@example.com",
		"iat": now.Unix(), "exp": now.Add(time.Minute).Unix(),
	})
	_, err = verifier.Verify(context.Background(), wrongAudience)
	require.ErrorIs(t, err, ErrAssertionInvalid)

	noEmail := sign(jwt.MapClaims{
		"iss": issuer, "aud": "admin-console", "sub": "google-123",
		"iat": now.Unix(), "exp": now.Add(time.Minute).Unix(),
	})
	_, err = verifier.Verify(context.Background(), noEmail)
	require.ErrorIs(t, err, ErrAssertionInvalid)
}

func TestOIDCAssertionVerifierDiscoveryFailureIsProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	verifier := NewOIDCAssertionVerifier(srv.URL, "admin-console")
	require.ErrorIs(t, verifier.Discover(context.Background()), ErrProviderFailure)

	_, err := verifier.Verify(context.Background(), "anything")
	require.ErrorIs(t, err, ErrProviderFailure)
}
