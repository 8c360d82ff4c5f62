package security

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/admin-trust-core/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

const fixtureIssuer = "trustcore-fixture"

type fixtureAssertionClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

// FixtureAssertionVerifier accepts locally signed HS256 assertions. It is
// only constructed when the trust mode is fixture_bypass.
type FixtureAssertionVerifier struct {
	secret []byte
}

func NewFixtureAssertionVerifier(secret string) (*FixtureAssertionVerifier, error) {
	if len(secret) < minSecretBytes {
		return nil, fmt.Errorf("fixture assertion secret must be at least %d bytes", minSecretBytes)
	}
	return &FixtureAssertionVerifier{secret: []byte(secret)}, nil
}

func (v *FixtureAssertionVerifier) Verify(_ context.Context, assertion string) (*domain.IdentityClaims, error) {
	claims := &fixtureAssertionClaims{}
	_, err := jwt.ParseWithClaims(assertion, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(fixtureIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssertionInvalid, err)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: missing subject or email", ErrAssertionInvalid)
	}
	return &domain.IdentityClaims{
		Subject:       claims.Subject,
		Email:         strings.ToLower(claims.Email),
		EmailVerified: claims.EmailVerified,
	}, nil
}

func SignFixtureAssertion(secret string, identity domain.IdentityClaims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := fixtureAssertionClaims{
		Email:         identity.Email,
		EmailVerified: identity.EmailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    fixtureIssuer,
			Subject:   identity.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
