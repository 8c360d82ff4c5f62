package security

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sandeepkv93/admin-trust-core/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

const (
	sessionTokenType = "session"
	sessionKeyInfo   = "admin-trust-core/session/v1"
	minSecretBytes   = 32
)

type sessionTokenClaims struct {
	TokenType     string `json:"token_type"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	IssuedAtNano  int64  `json:"iat_ns"`
	jwt.RegisteredClaims
}

type SessionSigner struct {
	issuer string
	key    []byte
	now    func() time.Time
}

func NewSessionSigner(secret, issuer string) (*SessionSigner, error) {
	if len(secret) < minSecretBytes {
		return nil, fmt.Errorf("session secret must be at least %d bytes", minSecretBytes)
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(sessionKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return &SessionSigner{issuer: issuer, key: key, now: time.Now}, nil
}

// WithClock replaces the time source; used by tests.
func (s *SessionSigner) WithClock(now func() time.Time) *SessionSigner {
	cp := *s
	cp.now = now
	return &cp
}

func (s *SessionSigner) Sign(identity domain.IdentityClaims, ttl time.Duration) (string, *domain.SessionClaims, error) {
	if strings.TrimSpace(identity.Subject) == "" {
		return "", nil, fmt.Errorf("%w: empty subject", ErrAssertionInvalid)
	}
	if ttl <= 0 {
		return "", nil, fmt.Errorf("session ttl must be positive, got %s", ttl)
	}
	now := s.now()
	out := &domain.SessionClaims{
		Subject:       identity.Subject,
		Email:         identity.Email,
		EmailVerified: identity.EmailVerified,
		IssuedAt:      now,
		ExpiresAt:     now.Add(ttl),
		TokenID:       uuid.NewString(),
	}
	claims := sessionTokenClaims{
		TokenType:     sessionTokenType,
		Email:         out.Email,
		EmailVerified: out.EmailVerified,
		IssuedAtNano:  now.UnixNano(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   out.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(out.ExpiresAt),
			ID:        out.TokenID,
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", nil, fmt.Errorf("sign session: %w", err)
	}
	return raw, out, nil
}

func (s *SessionSigner) Parse(raw string) (*domain.SessionClaims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty credential", ErrSessionInvalid)
	}
	claims := &sessionTokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}
	switch {
	case claims.TokenType != sessionTokenType:
		return nil, fmt.Errorf("%w: unexpected token type %q", ErrSessionInvalid, claims.TokenType)
	case claims.Subject == "":
		return nil, fmt.Errorf("%w: missing subject", ErrSessionInvalid)
	case claims.ID == "":
		return nil, fmt.Errorf("%w: missing token id", ErrSessionInvalid)
	case claims.IssuedAtNano <= 0:
		return nil, fmt.Errorf("%w: missing issue stamp", ErrSessionInvalid)
	}
	return &domain.SessionClaims{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		IssuedAt:      time.Unix(0, claims.IssuedAtNano),
		ExpiresAt:     claims.ExpiresAt.Time,
		TokenID:       claims.ID,
	}, nil
}
