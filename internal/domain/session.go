package domain

import "time"

// SessionClaims are the verified attributes carried by a session credential.
type SessionClaims struct {
	Subject       string
	Email         string
	EmailVerified bool
	IssuedAt      time.Time
	ExpiresAt     time.Time
	TokenID       string
}

// IdentityClaims are what an upstream identity assertion proves about the
// caller.
type IdentityClaims struct {
	Subject       string
	Email         string
	EmailVerified bool
}

type PreviewClaims struct {
	ResourceID string
	Subject    string
	ExpiresAt  time.Time
}
