package service

import (
	"errors"
	"strings"
	"time"

	"github.com/sandeepkv93/admin-trust-core/internal/security"
)

var (
	ErrAssertionInvalid        = security.ErrAssertionInvalid
	ErrSessionExpired          = security.ErrSessionExpired
	ErrSessionInvalid          = security.ErrSessionInvalid
	ErrSessionRevoked          = security.ErrSessionRevoked
	ErrPreviewExpired          = security.ErrPreviewExpired
	ErrPreviewInvalidSignature = security.ErrPreviewInvalidSignature
	ErrPreviewResourceMismatch = security.ErrPreviewResourceMismatch
	ErrPreviewMalformed        = security.ErrPreviewMalformed

	ErrRefreshNotFound       = errors.New("refresh token not found")
	ErrRateLimited           = errors.New("too many failed attempts")
	ErrForbidden             = errors.New("forbidden")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrAccountDisabled       = errors.New("account disabled")
)

type Outcome string

const (
	OutcomeUnauthenticated Outcome = "unauthenticated"
	OutcomeForbidden       Outcome = "forbidden"
	OutcomeRateLimited     Outcome = "rate_limited"
	OutcomeServerError     Outcome = "server_error"
)

// AuthError is the only error type returned across the AuthService boundary.
// Kind is one of the sentinels above; Err keeps internal detail for logs.
// RetryAfter is set on rate-limited errors to the lockout window.
type AuthError struct {
	Kind         error
	Outcome      Outcome
	ClearCookies bool
	RetryAfter   time.Duration
	Err          error
}

func (e *AuthError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Outcome))
	if e.Kind != nil {
		b.WriteString(": ")
		b.WriteString(e.Kind.Error())
	}
	if e.Err != nil && e.Err != e.Kind {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *AuthError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func unauthenticated(kind error, clear bool, err error) *AuthError {
	return &AuthError{Kind: kind, Outcome: OutcomeUnauthenticated, ClearCookies: clear, Err: err}
}

func forbidden(kind error) *AuthError {
	return &AuthError{Kind: kind, Outcome: OutcomeForbidden}
}

func rateLimited(retryAfter time.Duration) *AuthError {
	return &AuthError{Kind: ErrRateLimited, Outcome: OutcomeRateLimited, RetryAfter: retryAfter}
}

func serverError(err error) *AuthError {
	return &AuthError{Kind: ErrDependencyUnavailable, Outcome: OutcomeServerError, Err: err}
}

func AsAuthError(err error) (*AuthError, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
