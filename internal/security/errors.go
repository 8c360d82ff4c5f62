package security

import "errors"

var (
	ErrAssertionInvalid  = errors.New("identity assertion invalid")
	ErrSessionExpired    = errors.New("session expired")
	ErrSessionInvalid    = errors.New("session invalid")
	ErrSessionRevoked    = errors.New("session revoked")
	ErrProviderFailure   = errors.New("identity provider unavailable")
	ErrRevocationBackend = errors.New("revocation store unavailable")

	ErrPreviewSecretNotConfigured = errors.New("preview signing secret not configured")
	ErrPreviewMalformed           = errors.New("preview token malformed")
	ErrPreviewInvalidSignature    = errors.New("preview token signature mismatch")
	ErrPreviewExpired             = errors.New("preview token expired")
	ErrPreviewResourceMismatch    = errors.New("preview token resource mismatch")
)
