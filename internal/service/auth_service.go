package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sandeepkv93/admin-trust-core/internal/config"
	"github.com/sandeepkv93/admin-trust-core/internal/domain"
	"github.com/sandeepkv93/admin-trust-core/internal/observability"
	"github.com/sandeepkv93/admin-trust-core/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrEmailUnverified = errors.New("email not verified")

type AuthServiceConfig struct {
	SessionTTL time.Duration
	TrustMode  config.TrustMode
}

type LoginInput struct {
	Assertion string
	ClientIP  string
	Remember  bool
}

type LoginResult struct {
	Session      *SessionGrant
	RefreshToken string
	Role         string
}

type Principal struct {
	Claims       *domain.SessionClaims
	Role         string
	Capabilities []string
}

type VerificationStatus struct {
	Authenticated        bool `json:"authenticated"`
	ServerVerified       bool `json:"server_verified"`
	RequiresVerification bool `json:"requires_verification"`
	// Hint is the value the verified hint cookie should carry after this
	// call; empty means clear it.
	Hint      string `json:"-"`
	HintStale bool   `json:"-"`
}

type LogoutResult struct {
	Subject string
	Revoked bool
}

type AuthService struct {
	sessions  *SessionManager
	refresh   *RefreshTokenStore
	limiter   *AttemptLimiter
	roles     RoleResolver
	directory AdminDirectory
	perms     PermissionTable
	cfg       AuthServiceConfig
	now       func() time.Time
}

func NewAuthService(
	sessions *SessionManager,
	refresh *RefreshTokenStore,
	limiter *AttemptLimiter,
	roles RoleResolver,
	directory AdminDirectory,
	perms PermissionTable,
	cfg AuthServiceConfig,
) *AuthService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	return &AuthService{
		sessions:  sessions,
		refresh:   refresh,
		limiter:   limiter,
		roles:     roles,
		directory: directory,
		perms:     perms,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *AuthService) SessionTTL() time.Duration { return s.cfg.SessionTTL }

// Login exchanges an identity assertion for a session. The attempt is
// counted against the client address before the provider is contacted and
// the count is cleared on success, so the attempt that crosses the threshold
// is refused without reaching the provider.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	ctx, span := observability.Tracer().Start(ctx, "auth.login", trace.WithAttributes(attribute.Bool("remember", in.Remember)))
	defer span.End()

	if s.limiter.IsLocked(ctx, in.ClientIP) {
		observability.RecordAuthLogin(ctx, "rate_limited")
		return nil, finishSpan(span, rateLimited(s.limiter.Policy().Window))
	}
	if s.limiter.Exceeded(s.limiter.RecordFailure(ctx, in.ClientIP)) {
		observability.RecordAuthLogin(ctx, "rate_limited")
		return nil, finishSpan(span, rateLimited(s.limiter.Policy().Window))
	}

	grant, err := s.sessions.Mint(ctx, in.Assertion, s.cfg.SessionTTL)
	if err != nil {
		if errors.Is(err, ErrDependencyUnavailable) {
			observability.RecordAuthLogin(ctx, "provider_error")
			slog.ErrorContext(ctx, "identity provider unavailable during login", "error", err.Error())
			return nil, finishSpan(span, unauthenticated(ErrDependencyUnavailable, false, err))
		}
		observability.RecordAuthLogin(ctx, "assertion_invalid")
		slog.InfoContext(ctx, "login assertion rejected", "error", err.Error())
		return nil, finishSpan(span, unauthenticated(ErrAssertionInvalid, false, err))
	}
	s.limiter.Reset(ctx, in.ClientIP)

	claims := grant.Claims
	identity := domain.IdentityClaims{Subject: claims.Subject, Email: claims.Email, EmailVerified: claims.EmailVerified}
	user, err := s.directory.RecordLogin(ctx, identity, s.now())
	if err != nil {
		observability.RecordAuthLogin(ctx, "directory_error")
		slog.ErrorContext(ctx, "admin directory unavailable during login", "error", err.Error())
		return nil, finishSpan(span, serverError(err))
	}
	if user.Disabled {
		observability.RecordAuthLogin(ctx, "disabled")
		return nil, finishSpan(span, forbidden(ErrAccountDisabled))
	}
	if err := s.roles.InvalidateSubject(ctx, claims.Subject); err != nil {
		slog.WarnContext(ctx, "role cache invalidation failed", "error", err.Error())
	}

	out := &LoginResult{Session: grant, Role: user.Role}
	// Refresh redeems against the directory, so a transient entry gets none.
	if in.Remember && user.ID != 0 {
		token, err := s.refresh.Issue(ctx, claims.Subject)
		if err != nil {
			slog.WarnContext(ctx, "refresh token not issued, continuing with session only", "error", err.Error())
		} else {
			out.RefreshToken = token
		}
	}
	span.SetAttributes(attribute.Bool("refresh_issued", out.RefreshToken != ""))
	observability.RecordAuthLogin(ctx, "success")
	return out, nil
}

// Authorize verifies a session credential and checks it grants capability.
// An empty capability only requires a live session.
func (s *AuthService) Authorize(ctx context.Context, credential, capability string) (*Principal, error) {
	if credential == "" {
		return nil, unauthenticated(ErrSessionInvalid, false, errors.New("missing session credential"))
	}
	claims, err := s.sessions.Verify(ctx, credential)
	if err != nil {
		if errors.Is(err, ErrDependencyUnavailable) {
			slog.ErrorContext(ctx, "session verification dependency unavailable", "error", err.Error())
			return nil, unauthenticated(ErrDependencyUnavailable, false, err)
		}
		return nil, unauthenticated(sessionKind(err), true, err)
	}

	// Only a verified email may fall back to an email-keyed directory row.
	lookupEmail := ""
	if claims.EmailVerified {
		lookupEmail = claims.Email
	}
	role, err := s.roles.ResolveRole(ctx, claims.Subject, lookupEmail)
	if err != nil {
		if capability != "" {
			slog.ErrorContext(ctx, "role resolution failed", "error", err.Error())
			return nil, serverError(fmt.Errorf("resolve role: %w", err))
		}
		slog.WarnContext(ctx, "role resolution failed, continuing without role", "error", err.Error())
		role = ""
	}
	principal := &Principal{Claims: claims, Role: role, Capabilities: s.perms.Capabilities(role)}
	if capability == "" {
		return principal, nil
	}
	if !s.perms.Allows(role, capability) {
		return nil, forbidden(ErrForbidden)
	}
	if s.verificationRequired(claims.EmailVerified) {
		return nil, forbidden(ErrEmailUnverified)
	}
	return principal, nil
}

// Refresh redeems a refresh token and rotates it. Any failure tells the
// caller to drop its cookies since the presented token is dead either way.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, clientIP string) (*LoginResult, error) {
	ctx, span := observability.Tracer().Start(ctx, "auth.refresh")
	defer span.End()

	if refreshToken == "" {
		observability.RecordAuthRefresh(ctx, "missing")
		return nil, finishSpan(span, unauthenticated(ErrRefreshNotFound, true, nil))
	}
	if s.limiter.IsLocked(ctx, clientIP) {
		observability.RecordAuthRefresh(ctx, "rate_limited")
		return nil, finishSpan(span, rateLimited(s.limiter.Policy().Window))
	}

	subject, err := s.refresh.Redeem(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrDependencyUnavailable) {
			observability.RecordAuthRefresh(ctx, "store_error")
			slog.ErrorContext(ctx, "refresh store unavailable", "error", err.Error())
			return nil, finishSpan(span, unauthenticated(ErrDependencyUnavailable, true, err))
		}
		s.limiter.RecordFailure(ctx, clientIP)
		observability.RecordAuthRefresh(ctx, "not_found")
		return nil, finishSpan(span, unauthenticated(ErrRefreshNotFound, true, err))
	}

	user, err := s.directory.FindBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrAdminUserNotFound) {
			observability.RecordAuthRefresh(ctx, "unknown_subject")
			return nil, finishSpan(span, unauthenticated(ErrSessionRevoked, true, err))
		}
		observability.RecordAuthRefresh(ctx, "directory_error")
		ae := serverError(err)
		ae.ClearCookies = true
		return nil, finishSpan(span, ae)
	}
	if user.Disabled {
		observability.RecordAuthRefresh(ctx, "disabled")
		return nil, finishSpan(span, unauthenticated(ErrAccountDisabled, true, nil))
	}

	grant, err := s.sessions.MintFor(ctx, domain.IdentityClaims{
		Subject:       subject,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
	}, s.cfg.SessionTTL)
	if err != nil {
		observability.RecordAuthRefresh(ctx, "mint_error")
		ae := serverError(err)
		ae.ClearCookies = true
		return nil, finishSpan(span, ae)
	}
	next, err := s.refresh.Issue(ctx, subject)
	if err != nil {
		slog.WarnContext(ctx, "rotated refresh token not issued", "error", err.Error())
	}
	s.limiter.Reset(ctx, clientIP)
	observability.RecordAuthRefresh(ctx, "success")
	return &LoginResult{Session: grant, RefreshToken: next, Role: user.Role}, nil
}

// Logout revokes whatever the presented credentials prove ownership of. It
// never fails; callers clear cookies unconditionally.
func (s *AuthService) Logout(ctx context.Context, credential, refreshToken string) LogoutResult {
	ctx, span := observability.Tracer().Start(ctx, "auth.logout")
	defer span.End()

	var subject string
	if credential != "" {
		if claims, err := s.sessions.Verify(ctx, credential); err == nil {
			subject = claims.Subject
		} else {
			slog.DebugContext(ctx, "logout with unverifiable session", "error", err.Error())
		}
	}
	if refreshToken != "" {
		redeemed, err := s.refresh.Redeem(ctx, refreshToken)
		if err == nil && subject == "" {
			subject = redeemed
		}
	}
	if subject == "" {
		observability.RecordAuthLogout(ctx, "anonymous")
		return LogoutResult{}
	}

	out := LogoutResult{Subject: subject, Revoked: true}
	if err := s.sessions.Revoke(ctx, subject); err != nil {
		out.Revoked = false
		slog.ErrorContext(ctx, "session revocation failed during logout", "error", err.Error())
	}
	if _, err := s.refresh.RevokeAll(ctx, subject); err != nil {
		slog.ErrorContext(ctx, "refresh revocation failed during logout", "error", err.Error())
	}
	if out.Revoked {
		observability.RecordAuthLogout(ctx, "success")
	} else {
		observability.RecordAuthLogout(ctx, "partial")
	}
	return out
}

// VerificationStatus reconciles the client's verified hint with the live
// session. The hint is only echoed back when there is no session at all.
func (s *AuthService) VerificationStatus(ctx context.Context, credential, hint string) (VerificationStatus, error) {
	if credential == "" {
		return VerificationStatus{Hint: "", HintStale: hint != ""}, nil
	}
	claims, err := s.sessions.Verify(ctx, credential)
	if err != nil {
		if errors.Is(err, ErrDependencyUnavailable) {
			return VerificationStatus{}, unauthenticated(ErrDependencyUnavailable, false, err)
		}
		return VerificationStatus{HintStale: hint != ""}, unauthenticated(sessionKind(err), true, err)
	}

	verified := claims.EmailVerified
	if user, err := s.directory.FindBySubject(ctx, claims.Subject); err == nil {
		verified = user.EmailVerified
	} else if !errors.Is(err, repository.ErrAdminUserNotFound) {
		slog.WarnContext(ctx, "directory lookup failed, using session claims for verification state", "error", err.Error())
	}

	out := VerificationStatus{
		Authenticated:        true,
		ServerVerified:       verified,
		RequiresVerification: s.verificationRequired(verified),
		Hint:                 "0",
	}
	if verified {
		out.Hint = "1"
	}
	out.HintStale = hint != out.Hint
	return out, nil
}

func (s *AuthService) verificationRequired(verified bool) bool {
	if verified {
		return false
	}
	if s.cfg.TrustMode.Bypass() {
		observability.RecordTrustModeBypass(context.Background(), "email_verification")
		return false
	}
	return true
}

func sessionKind(err error) error {
	switch {
	case errors.Is(err, ErrSessionExpired):
		return ErrSessionExpired
	case errors.Is(err, ErrSessionRevoked):
		return ErrSessionRevoked
	default:
		return ErrSessionInvalid
	}
}

func finishSpan(span trace.Span, ae *AuthError) *AuthError {
	span.SetAttributes(attribute.String("auth.outcome", string(ae.Outcome)))
	if ae.Outcome == OutcomeServerError {
		span.SetStatus(codes.Error, ae.Error())
	}
	return ae
}
