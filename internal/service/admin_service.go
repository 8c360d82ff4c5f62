package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/sandeepkv93/admin-trust-core/internal/domain"
	"github.com/sandeepkv93/admin-trust-core/internal/repository"
)

var ErrUnknownRole = errors.New("unknown role")

type RevocationResult struct {
	Subject              string `json:"subject"`
	RefreshTokensRevoked int64  `json:"refresh_tokens_revoked"`
}

// AdminService manages the admin directory and forced sign-out.
type AdminService struct {
	directory AdminDirectory
	sessions  *SessionManager
	refresh   *RefreshTokenStore
	roles     *CachedRoleResolver
	perms     PermissionTable
}

func NewAdminService(directory AdminDirectory, sessions *SessionManager, refresh *RefreshTokenStore, roles *CachedRoleResolver, perms PermissionTable) *AdminService {
	return &AdminService{directory: directory, sessions: sessions, refresh: refresh, roles: roles, perms: perms}
}

// RevokeSubject signs subject out everywhere: sessions via the revocation
// list, refresh tokens by deletion.
func (s *AdminService) RevokeSubject(ctx context.Context, subject string) (*RevocationResult, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, errors.New("subject is required")
	}
	if err := s.sessions.Revoke(ctx, subject); err != nil {
		return nil, fmt.Errorf("revoke sessions: %w", err)
	}
	n, err := s.refresh.RevokeAll(ctx, subject)
	if err != nil {
		return nil, err
	}
	if err := s.roles.InvalidateSubject(ctx, subject); err != nil {
		slog.WarnContext(ctx, "role cache invalidation failed", "subject", subject, "error", err.Error())
	}
	return &RevocationResult{Subject: subject, RefreshTokensRevoked: n}, nil
}

func (s *AdminService) SetRole(ctx context.Context, email, role string) (*domain.AdminUser, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role != "" && !s.perms.KnownRole(role) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	u, err := s.directory.UpsertRole(ctx, email, role)
	if err != nil {
		return nil, err
	}
	s.invalidateUser(ctx, u)
	return u, nil
}

// SetDisabled flips the disabled flag. Disabling also revokes the user's
// outstanding credentials when the directory knows their subject.
func (s *AdminService) SetDisabled(ctx context.Context, email string, disabled bool) (*domain.AdminUser, error) {
	u, err := s.directory.SetDisabled(ctx, email, disabled)
	if err != nil {
		return nil, err
	}
	if disabled && u.Subject != nil {
		if _, err := s.RevokeSubject(ctx, *u.Subject); err != nil {
			return nil, err
		}
		return u, nil
	}
	s.invalidateUser(ctx, u)
	return u, nil
}

func (s *AdminService) ListUsers(ctx context.Context, query repository.AdminUserListQuery) (repository.PageResult[domain.AdminUser], error) {
	return s.directory.ListPaged(ctx, query)
}

// Bootstrap seeds directory roles from configuration. Existing rows keep
// their subject link and only have their role overwritten.
func (s *AdminService) Bootstrap(ctx context.Context, assignments map[string]string) error {
	emails := make([]string, 0, len(assignments))
	for email := range assignments {
		emails = append(emails, email)
	}
	sort.Strings(emails)

	var errs []error
	for _, email := range emails {
		if _, err := s.SetRole(ctx, email, assignments[email]); err != nil {
			errs = append(errs, fmt.Errorf("bootstrap %s: %w", email, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	if len(emails) > 0 {
		slog.InfoContext(ctx, "admin directory bootstrapped", "assignments", len(emails))
	}
	return nil
}

func (s *AdminService) invalidateUser(ctx context.Context, u *domain.AdminUser) {
	if u == nil || u.Subject == nil {
		return
	}
	if err := s.roles.InvalidateSubject(ctx, *u.Subject); err != nil {
		slog.WarnContext(ctx, "role cache invalidation failed", "subject", *u.Subject, "error", err.Error())
	}
}
