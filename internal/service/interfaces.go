package service

import (
	"context"
	"time"

	"github.com/sandeepkv93/admin-trust-core/internal/domain"
	"github.com/sandeepkv93/admin-trust-core/internal/repository"
)

// AdminDirectory is the source of truth for who may hold a role.
type AdminDirectory interface {
	FindByEmail(ctx context.Context, email string) (*domain.AdminUser, error)
	FindBySubject(ctx context.Context, subject string) (*domain.AdminUser, error)
	RecordLogin(ctx context.Context, identity domain.IdentityClaims, at time.Time) (*domain.AdminUser, error)
	UpsertRole(ctx context.Context, email, role string) (*domain.AdminUser, error)
	SetDisabled(ctx context.Context, email string, disabled bool) (*domain.AdminUser, error)
	ListPaged(ctx context.Context, query repository.AdminUserListQuery) (repository.PageResult[domain.AdminUser], error)
}

type RoleResolver interface {
	ResolveRole(ctx context.Context, subject, email string) (string, error)
	InvalidateSubject(ctx context.Context, subject string) error
}
