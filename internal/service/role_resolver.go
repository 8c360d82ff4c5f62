package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sandeepkv93/admin-trust-core/internal/observability"
	"github.com/sandeepkv93/admin-trust-core/internal/repository"

	"golang.org/x/sync/singleflight"
)

// CachedRoleResolver resolves a session subject to its directory role.
// Unknown and disabled users resolve to the empty role, which the permission
// table grants nothing.
type CachedRoleResolver struct {
	cache     RoleCacheStore
	directory AdminDirectory
	ttl       time.Duration
	group     singleflight.Group
}

func NewCachedRoleResolver(cache RoleCacheStore, directory AdminDirectory, ttl time.Duration) *CachedRoleResolver {
	if cache == nil {
		cache = NewNoopRoleCacheStore()
	}
	return &CachedRoleResolver{cache: cache, directory: directory, ttl: ttl}
}

func (r *CachedRoleResolver) ResolveRole(ctx context.Context, subject, email string) (string, error) {
	if subject == "" {
		return "", errors.New("missing subject")
	}
	if r.ttl > 0 {
		role, ok, err := r.cache.Get(ctx, subject)
		switch {
		case err != nil:
			observability.RecordRoleCacheEvent(ctx, "cache_error")
			slog.WarnContext(ctx, "role cache read failed", "error", err.Error())
		case ok:
			observability.RecordRoleCacheEvent(ctx, "hit")
			return role, nil
		default:
			observability.RecordRoleCacheEvent(ctx, "miss")
		}
	}

	v, err, _ := r.group.Do(subject+"\x00"+email, func() (any, error) {
		return r.lookup(ctx, subject, email)
	})
	if err != nil {
		return "", err
	}
	role := v.(string)
	if r.ttl > 0 {
		if err := r.cache.Set(ctx, subject, role, r.ttl); err != nil {
			slog.WarnContext(ctx, "role cache write failed", "error", err.Error())
		}
	}
	return role, nil
}

func (r *CachedRoleResolver) lookup(ctx context.Context, subject, email string) (string, error) {
	u, err := r.directory.FindBySubject(ctx, subject)
	if errors.Is(err, repository.ErrAdminUserNotFound) && email != "" {
		u, err = r.directory.FindByEmail(ctx, email)
	}
	if errors.Is(err, repository.ErrAdminUserNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if u.Disabled || (u.Subject != nil && *u.Subject != subject) {
		return "", nil
	}
	return u.Role, nil
}

func (r *CachedRoleResolver) InvalidateSubject(ctx context.Context, subject string) error {
	return r.cache.InvalidateSubject(ctx, subject)
}

func (r *CachedRoleResolver) InvalidateAll(ctx context.Context) error {
	return r.cache.InvalidateAll(ctx)
}
