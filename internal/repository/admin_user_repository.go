package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sandeepkv93/admin-trust-core/internal/domain"
	"github.com/sandeepkv93/admin-trust-core/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrAdminUserNotFound = errors.New("admin user not found")

type AdminUserListQuery struct {
	PageRequest
	Email string
	Role  string
}

type AdminUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.AdminUser, error)
	FindBySubject(ctx context.Context, subject string) (*domain.AdminUser, error)
	RecordLogin(ctx context.Context, identity domain.IdentityClaims, at time.Time) (*domain.AdminUser, error)
	UpsertRole(ctx context.Context, email, role string) (*domain.AdminUser, error)
	SetDisabled(ctx context.Context, email string, disabled bool) (*domain.AdminUser, error)
	ListPaged(ctx context.Context, query AdminUserListQuery) (PageResult[domain.AdminUser], error)
}

type GormAdminUserRepository struct{ db *gorm.DB }

func NewAdminUserRepository(db *gorm.DB) AdminUserRepository { return &GormAdminUserRepository{db: db} }

func (r *GormAdminUserRepository) FindByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	return r.findOne(ctx, "find_by_email", "email = ?", normalizeEmail(email))
}

func (r *GormAdminUserRepository) FindBySubject(ctx context.Context, subject string) (*domain.AdminUser, error) {
	return r.findOne(ctx, "find_by_subject", "subject = ?", subject)
}

func (r *GormAdminUserRepository) findOne(ctx context.Context, op, where string, arg any) (*domain.AdminUser, error) {
	var u domain.AdminUser
	err := r.db.WithContext(ctx).Where(where, arg).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "admin_user", op, "not_found")
			return nil, ErrAdminUserNotFound
		}
		observability.RecordRepositoryOperation(ctx, "admin_user", op, "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "admin_user", op, "success")
	return &u, nil
}

// RecordLogin links the upstream subject to the directory entry for the
// verified email, creating a role-less entry on first sight. An unverified
// email never claims, creates or relinks a row: the subject keeps the row it
// is already linked to, or gets a transient role-less entry.
func (r *GormAdminUserRepository) RecordLogin(ctx context.Context, identity domain.IdentityClaims, at time.Time) (*domain.AdminUser, error) {
	email := normalizeEmail(identity.Email)
	subject := identity.Subject
	loginAt := at.UTC()
	op := "record_login"
	if !identity.EmailVerified {
		op = "record_login_unverified"
	}
	var out domain.AdminUser
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !identity.EmailVerified {
			return recordUnverifiedLogin(tx, &out, subject, email, loginAt)
		}
		// A subject moves with its verified email; drop the link from any stale row.
		if err := tx.Model(&domain.AdminUser{}).
			Where("subject = ? AND email <> ?", subject, email).
			Update("subject", nil).Error; err != nil {
			return err
		}
		err := tx.Where("email = ?", email).First(&out).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			out = domain.AdminUser{Email: email}
		} else if err != nil {
			return err
		}
		out.Subject = &subject
		out.EmailVerified = true
		out.LastLoginAt = &loginAt
		return tx.Save(&out).Error
	})
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "admin_user", op, "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "admin_user", op, "success")
	return &out, nil
}

func recordUnverifiedLogin(tx *gorm.DB, out *domain.AdminUser, subject, email string, at time.Time) error {
	err := tx.Where("subject = ?", subject).First(out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		*out = domain.AdminUser{Email: email, Subject: &subject}
		return nil
	}
	if err != nil {
		return err
	}
	out.LastLoginAt = &at
	return tx.Model(out).Update("last_login_at", at).Error
}

func (r *GormAdminUserRepository) UpsertRole(ctx context.Context, email, role string) (*domain.AdminUser, error) {
	u := domain.AdminUser{Email: normalizeEmail(email), Role: strings.ToLower(strings.TrimSpace(role))}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
	}).Create(&u).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "admin_user", "upsert_role", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "admin_user", "upsert_role", "success")
	return r.FindByEmail(ctx, u.Email)
}

func (r *GormAdminUserRepository) SetDisabled(ctx context.Context, email string, disabled bool) (*domain.AdminUser, error) {
	res := r.db.WithContext(ctx).Model(&domain.AdminUser{}).
		Where("email = ?", normalizeEmail(email)).
		Update("disabled", disabled)
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "admin_user", "set_disabled", "error")
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "admin_user", "set_disabled", "not_found")
		return nil, ErrAdminUserNotFound
	}
	observability.RecordRepositoryOperation(ctx, "admin_user", "set_disabled", "success")
	return r.FindByEmail(ctx, email)
}

func (r *GormAdminUserRepository) ListPaged(ctx context.Context, query AdminUserListQuery) (PageResult[domain.AdminUser], error) {
	req := normalizePageRequest(query.PageRequest)
	result := PageResult[domain.AdminUser]{Page: req.Page, PageSize: req.PageSize}

	base := r.db.WithContext(ctx).Model(&domain.AdminUser{})
	if query.Email != "" {
		base = base.Where("email LIKE ?", normalizeEmail(query.Email)+"%")
	}
	if query.Role != "" {
		base = base.Where("role = ?", query.Role)
	}
	if err := base.Session(&gorm.Session{}).Count(&result.Total).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "admin_user", "list_paged", "error")
		return PageResult[domain.AdminUser]{}, err
	}
	offset := (req.Page - 1) * req.PageSize
	if err := base.Order("id ASC").Offset(offset).Limit(req.PageSize).Find(&result.Items).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "admin_user", "list_paged", "error")
		return PageResult[domain.AdminUser]{}, err
	}
	result.TotalPages = calcTotalPages(result.Total, req.PageSize)
	observability.RecordRepositoryOperation(ctx, "admin_user", "list_paged", "success")
	return result, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
