package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sandeepkv93/admin-trust-core/internal/domain"
	"github.com/sandeepkv93/admin-trust-core/internal/observability"

	"gorm.io/gorm"
)

type RefreshTokenRepository interface {
	Name() string
	Put(ctx context.Context, rec *domain.RefreshRecord, ttl time.Duration) error
	GetAndDelete(ctx context.Context, hash string) (*domain.RefreshRecord, bool, error)
	DeleteAll(ctx context.Context, subject string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type GormRefreshTokenRepository struct{ db *gorm.DB }

func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &GormRefreshTokenRepository{db: db}
}

func (r *GormRefreshTokenRepository) Name() string { return "database" }

func (r *GormRefreshTokenRepository) Put(ctx context.Context, rec *domain.RefreshRecord, _ time.Duration) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "refresh_token", "put", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "refresh_token", "put", "success")
	return nil
}

// GetAndDelete reads and deletes inside one transaction. The delete is
// conditioned on the hash, so when two transactions race only the one whose
// delete affects a row reports the record.
func (r *GormRefreshTokenRepository) GetAndDelete(ctx context.Context, hash string) (*domain.RefreshRecord, bool, error) {
	var rec domain.RefreshRecord
	found := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token_hash = ?", hash).Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		res := tx.Where("token_hash = ?", hash).Delete(&domain.RefreshRecord{})
		if res.Error != nil {
			return res.Error
		}
		found = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "refresh_token", "get_and_delete", "error")
		return nil, false, err
	}
	if !found {
		observability.RecordRepositoryOperation(ctx, "refresh_token", "get_and_delete", "not_found")
		return nil, false, nil
	}
	observability.RecordRepositoryOperation(ctx, "refresh_token", "get_and_delete", "success")
	return &rec, true, nil
}

func (r *GormRefreshTokenRepository) DeleteAll(ctx context.Context, subject string) (int64, error) {
	res := r.db.WithContext(ctx).Where("subject = ?", subject).Delete(&domain.RefreshRecord{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "refresh_token", "delete_all", "error")
		return 0, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "refresh_token", "delete_all", "success")
	return res.RowsAffected, nil
}

func (r *GormRefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&domain.RefreshRecord{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "refresh_token", "delete_expired", "error")
		return 0, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "refresh_token", "delete_expired", "success")
	return res.RowsAffected, nil
}
