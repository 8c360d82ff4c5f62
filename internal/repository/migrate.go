package repository

import (
	"github.com/sandeepkv93/admin-trust-core/internal/domain"

	"gorm.io/gorm"
)

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.AdminUser{}, &domain.RefreshRecord{})
}
