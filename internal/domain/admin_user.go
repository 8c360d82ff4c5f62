package domain

import "time"

type AdminUser struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Email         string     `gorm:"size:320;uniqueIndex;not null" json:"email"`
	Subject       *string    `gorm:"size:255;uniqueIndex" json:"subject,omitempty"`
	Role          string     `gorm:"size:64;not null;default:''" json:"role"`
	EmailVerified bool       `gorm:"not null;default:false" json:"email_verified"`
	Disabled      bool       `gorm:"not null;default:false" json:"disabled"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
