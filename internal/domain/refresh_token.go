package domain

import "time"

// RefreshRecord is the at-rest form of a refresh credential. The plaintext
// token is never stored; TokenHash is its keyed SHA-256 digest.
type RefreshRecord struct {
	TokenHash string    `gorm:"primaryKey;size:128" json:"-"`
	Subject   string    `gorm:"size:255;index;not null" json:"subject"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
}

func (RefreshRecord) TableName() string { return "refresh_tokens" }

func (r *RefreshRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}
