package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/admin-trust-core/internal/domain"
	"github.com/sandeepkv93/admin-trust-core/internal/observability"
	"github.com/sandeepkv93/admin-trust-core/internal/security"
)

// RefreshRecordStore is the keyed durable store behind refresh tokens.
// GetAndDelete must be a single atomic step: of any number of concurrent
// callers for the same hash, at most one observes ok=true.
type RefreshRecordStore interface {
	Put(ctx context.Context, rec *domain.RefreshRecord, ttl time.Duration) error
	GetAndDelete(ctx context.Context, hash string) (*domain.RefreshRecord, bool, error)
	DeleteAll(ctx context.Context, subject string) (int64, error)
	Name() string
}

type RefreshTokenStore struct {
	records RefreshRecordStore
	pepper  string
	ttl     time.Duration
	now     func() time.Time
}

func NewRefreshTokenStore(records RefreshRecordStore, pepper string, ttl time.Duration) *RefreshTokenStore {
	if ttl <= 0 {
		ttl = 14 * 24 * time.Hour
	}
	return &RefreshTokenStore{records: records, pepper: pepper, ttl: ttl, now: time.Now}
}

func (s *RefreshTokenStore) TTL() time.Duration { return s.ttl }

// Issue returns the plaintext token. Only its hash is stored, so this is the
// one time it is available.
func (s *RefreshTokenStore) Issue(ctx context.Context, subject string) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("refresh token subject is required")
	}
	token, err := security.GenerateToken(security.RefreshTokenBytes)
	if err != nil {
		return "", err
	}
	now := s.now().UTC()
	rec := &domain.RefreshRecord{
		TokenHash: security.HashRefreshToken(token, s.pepper),
		Subject:   subject,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.records.Put(ctx, rec, s.ttl); err != nil {
		return "", fmt.Errorf("%w: store refresh token: %w", ErrDependencyUnavailable, err)
	}
	return token, nil
}

// Redeem consumes token and returns its subject. Unknown, already redeemed
// and expired tokens are indistinguishable to the caller.
func (s *RefreshTokenStore) Redeem(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrRefreshNotFound
	}
	rec, ok, err := s.records.GetAndDelete(ctx, security.HashRefreshToken(token, s.pepper))
	if err != nil {
		observability.RecordRefreshRedemption(ctx, s.records.Name(), "error")
		return "", fmt.Errorf("%w: redeem refresh token: %w", ErrDependencyUnavailable, err)
	}
	if !ok {
		observability.RecordRefreshRedemption(ctx, s.records.Name(), "not_found")
		return "", ErrRefreshNotFound
	}
	if rec.Expired(s.now()) {
		observability.RecordRefreshRedemption(ctx, s.records.Name(), "expired")
		return "", ErrRefreshNotFound
	}
	observability.RecordRefreshRedemption(ctx, s.records.Name(), "success")
	return rec.Subject, nil
}

func (s *RefreshTokenStore) RevokeAll(ctx context.Context, subject string) (int64, error) {
	n, err := s.records.DeleteAll(ctx, subject)
	if err != nil {
		return 0, fmt.Errorf("%w: revoke refresh tokens: %w", ErrDependencyUnavailable, err)
	}
	return n, nil
}

type expiredRecordPruner interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PruneExpired drops lapsed records from stores that do not expire keys on
// their own. Redis-backed stores report zero.
func (s *RefreshTokenStore) PruneExpired(ctx context.Context) (int64, error) {
	p, ok := s.records.(expiredRecordPruner)
	if !ok {
		return 0, nil
	}
	n, err := p.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("prune %s refresh records: %w", s.records.Name(), err)
	}
	return n, nil
}
