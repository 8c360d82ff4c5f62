package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sandeepkv93/admin-trust-core/internal/config"
	"github.com/sandeepkv93/admin-trust-core/internal/domain"
	"github.com/sandeepkv93/admin-trust-core/internal/repository"
	"github.com/sandeepkv93/admin-trust-core/internal/security"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	testSessionSecret  = "session-secret-session-secret-00"
	testFixtureSecret  = "fixture-secret-fixture-secret-00"
	testRefreshPepper  = "pepper"
	testSessionIssuer  = "admin-trust-core-test"
	testClientAddress  = "203.0.113.7"
	testAdminEmail     = "ada@example.com"
	testAdminSubject   = "sub-ada"
	testSupportEmail   = "sam@example.com"
	testSupportSubject = "sub-sam"
)

// newMiniRedis starts a miniredis server scoped to t; the returned server
// lets tests fast-forward key expiry.
func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr(), DB: 0})
	t.Cleanup(func() { _ = client.Close() })
	return server, client
}

type inMemoryDirectory struct {
	mu      sync.Mutex
	users   map[string]*domain.AdminUser
	nextID  uint
	lookups atomic.Int64
	err     error
}

func newInMemoryDirectory() *inMemoryDirectory {
	return &inMemoryDirectory{users: make(map[string]*domain.AdminUser)}
}

func (d *inMemoryDirectory) FindByEmail(_ context.Context, email string) (*domain.AdminUser, error) {
	d.lookups.Add(1)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	u, ok := d.users[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrAdminUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (d *inMemoryDirectory) FindBySubject(_ context.Context, subject string) (*domain.AdminUser, error) {
	d.lookups.Add(1)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	for _, u := range d.users {
		if u.Subject != nil && *u.Subject == subject {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrAdminUserNotFound
}

func (d *inMemoryDirectory) RecordLogin(_ context.Context, identity domain.IdentityClaims, at time.Time) (*domain.AdminUser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	email := strings.ToLower(identity.Email)
	subject := identity.Subject
	if !identity.EmailVerified {
		for _, u := range d.users {
			if u.Subject != nil && *u.Subject == subject {
				u.LastLoginAt = &at
				cp := *u
				return &cp, nil
			}
		}
		return &domain.AdminUser{Email: email, Subject: &subject}, nil
	}
	for _, u := range d.users {
		if u.Subject != nil && *u.Subject == identity.Subject && u.Email != email {
			u.Subject = nil
		}
	}
	u := d.ensureLocked(email)
	u.Subject = &subject
	u.EmailVerified = true
	u.LastLoginAt = &at
	cp := *u
	return &cp, nil
}

func (d *inMemoryDirectory) UpsertRole(_ context.Context, email, role string) (*domain.AdminUser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	u := d.ensureLocked(strings.ToLower(email))
	u.Role = role
	cp := *u
	return &cp, nil
}

func (d *inMemoryDirectory) SetDisabled(_ context.Context, email string, disabled bool) (*domain.AdminUser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	u, ok := d.users[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrAdminUserNotFound
	}
	u.Disabled = disabled
	cp := *u
	return &cp, nil
}

func (d *inMemoryDirectory) ListPaged(_ context.Context, query repository.AdminUserListQuery) (repository.PageResult[domain.AdminUser], error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := repository.PageResult[domain.AdminUser]{Page: 1, PageSize: len(d.users)}
	for _, u := range d.users {
		if query.Role == "" || u.Role == query.Role {
			out.Items = append(out.Items, *u)
		}
	}
	out.Total = int64(len(out.Items))
	out.TotalPages = 1
	return out, nil
}

func (d *inMemoryDirectory) ensureLocked(email string) *domain.AdminUser {
	u, ok := d.users[email]
	if !ok {
		d.nextID++
		u = &domain.AdminUser{ID: d.nextID, Email: email}
		d.users[email] = u
	}
	return u
}

// countingProvider records how often the upstream assertion check runs.
type countingProvider struct {
	security.IdentityProvider
	assertions atomic.Int64
}

func (p *countingProvider) VerifyAssertion(ctx context.Context, assertion string) (*domain.IdentityClaims, error) {
	p.assertions.Add(1)
	return p.IdentityProvider.VerifyAssertion(ctx, assertion)
}

type failingCounterStore struct{}

var errCounterStoreDown = errors.New("counter store down")

func (failingCounterStore) IncrementWithTTL(context.Context, string, time.Duration) (int64, error) {
	return 0, errCounterStoreDown
}

func (failingCounterStore) Get(context.Context, string) (int64, bool, error) {
	return 0, false, errCounterStoreDown
}

func (failingCounterStore) Delete(context.Context, string) error { return errCounterStoreDown }

type authFixture struct {
	svc       *AuthService
	admin     *AdminService
	provider  *countingProvider
	directory *inMemoryDirectory
	records   *InMemoryRefreshRecordStore
	signer    *security.SessionSigner
	limiter   *AttemptLimiter
}

func newAuthFixture(t *testing.T, mode config.TrustMode) *authFixture {
	t.Helper()
	verifier, err := security.NewFixtureAssertionVerifier(testFixtureSecret)
	if err != nil {
		t.Fatalf("fixture verifier: %v", err)
	}
	signer, err := security.NewSessionSigner(testSessionSecret, testSessionIssuer)
	if err != nil {
		t.Fatalf("session signer: %v", err)
	}
	provider := &countingProvider{
		IdentityProvider: security.NewLocalIdentityProvider(verifier, signer, NewInMemoryRevocationStore()),
	}
	directory := newInMemoryDirectory()
	if _, err := directory.UpsertRole(context.Background(), testAdminEmail, RoleAdmin); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	if _, err := directory.UpsertRole(context.Background(), testSupportEmail, RoleSupport); err != nil {
		t.Fatalf("seed support: %v", err)
	}

	records := NewInMemoryRefreshRecordStore()
	refresh := NewRefreshTokenStore(records, testRefreshPepper, time.Hour)
	sessions := NewSessionManager(provider)
	limiter := NewAttemptLimiter(NewInMemoryCounterStore(), DefaultAttemptLimiterPolicy(), mode)
	roles := NewCachedRoleResolver(NewInMemoryRoleCacheStore(), directory, time.Minute)
	perms := DefaultPermissionTable()

	return &authFixture{
		svc:       NewAuthService(sessions, refresh, limiter, roles, directory, perms, AuthServiceConfig{SessionTTL: time.Hour, TrustMode: mode}),
		admin:     NewAdminService(directory, sessions, refresh, roles, perms),
		provider:  provider,
		directory: directory,
		records:   records,
		signer:    signer,
		limiter:   limiter,
	}
}

func fixtureAssertion(t *testing.T, subject, email string, verified bool) string {
	t.Helper()
	raw, err := security.SignFixtureAssertion(testFixtureSecret, domain.IdentityClaims{
		Subject:       subject,
		Email:         email,
		EmailVerified: verified,
	}, time.Minute)
	if err != nil {
		t.Fatalf("sign fixture assertion: %v", err)
	}
	return raw
}

func requireAuthError(t *testing.T, err error, outcome Outcome, kind error) *AuthError {
	t.Helper()
	ae, ok := AsAuthError(err)
	if !ok {
		t.Fatalf("expected *AuthError, got %T: %v", err, err)
	}
	if ae.Outcome != outcome {
		t.Fatalf("expected outcome %q, got %q (%v)", outcome, ae.Outcome, err)
	}
	if kind != nil && !errors.Is(ae, kind) {
		t.Fatalf("expected kind %v, got %v", kind, err)
	}
	return ae
}
