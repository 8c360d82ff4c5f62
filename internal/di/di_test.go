package di

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/sandeepkv93/admin-trust-core/internal/config"
	"github.com/sandeepkv93/admin-trust-core/internal/repository"
	"github.com/sandeepkv93/admin-trust-core/internal/service"
)

func testConfig(t *testing.T, refreshStore string) *config.Config {
	t.Helper()
	mr := miniredis.RunT(t)
	return &config.Config{
		AppEnv:                 "test",
		PublicBaseURL:          "http://localhost:8080",
		TrustMode:              config.TrustModeFixtureBypass,
		SessionSecret:          "di-session-secret-0123456789abcd",
		SessionIssuer:          "admin-trust-core-di-test",
		SessionTTL:             time.Hour,
		RefreshTokenTTL:        24 * time.Hour,
		RefreshTokenPepper:     "pepper",
		RefreshStore:           refreshStore,
		PreviewSecret:          "di-preview-secret-0123456789abcd",
		PreviewDefaultTTL:      time.Hour,
		FixtureAssertionSecret: "di-fixture-secret-0123456789abcd",
		LoginFailureThreshold:  5,
		LoginFailureWindow:     5 * time.Minute,
		RedisAddr:              mr.Addr(),
		RedisKeyPrefix:         "di_test",
		DatabaseDriver:         "sqlite",
		DatabaseURL:            filepath.Join(t.TempDir(), "trustcore.db"),
		RoleCacheTTL:           time.Minute,
		AdminBootstrapRoles:    map[string]string{"ada@example.com": service.RoleAdmin},
	}
}

func TestInitializeCoreBootstrapsDirectory(t *testing.T) {
	for _, store := range []string{"redis", "database", "memory"} {
		t.Run(store, func(t *testing.T) {
			ctx := context.Background()
			core, cleanup, err := InitializeCore(ctx, testConfig(t, store))
			if err != nil {
				t.Fatalf("initialize core: %v", err)
			}
			t.Cleanup(cleanup)

			users, err := core.Admin.ListUsers(ctx, repository.AdminUserListQuery{Role: service.RoleAdmin})
			if err != nil {
				t.Fatalf("list users: %v", err)
			}
			if len(users.Items) != 1 || users.Items[0].Email != "ada@example.com" {
				t.Fatalf("expected bootstrapped admin, got %+v", users.Items)
			}

			token, err := core.Refresh.Issue(ctx, "sub-ada")
			if err != nil {
				t.Fatalf("issue refresh token: %v", err)
			}
			if subject, err := core.Refresh.Redeem(ctx, token); err != nil || subject != "sub-ada" {
				t.Fatalf("redeem: subject=%q err=%v", subject, err)
			}
		})
	}
}

func TestInitializeCoreRejectsBadRole(t *testing.T) {
	cfg := testConfig(t, "memory")
	cfg.AdminBootstrapRoles = map[string]string{"eve@example.com": "owner"}
	if _, _, err := InitializeCore(context.Background(), cfg); err == nil {
		t.Fatal("expected unknown bootstrap role to fail initialization")
	}
}

func TestProvideCookieSettingsSecureInProduction(t *testing.T) {
	cfg := &config.Config{AppEnv: "production", SessionTTL: time.Hour, RefreshTokenTTL: 2 * time.Hour}
	got := provideCookieSettings(cfg)
	if !got.Secure || got.SessionTTL != time.Hour || got.RefreshTTL != 2*time.Hour {
		t.Fatalf("unexpected cookie settings %+v", got)
	}
	cfg.AppEnv = "development"
	if provideCookieSettings(cfg).Secure {
		t.Fatal("expected insecure cookies outside production")
	}
}
