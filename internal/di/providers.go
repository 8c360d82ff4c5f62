package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sandeepkv93/admin-trust-core/internal/app"
	"github.com/sandeepkv93/admin-trust-core/internal/config"
	"github.com/sandeepkv93/admin-trust-core/internal/health"
	"github.com/sandeepkv93/admin-trust-core/internal/http/handler"
	"github.com/sandeepkv93/admin-trust-core/internal/http/router"
	"github.com/sandeepkv93/admin-trust-core/internal/observability"
	"github.com/sandeepkv93/admin-trust-core/internal/repository"
	"github.com/sandeepkv93/admin-trust-core/internal/security"
	"github.com/sandeepkv93/admin-trust-core/internal/service"
)

// StoreSet builds the trust core without the HTTP surface; the CLI uses it
// directly.
var StoreSet = wire.NewSet(
	provideDB,
	provideRedisClient,
	provideRevocationStore,
	provideAssertionVerifier,
	provideSessionSigner,
	provideIdentityProvider,
	provideRefreshRecordStore,
	provideRefreshTokenStore,
	provideCounterStore,
	provideAttemptLimiter,
	provideAdminDirectory,
	provideRoleCacheStore,
	provideRoleResolver,
	wire.Bind(new(service.RoleResolver), new(*service.CachedRoleResolver)),
	service.DefaultPermissionTable,
	service.NewSessionManager,
	provideAuthService,
	provideAdminService,
	providePreviewService,
	wire.Struct(new(Core), "*"),
)

var HTTPSet = wire.NewSet(
	StoreSet,
	provideLoggerProvider,
	provideLogger,
	observability.InitRuntime,
	provideCookieSettings,
	handler.NewAuthHandler,
	handler.NewUserHandler,
	handler.NewAdminHandler,
	handler.NewPreviewHandler,
	provideReadiness,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
	provideApp,
)

// Core is the assembled trust core.
type Core struct {
	Config   *config.Config
	DB       *gorm.DB
	Redis    redis.UniversalClient
	Auth     *service.AuthService
	Admin    *service.AdminService
	Previews *service.PreviewService
	Refresh  *service.RefreshTokenStore
}

// OpenDatabase connects to the configured directory database without
// migrating it.
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DatabaseURL)
	default:
		dialector = postgres.Open(cfg.DatabaseURL)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func NewRedisClient(cfg *config.Config) redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func provideDB(cfg *config.Config) (*gorm.DB, func(), error) {
	db, err := OpenDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if err := repository.AutoMigrate(db); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, cleanup, nil
}

func provideRedisClient(cfg *config.Config) (redis.UniversalClient, func()) {
	client := NewRedisClient(cfg)
	return client, func() { _ = client.Close() }
}

// inMemoryStores reports whether the volatile stores live in-process. Only
// REFRESH_STORE=memory selects this; it is rejected in production.
func inMemoryStores(cfg *config.Config) bool { return cfg.RefreshStore == "memory" }

func provideRevocationStore(cfg *config.Config, client redis.UniversalClient) security.RevocationStore {
	if inMemoryStores(cfg) {
		return service.NewInMemoryRevocationStore()
	}
	retention := cfg.SessionTTL
	if cfg.RefreshTokenTTL > retention {
		retention = cfg.RefreshTokenTTL
	}
	return service.NewRedisRevocationStore(client, cfg.RedisKeyPrefix, retention)
}

func provideAssertionVerifier(cfg *config.Config) (security.AssertionVerifier, error) {
	if cfg.TrustMode.Bypass() {
		slog.Warn("fixture assertions accepted; trust mode is fixture_bypass")
		return security.NewFixtureAssertionVerifier(cfg.FixtureAssertionSecret)
	}
	return security.NewOIDCAssertionVerifier(cfg.OIDCIssuerURL, cfg.OIDCClientID), nil
}

func provideSessionSigner(cfg *config.Config) (*security.SessionSigner, error) {
	return security.NewSessionSigner(cfg.SessionSecret, cfg.SessionIssuer)
}

func provideIdentityProvider(assertions security.AssertionVerifier, signer *security.SessionSigner, revocations security.RevocationStore) security.IdentityProvider {
	return security.NewLocalIdentityProvider(assertions, signer, revocations)
}

func provideRefreshRecordStore(cfg *config.Config, client redis.UniversalClient, db *gorm.DB) service.RefreshRecordStore {
	switch cfg.RefreshStore {
	case "memory":
		return service.NewInMemoryRefreshRecordStore()
	case "database":
		return repository.NewRefreshTokenRepository(db)
	default:
		return service.NewRedisRefreshRecordStore(client, cfg.RedisKeyPrefix)
	}
}

func provideRefreshTokenStore(cfg *config.Config, records service.RefreshRecordStore) *service.RefreshTokenStore {
	return service.NewRefreshTokenStore(records, cfg.RefreshTokenPepper, cfg.RefreshTokenTTL)
}

func provideCounterStore(cfg *config.Config, client redis.UniversalClient) service.CounterStore {
	if inMemoryStores(cfg) {
		return service.NewInMemoryCounterStore()
	}
	return service.NewRedisCounterStore(client, cfg.RedisKeyPrefix)
}

func provideAttemptLimiter(cfg *config.Config, store service.CounterStore) *service.AttemptLimiter {
	return service.NewAttemptLimiter(store, service.AttemptLimiterPolicy{
		Threshold: int64(cfg.LoginFailureThreshold),
		Window:    cfg.LoginFailureWindow,
	}, cfg.TrustMode)
}

func provideAdminDirectory(db *gorm.DB) service.AdminDirectory {
	return repository.NewAdminUserRepository(db)
}

func provideRoleCacheStore(cfg *config.Config, client redis.UniversalClient) service.RoleCacheStore {
	if inMemoryStores(cfg) {
		return service.NewInMemoryRoleCacheStore()
	}
	return service.NewRedisRoleCacheStore(client, cfg.RedisKeyPrefix)
}

func provideRoleResolver(cfg *config.Config, cache service.RoleCacheStore, directory service.AdminDirectory) *service.CachedRoleResolver {
	return service.NewCachedRoleResolver(cache, directory, cfg.RoleCacheTTL)
}

func provideAuthService(
	cfg *config.Config,
	sessions *service.SessionManager,
	refresh *service.RefreshTokenStore,
	limiter *service.AttemptLimiter,
	roles service.RoleResolver,
	directory service.AdminDirectory,
	perms service.PermissionTable,
) *service.AuthService {
	return service.NewAuthService(sessions, refresh, limiter, roles, directory, perms, service.AuthServiceConfig{
		SessionTTL: cfg.SessionTTL,
		TrustMode:  cfg.TrustMode,
	})
}

func provideAdminService(
	ctx context.Context,
	cfg *config.Config,
	directory service.AdminDirectory,
	sessions *service.SessionManager,
	refresh *service.RefreshTokenStore,
	roles *service.CachedRoleResolver,
	perms service.PermissionTable,
) (*service.AdminService, error) {
	admin := service.NewAdminService(directory, sessions, refresh, roles, perms)
	if err := admin.Bootstrap(ctx, cfg.AdminBootstrapRoles); err != nil {
		return nil, err
	}
	return admin, nil
}

func providePreviewService(cfg *config.Config) *service.PreviewService {
	return service.NewPreviewService(security.NewPreviewCodec(cfg.PreviewSecret), cfg.PublicBaseURL, cfg.PreviewDefaultTTL)
}

func provideLoggerProvider(ctx context.Context, cfg *config.Config) (*sdklog.LoggerProvider, error) {
	return observability.InitLogs(ctx, cfg)
}

func provideLogger(cfg *config.Config, lp *sdklog.LoggerProvider) *slog.Logger {
	logger := observability.NewLogger(os.Stdout, cfg, lp)
	slog.SetDefault(logger)
	return logger
}

func provideCookieSettings(cfg *config.Config) security.CookieSettings {
	return security.CookieSettings{
		Secure:     cfg.IsProduction(),
		SessionTTL: cfg.SessionTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}
}

func provideReadiness(client redis.UniversalClient, db *gorm.DB) *health.ProbeRunner {
	return health.NewProbeRunner(2*time.Second, time.Second,
		health.RedisChecker{Client: client},
		health.DBChecker{DB: db},
	)
}

func provideRouterDependencies(
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	adminHandler *handler.AdminHandler,
	previewHandler *handler.PreviewHandler,
	auth *service.AuthService,
	cookies security.CookieSettings,
	readiness *health.ProbeRunner,
) router.Dependencies {
	return router.Dependencies{
		AuthHandler:      authHandler,
		UserHandler:      userHandler,
		AdminHandler:     adminHandler,
		PreviewHandler:   previewHandler,
		Authorizer:       auth,
		Cookies:          cookies,
		AuthRateLimitRPM: cfg.AuthRateLimitPerMinute,
		TrustedProxies:   cfg.TrustedProxies,
		Readiness:        readiness,
		EnableOTelHTTP:   cfg.OTELTracingEnabled || cfg.OTELMetricsEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func provideApp(cfg *config.Config, logger *slog.Logger, server *http.Server, runtime *observability.Runtime, readiness *health.ProbeRunner) *app.App {
	return app.New(cfg, logger, server, runtime, readiness)
}
