package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// TrustMode is resolved once at startup and threaded through every check
// that used to consult ad-hoc bypass flags.
type TrustMode string

const (
	TrustModeStrict        TrustMode = "strict"
	TrustModeFixtureBypass TrustMode = "fixture_bypass"
)

func ParseTrustMode(raw string) (TrustMode, error) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "", string(TrustModeStrict):
		return TrustModeStrict, nil
	case string(TrustModeFixtureBypass), "fixture", "bypass":
		return TrustModeFixtureBypass, nil
	default:
		return "", fmt.Errorf("unknown trust mode %q", raw)
	}
}

func (m TrustMode) Bypass() bool { return m == TrustModeFixtureBypass }

type Config struct {
	AppEnv          string
	HTTPAddr        string
	PublicBaseURL   string
	ShutdownTimeout time.Duration
	TrustMode       TrustMode

	SessionSecret      string
	SessionIssuer      string
	SessionTTL         time.Duration
	RefreshTokenTTL    time.Duration
	RefreshTokenPepper string
	RefreshStore       string
	PreviewSecret      string
	PreviewDefaultTTL  time.Duration

	OIDCIssuerURL          string
	OIDCClientID           string
	FixtureAssertionSecret string

	LoginFailureThreshold  int
	LoginFailureWindow     time.Duration
	AuthRateLimitPerMinute int
	TrustedProxies         []netip.Prefix

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	DatabaseDriver      string
	DatabaseURL         string
	RoleCacheTTL        time.Duration
	AdminBootstrapRoles map[string]string

	LogLevel                  string
	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELMetricsExportInterval time.Duration
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production") || strings.EqualFold(c.AppEnv, "prod")
}

// Load reads the process environment, optionally seeded from ENV_FILE
// (default ".env"). Variables already present in the environment win.
func Load() (*Config, error) {
	ctx := context.Background()
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		err = fmt.Errorf("%w: %w", errEnvFile, err)
		recordConfigLoad(ctx, loadEvent{profile: os.Getenv("APP_ENV"), errorClass: classifyConfigLoadError(err)})
		return nil, err
	}
	cfg, err := load()
	if err != nil {
		recordConfigLoad(ctx, loadEvent{profile: os.Getenv("APP_ENV"), errorClass: classifyConfigLoadError(err)})
		return nil, err
	}
	recordConfigLoad(ctx, loadEvent{profile: cfg.AppEnv, trustMode: cfg.TrustMode, store: cfg.RefreshStore, errorClass: "none"})
	return cfg, nil
}

func load() (*Config, error) {
	var err error
	cfg := &Config{
		AppEnv:                   getEnv("APP_ENV", "development"),
		HTTPAddr:                 getEnv("HTTP_ADDR", ":8080"),
		PublicBaseURL:            strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		SessionSecret:            os.Getenv("SESSION_SECRET"),
		SessionIssuer:            getEnv("SESSION_ISSUER", "admin-trust-core"),
		RefreshTokenPepper:       os.Getenv("REFRESH_TOKEN_PEPPER"),
		RefreshStore:             strings.ToLower(getEnv("REFRESH_STORE", "redis")),
		PreviewSecret:            os.Getenv("PREVIEW_SECRET"),
		OIDCIssuerURL:            os.Getenv("OIDC_ISSUER_URL"),
		OIDCClientID:             os.Getenv("OIDC_CLIENT_ID"),
		FixtureAssertionSecret:   os.Getenv("FIXTURE_ASSERTION_SECRET"),
		RedisAddr:                getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		RedisKeyPrefix:           getEnv("REDIS_KEY_PREFIX", "trustcore"),
		DatabaseDriver:           strings.ToLower(getEnv("DATABASE_DRIVER", "postgres")),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "admin-trust-core"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", getEnv("APP_ENV", "development")),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}

	if cfg.TrustMode, err = ParseTrustMode(os.Getenv("TRUST_MODE")); err != nil {
		return nil, fmt.Errorf("%w TRUST_MODE: %w", errParse, err)
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getEnvDuration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenTTL, err = getEnvDuration("REFRESH_TOKEN_TTL", 14*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.PreviewDefaultTTL, err = getEnvDuration("PREVIEW_DEFAULT_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.LoginFailureThreshold, err = getEnvInt("LOGIN_FAILURE_THRESHOLD", 5); err != nil {
		return nil, err
	}
	if cfg.LoginFailureWindow, err = getEnvDuration("LOGIN_FAILURE_WINDOW", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.AuthRateLimitPerMinute, err = getEnvInt("AUTH_RATE_LIMIT_RPM", 60); err != nil {
		return nil, err
	}
	if cfg.TrustedProxies, err = parseTrustedProxies(os.Getenv("TRUSTED_PROXIES")); err != nil {
		return nil, fmt.Errorf("%w TRUSTED_PROXIES: %w", errParse, err)
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RoleCacheTTL, err = getEnvDuration("ROLE_CACHE_TTL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.AdminBootstrapRoles, err = parseRoleAssignments(os.Getenv("ADMIN_BOOTSTRAP_ROLES")); err != nil {
		return nil, fmt.Errorf("%w ADMIN_BOOTSTRAP_ROLES: %w", errParse, err)
	}
	if cfg.OTELExporterOTLPInsecure, err = getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true); err != nil {
		return nil, err
	}
	if cfg.OTELMetricsEnabled, err = getEnvBool("OTEL_METRICS_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.OTELTracingEnabled, err = getEnvBool("OTEL_TRACING_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.OTELLogsEnabled, err = getEnvBool("OTEL_LOGS_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.OTELMetricsExportInterval, err = getEnvDuration("OTEL_METRICS_EXPORT_INTERVAL", 15*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errValidation, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.SessionSecret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 32 bytes"))
	}
	if c.PreviewSecret != "" && len(c.PreviewSecret) < 32 {
		errs = append(errs, errors.New("PREVIEW_SECRET must be at least 32 bytes when set"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL must be positive"))
	}
	if c.LoginFailureThreshold <= 0 {
		errs = append(errs, errors.New("LOGIN_FAILURE_THRESHOLD must be positive"))
	}
	if c.LoginFailureWindow <= 0 {
		errs = append(errs, errors.New("LOGIN_FAILURE_WINDOW must be positive"))
	}
	switch c.RefreshStore {
	case "redis", "memory", "database":
	default:
		errs = append(errs, fmt.Errorf("REFRESH_STORE must be one of redis, database, memory (got %q)", c.RefreshStore))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite (got %q)", c.DatabaseDriver))
	}
	if c.TrustMode.Bypass() {
		if c.IsProduction() {
			errs = append(errs, errors.New("TRUST_MODE=fixture_bypass is not allowed in production"))
		}
		if len(c.FixtureAssertionSecret) < 32 {
			errs = append(errs, errors.New("FIXTURE_ASSERTION_SECRET must be at least 32 bytes in fixture_bypass mode"))
		}
	} else if c.OIDCIssuerURL == "" || c.OIDCClientID == "" {
		errs = append(errs, errors.New("OIDC_ISSUER_URL and OIDC_CLIENT_ID are required in strict mode"))
	}
	if c.IsProduction() && c.RefreshStore == "memory" {
		errs = append(errs, errors.New("REFRESH_STORE=memory is not allowed in production"))
	}
	return errors.Join(errs...)
}

// parseTrustedProxies reads a comma-separated list of CIDRs or bare
// addresses. Forwarded client addresses are only honoured from these peers.
func parseTrustedProxies(raw string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, err
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, err
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

func parseRoleAssignments(raw string) (map[string]string, error) {
	out := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		email, role, ok := strings.Cut(pair, "=")
		email = strings.ToLower(strings.TrimSpace(email))
		role = strings.ToLower(strings.TrimSpace(role))
		if !ok || email == "" || role == "" {
			return nil, fmt.Errorf("invalid assignment %q, want email=role", pair)
		}
		out[email] = role
	}
	return out, nil
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%w %s: %w", errParse, key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("%w %s: %w", errParse, key, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%w %s: %w", errParse, key, err)
	}
	return d, nil
}
