package doctor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/admin-trust-core/internal/config"
	"github.com/sandeepkv93/admin-trust-core/internal/di"
	"github.com/sandeepkv93/admin-trust-core/internal/health"
	"github.com/sandeepkv93/admin-trust-core/internal/security"
	"github.com/sandeepkv93/admin-trust-core/internal/tools/common"
	"github.com/sandeepkv93/admin-trust-core/internal/tools/ui"
)

type options struct {
	ci      bool
	baseURL string
	timeout time.Duration
}

func NewCommand(loadConfig func() (*config.Config, error)) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and backing services",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			details, err := run(opts, "trustcore doctor", func(ctx context.Context) ([]string, error) {
				return Diagnose(ctx, cfg, opts.baseURL)
			})
			if opts.ci {
				common.PrintCIResult(err == nil, "trustcore doctor", details, err)
			} else if err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), ui.Render(details, err))
			}
			if err != nil {
				os.Exit(4)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "running server to probe via /health/ready")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall check timeout")
	return cmd
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	if opts.ci {
		ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
		defer cancel()
		return fn(ctx)
	}
	return ui.Run(title, fn)
}

// Diagnose reports the resolved configuration and probes every backing
// service it names.
func Diagnose(ctx context.Context, cfg *config.Config, baseURL string) ([]string, error) {
	details := []string{
		fmt.Sprintf("env=%s trust_mode=%s refresh_store=%s", cfg.AppEnv, cfg.TrustMode, cfg.RefreshStore),
	}
	if cfg.PreviewSecret == "" {
		details = append(details, "preview signing: not configured")
	} else {
		details = append(details, "preview signing: configured")
	}

	checkers := []health.Checker{}
	client := di.NewRedisClient(cfg)
	defer func() { _ = client.Close() }()
	if cfg.RefreshStore != "memory" {
		checkers = append(checkers, health.RedisChecker{Client: client})
	}
	db, err := di.OpenDatabase(cfg)
	if err != nil {
		return append(details, "db: "+err.Error()), err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()
	checkers = append(checkers, health.DBChecker{DB: db})
	if !cfg.TrustMode.Bypass() {
		checkers = append(checkers, oidcChecker{security.NewOIDCAssertionVerifier(cfg.OIDCIssuerURL, cfg.OIDCClientID)})
	}

	more, err := probe(ctx, checkers...)
	details = append(details, more...)
	if err != nil {
		return details, err
	}
	if baseURL != "" {
		if err := checkServer(ctx, baseURL); err != nil {
			return append(details, "server: "+err.Error()), err
		}
		details = append(details, "server /health/ready: ok")
	}
	return details, nil
}

func probe(ctx context.Context, checkers ...health.Checker) ([]string, error) {
	_, results := health.NewProbeRunner(10*time.Second, 0, checkers...).Ready(ctx)
	details := make([]string, 0, len(results))
	var errs []error
	for _, res := range results {
		if res.Healthy {
			details = append(details, fmt.Sprintf("%s: ok (%.1fms)", res.Name, res.DurationMS))
			continue
		}
		details = append(details, fmt.Sprintf("%s: %s", res.Name, res.Error))
		errs = append(errs, fmt.Errorf("%s unhealthy", res.Name))
	}
	return details, errors.Join(errs...)
}

type oidcChecker struct {
	verifier *security.OIDCAssertionVerifier
}

func (c oidcChecker) Check(ctx context.Context) health.CheckResult {
	if err := c.verifier.Discover(ctx); err != nil {
		return health.CheckResult{Name: "oidc", Healthy: false, Error: err.Error()}
	}
	return health.CheckResult{Name: "oidc", Healthy: true}
}

func checkServer(ctx context.Context, baseURL string) error {
	u, err := url.JoinPath(baseURL, "/health/ready")
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("readiness returned %s", resp.Status)
	}
	return nil
}
