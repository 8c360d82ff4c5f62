package trustcore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/admin-trust-core/internal/config"
	"github.com/sandeepkv93/admin-trust-core/internal/di"
	"github.com/sandeepkv93/admin-trust-core/internal/tools/doctor"
)

type coreInitializer func(ctx context.Context, cfg *config.Config) (*di.Core, func(), error)

type options struct {
	loadConfig func() (*config.Config, error)
	initCore   coreInitializer
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(&options{loadConfig: config.Load, initCore: di.InitializeCore})
}

func newRootCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "trustcore",
		Short:         "Admin session, refresh and preview trust core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newServeCommand(opts),
		newPreviewCommand(opts),
		newRevokeCommand(opts),
		newPruneCommand(opts),
		doctor.NewCommand(opts.loadConfig),
	)
	return cmd
}

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, cleanup, err := di.InitializeApp(ctx, cfg)
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}
			defer cleanup()
			return application.Run(ctx)
		},
	}
}

func newPreviewCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "preview", Short: "Preview link operations"}
	var (
		subject string
		ttl     time.Duration
	)
	sign := &cobra.Command{
		Use:   "sign <resource-id>",
		Short: "Sign a preview link for a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd.Context(), opts, func(ctx context.Context, core *di.Core) error {
				link, err := core.Previews.Issue(ctx, args[0], subject, ttl)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), link)
			})
		},
	}
	sign.Flags().StringVar(&subject, "subject", "cli", "subject recorded as the link issuer")
	sign.Flags().DurationVar(&ttl, "ttl", 0, "link lifetime (default PREVIEW_DEFAULT_TTL)")
	cmd.AddCommand(sign)
	return cmd
}

func newRevokeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <subject>",
		Short: "Sign a subject out of every session and refresh token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd.Context(), opts, func(ctx context.Context, core *di.Core) error {
				res, err := core.Admin.RevokeSubject(ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func newPruneCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete expired refresh records from stores without native expiry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd.Context(), opts, func(ctx context.Context, core *di.Core) error {
				n, err := core.Refresh.PruneExpired(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{"store": core.Config.RefreshStore, "deleted": n})
			})
		},
	}
}

func withCore(ctx context.Context, opts *options, fn func(context.Context, *di.Core) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	core, cleanup, err := opts.initCore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize core: %w", err)
	}
	defer cleanup()
	return fn(ctx, core)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
