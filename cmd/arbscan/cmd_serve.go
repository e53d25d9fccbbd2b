package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/arbscanner/internal/app"
	"github.com/alanyoungcy/arbscanner/internal/config"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scanner in the configured mode (server, monitor or full)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if mode != "" {
				cfg.Mode = mode
			}
			return runServe(cmd.Context(), opts, cfg)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "override the configured mode (server|monitor|full)")
	return cmd
}

func runServe(parent context.Context, opts *rootOptions, cfg *config.Config) error {
	logger := newLogger(opts.stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		return err
	}
	logger.Info("arbscan starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", opts.configPath),
		slog.Any("settings", config.RedactedConfig(cfg)),
	)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, logger)
	defer application.Close()

	if err := application.Run(ctx); err != nil {
		// context.Canceled is expected on clean shutdown.
		if errors.Is(err, context.Canceled) {
			logger.Info("application shut down gracefully")
			return nil
		}
		logger.Error("application exited with error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("arbscan stopped")
	return nil
}
