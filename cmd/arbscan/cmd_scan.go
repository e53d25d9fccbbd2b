package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/arbscanner/internal/app"
	"github.com/alanyoungcy/arbscanner/internal/report"
	"github.com/alanyoungcy/arbscanner/internal/service"
)

func newScanCmd(opts *rootOptions) *cobra.Command {
	var (
		kind   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one scan against the live venues and print the result",
		Long: `Run a single detection pass without Redis or a database and print the
result as a table (or JSON with --json).

Examples:
  arbscan scan
  arbscan scan --kind sports
  arbscan scan --kind value --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := service.ParseScanKind(kind)
			if err != nil {
				return err
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(opts.stderr, cfg.LogLevel)

			scans, err := app.NewOneShotScanner(cfg, logger)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return printScan(ctx, report.NewPrinter(opts.stdout), scans, k, asJSON)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(service.KindArbitrage), "scan kind (arbitrage|sports|value)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func printScan(ctx context.Context, p *report.Printer, scans *service.ScanService, kind service.ScanKind, asJSON bool) error {
	switch kind {
	case service.KindValue:
		res, err := scans.Value(ctx)
		if err != nil {
			return fmt.Errorf("value scan: %w", err)
		}
		if asJSON {
			return p.JSON(res)
		}
		return p.Value(res)
	default:
		scan := scans.Arbitrage
		if kind == service.KindSports {
			scan = scans.Sports
		}
		res, err := scan(ctx)
		if err != nil {
			return fmt.Errorf("%s scan: %w", kind, err)
		}
		if asJSON {
			return p.JSON(res)
		}
		return p.Opportunities(string(kind), res)
	}
}
