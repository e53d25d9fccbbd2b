// Package pipeline runs the background work of monitor mode: periodic scans
// and the history archive cron.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Orchestrator manages the pipeline goroutines.
type Orchestrator struct {
	scanner      *Scanner
	archiver     *Archiver
	scanInterval time.Duration
	archiveCron  string
	logger       *slog.Logger
}

// NewOrchestrator creates an Orchestrator. archiver may be nil when archival
// is disabled.
func NewOrchestrator(scanner *Scanner, archiver *Archiver, scanInterval time.Duration, archiveCron string, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		scanner:      scanner,
		archiver:     archiver,
		scanInterval: scanInterval,
		archiveCron:  archiveCron,
		logger:       logger.With(slog.String("component", "orchestrator")),
	}
}

// Run starts every sub-pipeline under one errgroup. If any returns a
// non-context error the shared context is cancelled and Run returns it.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("pipeline orchestrator starting",
		slog.Duration("scan_interval", o.scanInterval),
		slog.Bool("archive", o.archiver != nil),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := o.scanner.RunLoop(ctx, o.scanInterval)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("scanner: %w", err)
	})

	if o.archiver != nil {
		g.Go(func() error {
			err := o.archiver.RunCron(ctx, o.archiveCron)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("archiver: %w", err)
		})
	}

	if err := g.Wait(); err != nil {
		o.logger.Error("pipeline orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}
	o.logger.Info("pipeline orchestrator stopped cleanly")
	return nil
}
