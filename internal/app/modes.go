package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbscanner/internal/pipeline"
	"github.com/alanyoungcy/arbscanner/internal/server"
	"github.com/alanyoungcy/arbscanner/internal/server/handler"
	"github.com/alanyoungcy/arbscanner/internal/server/ws"
	"github.com/alanyoungcy/arbscanner/internal/service"
)

const shutdownTimeout = 10 * time.Second

// services are the domain services shared by every mode.
type services struct {
	scans    *service.ScanService
	status   *service.StatusService
	history  *service.HistoryService
	webhooks *service.WebhookService
	keys     *service.APIKeyService
}

func (a *App) buildServices(deps *Dependencies) *services {
	scanDeps := service.ScanDeps{
		Polymarket: deps.Polymarket,
		Kalshi:     deps.Kalshi,
		Cache:      deps.Cache,
		History:    deps.History,
		Webhooks:   deps.Webhooks,
		Dispatcher: deps.Dispatcher,
		Notifier:   deps.Notifier,
		Metrics:    deps.Metrics,
	}
	if deps.SignalBus != nil {
		scanDeps.Publisher = deps.SignalBus
	}

	return &services{
		scans:    service.NewScanService(scanDeps, ScanConfig(a.cfg), a.logger),
		status:   service.NewStatusService(deps.Polymarket, deps.Kalshi, a.cfg.Scan.StatusTTL.Duration, a.logger),
		history:  service.NewHistoryService(deps.History, deps.BlobReader, historyArchivePrefix),
		webhooks: service.NewWebhookService(deps.Webhooks),
		keys: service.NewAPIKeyService(deps.APIKeys, deps.Limiter, deps.Audit,
			a.cfg.Auth.Pepper, a.cfg.Auth.TierLimits, a.logger),
	}
}

// ServerMode serves the HTTP API and the WebSocket hub. Scans run on demand
// behind the cache.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")
	svcs := a.buildServices(deps)

	g, ctx := errgroup.WithContext(ctx)
	a.startServer(ctx, g, deps, svcs)
	return g.Wait()
}

// MonitorMode refreshes scans on an interval and runs the archive cron,
// without an HTTP surface.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")
	svcs := a.buildServices(deps)

	g, ctx := errgroup.WithContext(ctx)
	a.startPipeline(ctx, g, deps, svcs)
	return g.Wait()
}

// FullMode runs the server and the monitoring pipeline together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")
	svcs := a.buildServices(deps)

	g, ctx := errgroup.WithContext(ctx)
	a.startServer(ctx, g, deps, svcs)
	a.startPipeline(ctx, g, deps, svcs)
	return g.Wait()
}

func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) {
	if !a.cfg.Server.Enabled {
		a.logger.InfoContext(ctx, "http server disabled")
		return
	}

	srvDeps := server.Deps{
		Limiter: deps.Limiter,
		Keys:    svcs.keys,
		Metrics: deps.Metrics,
	}
	if deps.SignalBus != nil {
		hub := ws.NewHub(deps.SignalBus, a.logger)
		srvDeps.Hub = hub
		g.Go(func() error { return hub.Run(ctx) })
	}

	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(a.cfg.Mode),
		Scans:    handler.NewScanHandler(svcs.scans, a.logger),
		History:  handler.NewHistoryHandler(svcs.history, a.logger),
		Status:   handler.NewStatusHandler(svcs.status),
		Webhooks: handler.NewWebhookHandler(svcs.webhooks, a.logger),
		Markets:  handler.NewMarketHandler(deps.Gamma, a.logger),
	}
	srv := server.NewServer(server.Config{
		Port:         a.cfg.Server.Port,
		CORSOrigins:  a.cfg.Server.CORSOrigins,
		IPRateLimit:  a.cfg.Server.IPRateLimit,
		IPRateWindow: time.Minute,
		AdminToken:   a.cfg.Auth.AdminToken,
	}, handlers, srvDeps, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func (a *App) startPipeline(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) {
	scanner := pipeline.NewScanner(svcs.scans,
		[]service.ScanKind{service.KindArbitrage, service.KindSports}, a.logger)

	var archiver *pipeline.Archiver
	if deps.Archiver != nil {
		archiver = pipeline.NewArchiver(deps.Archiver, a.cfg.Archive.RetentionDays, a.logger)
	} else if a.cfg.Archive.Enabled {
		a.logger.WarnContext(ctx, "archive enabled but no archiver wired")
	}

	orch := pipeline.NewOrchestrator(scanner, archiver, a.cfg.Scan.Interval.Duration, a.cfg.Archive.Cron, a.logger)
	g.Go(func() error {
		a.logger.InfoContext(ctx, "pipeline running", slog.Duration("interval", a.cfg.Scan.Interval.Duration))
		return orch.Run(ctx)
	})
}
