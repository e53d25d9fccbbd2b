package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/metrics"
	"github.com/alanyoungcy/arbscanner/internal/server/handler"
	"github.com/alanyoungcy/arbscanner/internal/server/middleware"
	"github.com/alanyoungcy/arbscanner/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	// IPRateLimit is the per-IP request allowance per IPRateWindow; zero
	// disables the IP limiter.
	IPRateLimit  int
	IPRateWindow time.Duration
	// AdminToken guards webhook mutation when set.
	AdminToken string
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health   *handler.HealthHandler
	Scans    *handler.ScanHandler
	History  *handler.HistoryHandler
	Status   *handler.StatusHandler
	Webhooks *handler.WebhookHandler
	// Markets is optional; nil leaves the market browse routes unregistered.
	Markets *handler.MarketHandler
}

// Deps are the cross-cutting collaborators the middleware chain needs. Any
// of them may be nil.
type Deps struct {
	Limiter domain.RateLimiter
	Keys    middleware.KeyCharger
	Metrics *metrics.Registry
	Hub     *ws.Hub
}

// Server is the HTTP + WebSocket API server for the arbitrage scanner.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
func NewServer(cfg Config, handlers Handlers, deps Deps, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Tier enforcement applies to the data API only.
	metered := middleware.APIKey(deps.Keys, logger)
	api := func(h http.HandlerFunc) http.Handler { return metered(h) }
	admin := func(h http.HandlerFunc) http.Handler { return metered(middleware.AdminAuth(cfg.AdminToken)(h)) }

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.Handle("GET /api/arbitrage", api(handlers.Scans.Arbitrage))
	mux.Handle("GET /api/sports", api(handlers.Scans.Sports))
	mux.Handle("GET /api/value", api(handlers.Scans.Value))

	mux.Handle("GET /api/history", api(handlers.History.GetHistory))
	mux.Handle("GET /api/history/archives", api(handlers.History.ListArchives))
	mux.Handle("GET /api/status", api(handlers.Status.GetStatus))

	mux.Handle("GET /api/webhooks", api(handlers.Webhooks.List))
	mux.Handle("POST /api/webhooks", admin(handlers.Webhooks.Register))
	mux.Handle("DELETE /api/webhooks", admin(handlers.Webhooks.Delete))

	if handlers.Markets != nil {
		mux.Handle("GET /api/markets", api(handlers.Markets.List))
		mux.Handle("GET /api/markets/{id}", api(handlers.Markets.Get))
	}

	if deps.Hub != nil {
		mux.HandleFunc("GET /ws", deps.Hub.HandleWS)
	}
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	// Build the middleware chain, innermost first.
	window := cfg.IPRateWindow
	if window <= 0 {
		window = time.Minute
	}
	var h http.Handler = mux
	h = middleware.RateLimit(deps.Limiter, cfg.IPRateLimit, window, logger)(h)
	var obs middleware.RequestObserver
	if deps.Metrics != nil {
		obs = deps.Metrics
	}
	h = middleware.Logging(logger, mux, obs)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
