package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/arbscanner/internal/blob/s3"
	"github.com/alanyoungcy/arbscanner/internal/config"
	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/service"
)

const historyArchivePrefix = s3blob.HistoryPrefix

// NewOneShotScanner builds a ScanService that talks to the venues directly,
// with no cache, storage or fan-out. It backs the CLI scan command.
func NewOneShotScanner(cfg *config.Config, logger *slog.Logger) (*service.ScanService, error) {
	venues, err := NewVenues(cfg)
	if err != nil {
		return nil, fmt.Errorf("app: venues: %w", err)
	}
	return service.NewScanService(service.ScanDeps{Polymarket: venues.Polymarket, Kalshi: venues.Kalshi}, ScanConfig(cfg), logger), nil
}

// CreateAPIKey issues a key of tier for owner and returns the raw key. Only
// the configured relational store is opened.
func CreateAPIKey(ctx context.Context, cfg *config.Config, logger *slog.Logger, tier domain.Tier, owner string) (string, error) {
	if cfg.Auth.Pepper == "" {
		return "", fmt.Errorf("app: auth.pepper must be set to issue keys")
	}
	stores, closeStores, err := OpenStores(ctx, cfg)
	if err != nil {
		return "", fmt.Errorf("app: %w", err)
	}
	defer closeStores()

	keys := service.NewAPIKeyService(stores.APIKeys, nil, stores.Audit, cfg.Auth.Pepper, cfg.Auth.TierLimits, logger)
	raw, err := keys.Create(ctx, tier, owner)
	if err != nil {
		return "", fmt.Errorf("app: %w", err)
	}
	return raw, nil
}
