package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	s3blob "github.com/alanyoungcy/arbscanner/internal/blob/s3"
	"github.com/alanyoungcy/arbscanner/internal/cache/redis"
	"github.com/alanyoungcy/arbscanner/internal/config"
	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/matching"
	"github.com/alanyoungcy/arbscanner/internal/metrics"
	"github.com/alanyoungcy/arbscanner/internal/notify"
	"github.com/alanyoungcy/arbscanner/internal/platform/kalshi"
	"github.com/alanyoungcy/arbscanner/internal/platform/polymarket"
	"github.com/alanyoungcy/arbscanner/internal/service"
	"github.com/alanyoungcy/arbscanner/internal/store/postgres"
	"github.com/alanyoungcy/arbscanner/internal/store/sqlite"
)

// Stores are the relational stores, backed by Postgres or SQLite.
type Stores struct {
	History  domain.HistoryStore
	Webhooks domain.WebhookStore
	APIKeys  domain.APIKeyStore
	Audit    domain.AuditStore
}

// Dependencies bundles every concrete dependency the run modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Stores

	// Venues
	Venues

	// Redis
	Cache     domain.ScanCache
	Limiter   domain.RateLimiter
	Locks     domain.LockManager
	SignalBus *redis.SignalBus

	// Blob storage; nil unless archiving is enabled.
	BlobReader domain.BlobReader
	Archiver   domain.Archiver

	// Notifications
	Notifier   *notify.Notifier
	Dispatcher *notify.WebhookDispatcher

	Metrics *metrics.Registry
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Venues ---
	venues, err := NewVenues(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: %w", err)
	}
	deps.Venues = venues

	// --- Relational storage ---
	stores, closeStores, err := OpenStores(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: %w", err)
	}
	closers = append(closers, closeStores)
	deps.Stores = stores

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.Locks = redis.NewLockManager(redisClient)
	deps.Limiter = redis.NewRateLimiter(redisClient)
	deps.Cache = redis.NewScanCache(redisClient, deps.Locks, logger)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- S3 blob storage (only when archiving) ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		writer := s3blob.NewWriter(s3Client)
		reader := s3blob.NewReader(s3Client)
		deps.BlobReader = reader
		deps.Archiver = s3blob.NewArchiver(writer, reader, deps.History, deps.Audit)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	if cfg.Webhooks.Enabled {
		deps.Dispatcher = notify.NewWebhookDispatcher(cfg.Webhooks.Timeout.Duration, logger)
	}

	if cfg.Metrics.Enabled {
		deps.Metrics = metrics.New()
	}

	return deps, cleanup, nil
}

// Venues are the venue clients and the scan sources built on them.
type Venues struct {
	Gamma      *polymarket.GammaClient
	Polymarket service.MarketSource
	Kalshi     service.MarketSource
}

// NewVenues builds the venue clients and sources from cfg.
func NewVenues(cfg *config.Config) (Venues, error) {
	gamma := polymarket.NewGammaClient(polymarket.GammaConfig{
		BaseURL:       cfg.Polymarket.GammaHost,
		RatePerSecond: cfg.Polymarket.RatePerSecond,
		Burst:         cfg.Polymarket.Burst,
	})

	kc := kalshi.NewClient(kalshi.ClientConfig{
		BaseURL:       cfg.Kalshi.BaseURL,
		APIKeyID:      cfg.Kalshi.APIKeyID,
		RatePerSecond: cfg.Kalshi.RatePerSecond,
		Burst:         cfg.Kalshi.Burst,
	})
	if path := cfg.Kalshi.RSAPrivateKeyPath; path != "" {
		pemBytes, err := os.ReadFile(path)
		if err != nil {
			return Venues{}, fmt.Errorf("kalshi private key: %w", err)
		}
		if err := kc.SetRSAPrivateKey(pemBytes); err != nil {
			return Venues{}, err
		}
	}

	return Venues{
		Gamma:      gamma,
		Polymarket: service.NewGammaSource(gamma, cfg.Polymarket.MarketLimit),
		Kalshi:     service.NewKalshiSource(kc, cfg.Kalshi.EventLimit),
	}, nil
}

// OpenStores opens the configured relational backend, applying migrations
// where the backend needs them.
func OpenStores(ctx context.Context, cfg *config.Config) (Stores, func(), error) {
	switch strings.ToLower(cfg.Storage.Driver) {
	case "sqlite":
		db, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return Stores{}, nil, err
		}
		return Stores{
			History:  sqlite.NewHistoryStore(db),
			Webhooks: sqlite.NewWebhookStore(db),
			APIKeys:  sqlite.NewAPIKeyStore(db),
			Audit:    sqlite.NewAuditStore(db),
		}, func() { _ = db.Close() }, nil

	case "postgres":
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return Stores{}, nil, fmt.Errorf("postgres: %w", err)
		}
		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				pgClient.Close()
				return Stores{}, nil, fmt.Errorf("postgres migrations: %w", err)
			}
		}
		pool := pgClient.Pool()
		return Stores{
			History:  postgres.NewHistoryStore(pool),
			Webhooks: postgres.NewWebhookStore(pool),
			APIKeys:  postgres.NewAPIKeyStore(pool),
			Audit:    postgres.NewAuditStore(pool),
		}, pgClient.Close, nil

	default:
		return Stores{}, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// ScanConfig translates the matching and scan sections into service options.
func ScanConfig(cfg *config.Config) service.ScanConfig {
	general := matching.DefaultOptions()
	applyPreset(&general, cfg.Matching.General)
	sports := matching.SportsOptions()
	applyPreset(&sports, cfg.Matching.Sports)

	value := matching.DefaultValueOptions()
	value.MinMatchScore = cfg.Matching.Value.MinMatchScore
	value.MinEVPercent = cfg.Matching.Value.MinEVPercent
	value.MinSumDeviation = cfg.Matching.Value.MinSumDeviation
	value.ResultCap = cfg.Matching.Value.ResultCap

	return service.ScanConfig{
		General:      general,
		Sports:       sports,
		Value:        value,
		CacheTTL:     cfg.Scan.CacheTTL.Duration,
		VenueTimeout: cfg.Scan.VenueTimeout.Duration,
		Breaker: service.BreakerConfig{
			Failures: uint32(cfg.Scan.BreakerFailures),
			Timeout:  cfg.Scan.BreakerTimeout.Duration,
		},
		HistoryMax: cfg.Storage.HistoryMaxEntries,
	}
}

func applyPreset(o *matching.Options, p config.PresetConfig) {
	o.MinMatchScore = p.MinMatchScore
	o.MinSpreadPercent = p.MinSpreadPercent
	o.MaxSpreadPercent = p.MaxSpreadPercent
	o.ResultCap = p.ResultCap
	o.Stake = p.Stake
}
