// Package config defines the top-level configuration for the arbitrage
// scanner and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBSCAN_* environment variables.
type Config struct {
	Kalshi     KalshiConfig     `toml:"kalshi"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Matching   MatchingConfig   `toml:"matching"`
	Scan       ScanConfig       `toml:"scan"`
	Storage    StorageConfig    `toml:"storage"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Archive    ArchiveConfig    `toml:"archive"`
	Server     ServerConfig     `toml:"server"`
	Auth       AuthConfig       `toml:"auth"`
	Webhooks   WebhooksConfig   `toml:"webhooks"`
	Notify     NotifyConfig     `toml:"notify"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// KalshiConfig holds the Kalshi trade API endpoint and optional signing key.
// The events listing is public; credentials are only used when both are set.
type KalshiConfig struct {
	BaseURL           string  `toml:"base_url"`
	APIKeyID          string  `toml:"api_key_id"`
	RSAPrivateKeyPath string  `toml:"rsa_private_key_path"`
	EventLimit        int     `toml:"event_limit"`
	RatePerSecond     float64 `toml:"rate_per_second"`
	Burst             int     `toml:"burst"`
}

// PolymarketConfig holds the Gamma API endpoint and pacing.
type PolymarketConfig struct {
	GammaHost     string  `toml:"gamma_host"`
	MarketLimit   int     `toml:"market_limit"`
	RatePerSecond float64 `toml:"rate_per_second"`
	Burst         int     `toml:"burst"`
}

// PresetConfig tunes one cross-venue detection preset.
type PresetConfig struct {
	MinMatchScore    float64 `toml:"min_match_score"`
	MinSpreadPercent float64 `toml:"min_spread_percent"`
	MaxSpreadPercent float64 `toml:"max_spread_percent"`
	ResultCap        int     `toml:"result_cap"`
	Stake            float64 `toml:"stake"`
}

// ValueConfig tunes the value-pick scan.
type ValueConfig struct {
	MinMatchScore   float64 `toml:"min_match_score"`
	MinEVPercent    float64 `toml:"min_ev_percent"`
	MinSumDeviation float64 `toml:"min_sum_deviation"`
	ResultCap       int     `toml:"result_cap"`
}

// MatchingConfig groups the detection presets.
type MatchingConfig struct {
	General PresetConfig `toml:"general"`
	Sports  PresetConfig `toml:"sports"`
	Value   ValueConfig  `toml:"value"`
}

// ScanConfig controls how scans are scheduled, cached and protected.
type ScanConfig struct {
	CacheTTL        duration `toml:"cache_ttl"`
	Interval        duration `toml:"interval"`
	VenueTimeout    duration `toml:"venue_timeout"`
	StatusTTL       duration `toml:"status_ttl"`
	BreakerTimeout  duration `toml:"breaker_timeout"`
	BreakerFailures int      `toml:"breaker_failures"`
}

// StorageConfig selects the relational backend for history, webhooks and keys.
type StorageConfig struct {
	Driver            string `toml:"driver"`
	SQLitePath        string `toml:"sqlite_path"`
	HistoryMaxEntries int    `toml:"history_max_entries"`
}

// PostgresConfig holds connection parameters for the Postgres store.
//
// If DSN is set, it is used as-is and takes precedence over the discrete
// host/port/user/password fields.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig schedules the move of old history into S3.
type ArchiveConfig struct {
	Enabled       bool   `toml:"enabled"`
	Cron          string `toml:"cron"`
	RetentionDays int    `toml:"retention_days"`
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// IPRateLimit is the number of requests per minute allowed per client IP.
	// Zero disables the per-IP limiter.
	IPRateLimit int `toml:"ip_rate_limit"`
}

// AuthConfig holds API-key hashing and admin credentials.
type AuthConfig struct {
	Pepper     string `toml:"pepper"`
	AdminToken string `toml:"admin_token"`
	// TierLimits overrides the hourly request limit per tier name. A value of
	// 0 means unlimited.
	TierLimits map[string]int `toml:"tier_limits"`
}

// WebhooksConfig controls outbound webhook delivery.
type WebhooksConfig struct {
	Enabled bool     `toml:"enabled"`
	Timeout duration `toml:"timeout"`
}

// NotifyConfig holds chat notification targets.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Defaults returns a Config populated with sensible default values.
func Defaults() Config {
	return Config{
		Kalshi: KalshiConfig{
			BaseURL:       "https://api.elections.kalshi.com/trade-api/v2",
			EventLimit:    200,
			RatePerSecond: 10,
			Burst:         5,
		},
		Polymarket: PolymarketConfig{
			GammaHost:     "https://gamma-api.polymarket.com",
			MarketLimit:   100,
			RatePerSecond: 10,
			Burst:         5,
		},
		Matching: MatchingConfig{
			General: PresetConfig{
				MinMatchScore:    0.55,
				MinSpreadPercent: 2,
				MaxSpreadPercent: 100,
				ResultCap:        50,
				Stake:            100,
			},
			Sports: PresetConfig{
				MinMatchScore:    0.5,
				MinSpreadPercent: 2,
				MaxSpreadPercent: 100,
				ResultCap:        50,
				Stake:            100,
			},
			Value: ValueConfig{
				MinMatchScore:   0.55,
				MinEVPercent:    5,
				MinSumDeviation: 0.03,
				ResultCap:       50,
			},
		},
		Scan: ScanConfig{
			CacheTTL:        duration{30 * time.Second},
			Interval:        duration{time.Minute},
			VenueTimeout:    duration{15 * time.Second},
			StatusTTL:       duration{30 * time.Second},
			BreakerTimeout:  duration{30 * time.Second},
			BreakerFailures: 3,
		},
		Storage: StorageConfig{
			Driver:            "postgres",
			SQLitePath:        "arbscan.db",
			HistoryMaxEntries: 10000,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "arbscan-data",
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			Cron:          "0 3 1 * *",
			RetentionDays: 90,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"*"},
			IPRateLimit: 120,
		},
		Auth: AuthConfig{
			TierLimits: map[string]int{},
		},
		Webhooks: WebhooksConfig{
			Enabled: true,
			Timeout: duration{5 * time.Second},
		},
		Notify: NotifyConfig{
			Events: []string{"arb_detected", "error"},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"server":  true,
	"monitor": true,
	"full":    true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validTiers = map[string]bool{
	"free": true,
	"pro":  true,
	"api":  true,
}

// Validate checks the configuration for logical errors and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, monitor, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Kalshi.BaseURL == "" {
		errs = append(errs, "kalshi: base_url must not be empty")
	}
	if (c.Kalshi.APIKeyID == "") != (c.Kalshi.RSAPrivateKeyPath == "") {
		errs = append(errs, "kalshi: api_key_id and rsa_private_key_path must be set together")
	}
	if c.Kalshi.EventLimit < 1 {
		errs = append(errs, "kalshi: event_limit must be >= 1")
	}
	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}
	if c.Polymarket.MarketLimit < 1 {
		errs = append(errs, "polymarket: market_limit must be >= 1")
	}

	errs = append(errs, c.Matching.General.validate("matching.general")...)
	errs = append(errs, c.Matching.Sports.validate("matching.sports")...)
	if v := c.Matching.Value; v.MinMatchScore <= 0 || v.MinMatchScore > 1 {
		errs = append(errs, "matching.value: min_match_score must be in (0, 1]")
	}
	if c.Matching.Value.ResultCap < 1 {
		errs = append(errs, "matching.value: result_cap must be >= 1")
	}

	if c.Scan.CacheTTL.Duration < 0 {
		errs = append(errs, "scan: cache_ttl must not be negative")
	}
	if c.Scan.Interval.Duration <= 0 {
		errs = append(errs, "scan: interval must be > 0")
	}
	if c.Scan.VenueTimeout.Duration <= 0 {
		errs = append(errs, "scan: venue_timeout must be > 0")
	}
	if c.Scan.BreakerFailures < 1 {
		errs = append(errs, "scan: breaker_failures must be >= 1")
	}

	switch strings.ToLower(c.Storage.Driver) {
	case "postgres":
		errs = append(errs, c.Postgres.validate()...)
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			errs = append(errs, "storage: sqlite_path must not be empty for the sqlite driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage: unknown driver %q (valid: postgres, sqlite)", c.Storage.Driver))
	}
	if c.Storage.HistoryMaxEntries < 1 {
		errs = append(errs, "storage: history_max_entries must be >= 1")
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
		if len(strings.Fields(c.Archive.Cron)) != 5 {
			errs = append(errs, fmt.Sprintf("archive: cron must have 5 fields, got %q", c.Archive.Cron))
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Auth.Pepper == "" {
			errs = append(errs, "auth: pepper must be set when the server is enabled")
		}
	}
	for tier, limit := range c.Auth.TierLimits {
		if !validTiers[tier] {
			errs = append(errs, fmt.Sprintf("auth: unknown tier %q in tier_limits", tier))
		}
		if limit < 0 {
			errs = append(errs, fmt.Sprintf("auth: tier_limits[%s] must be >= 0", tier))
		}
	}

	if c.Webhooks.Enabled && c.Webhooks.Timeout.Duration <= 0 {
		errs = append(errs, "webhooks: timeout must be > 0")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, "metrics: path must start with /")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (p PresetConfig) validate(section string) []string {
	var errs []string
	if p.MinMatchScore <= 0 || p.MinMatchScore > 1 {
		errs = append(errs, section+": min_match_score must be in (0, 1]")
	}
	if p.MinSpreadPercent < 0 {
		errs = append(errs, section+": min_spread_percent must be >= 0")
	}
	if p.MaxSpreadPercent <= p.MinSpreadPercent {
		errs = append(errs, section+": max_spread_percent must exceed min_spread_percent")
	}
	if p.ResultCap < 1 {
		errs = append(errs, section+": result_cap must be >= 1")
	}
	if p.Stake <= 0 {
		errs = append(errs, section+": stake must be > 0")
	}
	return errs
}

func (p PostgresConfig) validate() []string {
	var errs []string
	if strings.TrimSpace(p.DSN) == "" {
		if p.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if p.Port <= 0 || p.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", p.Port))
		}
		if p.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if p.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if p.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if p.PoolMinConns > p.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}
	return errs
}

// TierLimit returns the hourly limit for tier, honoring any override.
// The boolean is false when no override is configured.
func (a AuthConfig) TierLimit(tier string) (int, bool) {
	n, ok := a.TierLimits[tier]
	return n, ok
}
