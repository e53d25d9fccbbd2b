package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBSCAN_* environment variable overrides, and
// returns the final Config. An empty path skips the file and starts from the
// defaults. The returned Config has NOT been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARBSCAN_* environment variables and
// overwrites the corresponding Config fields when a variable is set.
func applyEnvOverrides(cfg *Config) {
	// ── Kalshi ──
	setStr(&cfg.Kalshi.BaseURL, "ARBSCAN_KALSHI_BASE_URL")
	setStr(&cfg.Kalshi.APIKeyID, "ARBSCAN_KALSHI_API_KEY_ID")
	setStr(&cfg.Kalshi.RSAPrivateKeyPath, "ARBSCAN_KALSHI_RSA_PRIVATE_KEY_PATH")
	setInt(&cfg.Kalshi.EventLimit, "ARBSCAN_KALSHI_EVENT_LIMIT")
	setFloat64(&cfg.Kalshi.RatePerSecond, "ARBSCAN_KALSHI_RATE_PER_SECOND")

	// ── Polymarket ──
	setStr(&cfg.Polymarket.GammaHost, "ARBSCAN_POLYMARKET_GAMMA_HOST")
	setInt(&cfg.Polymarket.MarketLimit, "ARBSCAN_POLYMARKET_MARKET_LIMIT")
	setFloat64(&cfg.Polymarket.RatePerSecond, "ARBSCAN_POLYMARKET_RATE_PER_SECOND")

	// ── Matching ──
	setFloat64(&cfg.Matching.General.MinMatchScore, "ARBSCAN_MATCHING_GENERAL_MIN_MATCH_SCORE")
	setFloat64(&cfg.Matching.General.MinSpreadPercent, "ARBSCAN_MATCHING_GENERAL_MIN_SPREAD_PERCENT")
	setFloat64(&cfg.Matching.General.MaxSpreadPercent, "ARBSCAN_MATCHING_GENERAL_MAX_SPREAD_PERCENT")
	setInt(&cfg.Matching.General.ResultCap, "ARBSCAN_MATCHING_GENERAL_RESULT_CAP")
	setFloat64(&cfg.Matching.General.Stake, "ARBSCAN_MATCHING_GENERAL_STAKE")
	setFloat64(&cfg.Matching.Sports.MinMatchScore, "ARBSCAN_MATCHING_SPORTS_MIN_MATCH_SCORE")
	setFloat64(&cfg.Matching.Sports.MinSpreadPercent, "ARBSCAN_MATCHING_SPORTS_MIN_SPREAD_PERCENT")
	setFloat64(&cfg.Matching.Value.MinEVPercent, "ARBSCAN_MATCHING_VALUE_MIN_EV_PERCENT")

	// ── Scan ──
	setDuration(&cfg.Scan.CacheTTL, "ARBSCAN_SCAN_CACHE_TTL")
	setDuration(&cfg.Scan.Interval, "ARBSCAN_SCAN_INTERVAL")
	setDuration(&cfg.Scan.VenueTimeout, "ARBSCAN_SCAN_VENUE_TIMEOUT")
	setDuration(&cfg.Scan.StatusTTL, "ARBSCAN_SCAN_STATUS_TTL")
	setDuration(&cfg.Scan.BreakerTimeout, "ARBSCAN_SCAN_BREAKER_TIMEOUT")
	setInt(&cfg.Scan.BreakerFailures, "ARBSCAN_SCAN_BREAKER_FAILURES")

	// ── Storage ──
	setStr(&cfg.Storage.Driver, "ARBSCAN_STORAGE_DRIVER")
	setStr(&cfg.Storage.SQLitePath, "ARBSCAN_STORAGE_SQLITE_PATH")
	setInt(&cfg.Storage.HistoryMaxEntries, "ARBSCAN_STORAGE_HISTORY_MAX_ENTRIES")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "ARBSCAN_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "ARBSCAN_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ARBSCAN_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ARBSCAN_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ARBSCAN_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ARBSCAN_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ARBSCAN_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ARBSCAN_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ARBSCAN_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ARBSCAN_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ARBSCAN_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBSCAN_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARBSCAN_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ARBSCAN_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ARBSCAN_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ARBSCAN_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "ARBSCAN_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ARBSCAN_S3_REGION")
	setStr(&cfg.S3.Bucket, "ARBSCAN_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ARBSCAN_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ARBSCAN_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ARBSCAN_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ARBSCAN_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "ARBSCAN_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Cron, "ARBSCAN_ARCHIVE_CRON")
	setInt(&cfg.Archive.RetentionDays, "ARBSCAN_ARCHIVE_RETENTION_DAYS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ARBSCAN_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ARBSCAN_SERVER_PORT")
	setInt(&cfg.Server.Port, "PORT") // platform alias
	setStringSlice(&cfg.Server.CORSOrigins, "ARBSCAN_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.IPRateLimit, "ARBSCAN_SERVER_IP_RATE_LIMIT")

	// ── Auth ──
	setStr(&cfg.Auth.Pepper, "ARBSCAN_AUTH_PEPPER")
	setStr(&cfg.Auth.AdminToken, "ARBSCAN_AUTH_ADMIN_TOKEN")

	// ── Webhooks ──
	setBool(&cfg.Webhooks.Enabled, "ARBSCAN_WEBHOOKS_ENABLED")
	setDuration(&cfg.Webhooks.Timeout, "ARBSCAN_WEBHOOKS_TIMEOUT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ARBSCAN_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ARBSCAN_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ARBSCAN_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ARBSCAN_NOTIFY_EVENTS")

	// ── Metrics ──
	setBool(&cfg.Metrics.Enabled, "ARBSCAN_METRICS_ENABLED")
	setStr(&cfg.Metrics.Path, "ARBSCAN_METRICS_PATH")

	// ── Top-level ──
	setStr(&cfg.Mode, "ARBSCAN_MODE")
	setStr(&cfg.LogLevel, "ARBSCAN_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
