package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies FLOATHUNTER_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known FLOATHUNTER_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Empire ──
	setStr(&cfg.Empire.APIBase, "FLOATHUNTER_EMPIRE_API_BASE")
	setStr(&cfg.Empire.APIKey, "FLOATHUNTER_EMPIRE_API_KEY")
	setStr(&cfg.Empire.WSURL, "FLOATHUNTER_EMPIRE_WS_URL")
	setFloat64(&cfg.Empire.CoinFactor, "FLOATHUNTER_EMPIRE_COIN_FACTOR")

	// ── Scanner ──
	setFloat64(&cfg.Scanner.MinProfitPct, "FLOATHUNTER_SCANNER_MIN_PROFIT_PCT")
	setFloat64(&cfg.Scanner.MinLiquidity, "FLOATHUNTER_SCANNER_MIN_LIQUIDITY")
	setFloat64(&cfg.Scanner.MinPrice, "FLOATHUNTER_SCANNER_MIN_PRICE")
	setFloat64(&cfg.Scanner.MaxPrice, "FLOATHUNTER_SCANNER_MAX_PRICE")
	setDuration(&cfg.Scanner.LookupTimeout, "FLOATHUNTER_SCANNER_LOOKUP_TIMEOUT")
	setDuration(&cfg.Scanner.DispatchTimeout, "FLOATHUNTER_SCANNER_DISPATCH_TIMEOUT")
	setDuration(&cfg.Scanner.EvalTimeout, "FLOATHUNTER_SCANNER_EVAL_TIMEOUT")
	setBool(&cfg.Scanner.LogOpportunities, "FLOATHUNTER_SCANNER_LOG_OPPORTUNITIES")

	// ── Stream ──
	setDuration(&cfg.Stream.ConnectTimeout, "FLOATHUNTER_STREAM_CONNECT_TIMEOUT")
	setDuration(&cfg.Stream.AuthTimeout, "FLOATHUNTER_STREAM_AUTH_TIMEOUT")
	setDuration(&cfg.Stream.BackoffBase, "FLOATHUNTER_STREAM_BACKOFF_BASE")
	setDuration(&cfg.Stream.BackoffMax, "FLOATHUNTER_STREAM_BACKOFF_MAX")
	setDuration(&cfg.Stream.StallAfter, "FLOATHUNTER_STREAM_STALL_AFTER")
	setDuration(&cfg.Stream.MonitorInterval, "FLOATHUNTER_STREAM_MONITOR_INTERVAL")
	setInt(&cfg.Stream.RestartFailureLimit, "FLOATHUNTER_STREAM_RESTART_FAILURE_LIMIT")
	setDuration(&cfg.Stream.RestartStaleAfter, "FLOATHUNTER_STREAM_RESTART_STALE_AFTER")
	setInt(&cfg.Stream.FatalRestartLimit, "FLOATHUNTER_STREAM_FATAL_RESTART_LIMIT")

	// ── Supabase ──
	setStr(&cfg.Supabase.DSN, "FLOATHUNTER_SUPABASE_DSN")
	setStr(&cfg.Supabase.DSN, "FLOATHUNTER_SUPABASE_URL") // compatibility alias
	setStr(&cfg.Supabase.Host, "FLOATHUNTER_SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "FLOATHUNTER_SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "FLOATHUNTER_SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "FLOATHUNTER_SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "FLOATHUNTER_SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "FLOATHUNTER_SUPABASE_SSL_MODE")
	setInt(&cfg.Supabase.PoolMaxConns, "FLOATHUNTER_SUPABASE_POOL_MAX_CONNS")
	setInt(&cfg.Supabase.PoolMinConns, "FLOATHUNTER_SUPABASE_POOL_MIN_CONNS")
	setBool(&cfg.Supabase.RunMigrations, "FLOATHUNTER_SUPABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "FLOATHUNTER_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "FLOATHUNTER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FLOATHUNTER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FLOATHUNTER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "FLOATHUNTER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "FLOATHUNTER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "FLOATHUNTER_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.CacheTTL, "FLOATHUNTER_REDIS_CACHE_TTL")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "FLOATHUNTER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "FLOATHUNTER_S3_REGION")
	setStr(&cfg.S3.Bucket, "FLOATHUNTER_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "FLOATHUNTER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "FLOATHUNTER_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "FLOATHUNTER_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "FLOATHUNTER_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "FLOATHUNTER_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "FLOATHUNTER_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "FLOATHUNTER_ARCHIVE_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "FLOATHUNTER_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "FLOATHUNTER_SERVER_PORT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "FLOATHUNTER_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "FLOATHUNTER_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "FLOATHUNTER_NOTIFY_DISCORD_WEBHOOK_URL")

	// ── Top-level ──
	setStr(&cfg.Mode, "FLOATHUNTER_MODE")
	setStr(&cfg.LogLevel, "FLOATHUNTER_LOG_LEVEL")
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
