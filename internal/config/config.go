// Package config defines the top-level configuration for the marketplace
// scanner and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by FLOATHUNTER_* environment variables.
type Config struct {
	Empire   EmpireConfig   `toml:"empire"`
	Scanner  ScannerConfig  `toml:"scanner"`
	Stream   StreamConfig   `toml:"stream"`
	Supabase SupabaseConfig `toml:"supabase"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Archive  ArchiveConfig  `toml:"archive"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// EmpireConfig holds the marketplace API endpoints and credentials.
type EmpireConfig struct {
	APIBase string `toml:"api_base"`
	APIKey  string `toml:"api_key"`
	WSURL   string `toml:"ws_url"`
	// CoinFactor converts marketplace coins into USD.
	CoinFactor float64 `toml:"coin_factor"`
}

// ScannerConfig holds the opportunity filter thresholds. All thresholds are
// inclusive.
type ScannerConfig struct {
	MinProfitPct    float64  `toml:"min_profit_pct"`
	MinLiquidity    float64  `toml:"min_liquidity"`
	MinPrice        float64  `toml:"min_price"`
	MaxPrice        float64  `toml:"max_price"`
	LookupTimeout   duration `toml:"lookup_timeout"`
	DispatchTimeout duration `toml:"dispatch_timeout"`
	EvalTimeout     duration `toml:"eval_timeout"`
	// LogOpportunities enables the best-effort opportunity log in Postgres.
	LogOpportunities bool `toml:"log_opportunities"`
}

// StreamConfig holds the connection lifecycle and watchdog parameters.
type StreamConfig struct {
	ConnectTimeout      duration `toml:"connect_timeout"`
	AuthTimeout         duration `toml:"auth_timeout"`
	BackoffBase         duration `toml:"backoff_base"`
	BackoffMax          duration `toml:"backoff_max"`
	StallAfter          duration `toml:"stall_after"`
	MonitorInterval     duration `toml:"monitor_interval"`
	RestartFailureLimit int      `toml:"restart_failure_limit"`
	RestartStaleAfter   duration `toml:"restart_stale_after"`
	FatalRestartLimit   int      `toml:"fatal_restart_limit"`
}

// SupabaseConfig holds PostgreSQL / Supabase connection parameters.
type SupabaseConfig struct {
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

// RedisConfig holds Redis connection parameters for the reference cache.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	CacheTTL   duration `toml:"cache_ttl"`
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

// ArchiveConfig holds opportunity-log retention parameters.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP health-server parameters.
type ServerConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string `toml:"telegram_token"`
	TelegramChatID    string `toml:"telegram_chat_id"`
	DiscordWebhookURL string `toml:"discord_webhook_url"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Empire: EmpireConfig{
			APIBase:    "https://csgoempire.com/api/v2",
			WSURL:      "wss://trade.csgoempire.com/trade",
			CoinFactor: 0.614,
		},
		Scanner: ScannerConfig{
			MinProfitPct:     5.0,
			MinLiquidity:     0.7,
			MinPrice:         1.0,
			MaxPrice:         1000.0,
			LookupTimeout:    duration{5 * time.Second},
			DispatchTimeout:  duration{10 * time.Second},
			EvalTimeout:      duration{10 * time.Second},
			LogOpportunities: true,
		},
		Stream: StreamConfig{
			ConnectTimeout:      duration{30 * time.Second},
			AuthTimeout:         duration{10 * time.Second},
			BackoffBase:         duration{1 * time.Second},
			BackoffMax:          duration{5 * time.Minute},
			StallAfter:          duration{5 * time.Minute},
			MonitorInterval:     duration{30 * time.Second},
			RestartFailureLimit: 10,
			RestartStaleAfter:   duration{time.Hour},
			FatalRestartLimit:   5,
		},
		Supabase: SupabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "require",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    true,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			CacheTTL:   duration{5 * time.Minute},
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "floathunter-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 30,
			Interval:      duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8080,
		},
		Mode:     "scan",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode. "scan" runs the
// full pipeline; "monitor" runs the stream and health server without
// dispatching notifications.
var validModes = map[string]bool{
	"scan":    true,
	"monitor": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, monitor)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Empire
	if c.Empire.APIKey == "" {
		errs = append(errs, "empire: api_key must not be empty")
	}
	if c.Empire.APIBase == "" {
		errs = append(errs, "empire: api_base must not be empty")
	}
	if c.Empire.WSURL == "" {
		errs = append(errs, "empire: ws_url must not be empty")
	}
	if c.Empire.CoinFactor <= 0 {
		errs = append(errs, fmt.Sprintf("empire: coin_factor must be > 0, got %v", c.Empire.CoinFactor))
	}

	// Scanner
	if c.Scanner.MinLiquidity < 0 || c.Scanner.MinLiquidity > 1 {
		errs = append(errs, fmt.Sprintf("scanner: min_liquidity must be 0.0-1.0, got %v", c.Scanner.MinLiquidity))
	}
	if c.Scanner.MinPrice < 0 {
		errs = append(errs, "scanner: min_price must be >= 0")
	}
	if c.Scanner.MaxPrice <= c.Scanner.MinPrice {
		errs = append(errs, fmt.Sprintf("scanner: max_price (%v) must exceed min_price (%v)", c.Scanner.MaxPrice, c.Scanner.MinPrice))
	}
	if c.Scanner.LookupTimeout.Duration <= 0 {
		errs = append(errs, "scanner: lookup_timeout must be > 0")
	}

	// Stream
	if c.Stream.BackoffBase.Duration <= 0 {
		errs = append(errs, "stream: backoff_base must be > 0")
	}
	if c.Stream.BackoffMax.Duration < c.Stream.BackoffBase.Duration {
		errs = append(errs, "stream: backoff_max must be >= backoff_base")
	}
	if c.Stream.AuthTimeout.Duration <= 0 {
		errs = append(errs, "stream: auth_timeout must be > 0")
	}
	if c.Stream.StallAfter.Duration <= 0 {
		errs = append(errs, "stream: stall_after must be > 0")
	}
	if c.Stream.MonitorInterval.Duration <= 0 {
		errs = append(errs, "stream: monitor_interval must be > 0")
	}
	if c.Stream.RestartFailureLimit < 1 {
		errs = append(errs, "stream: restart_failure_limit must be >= 1")
	}
	if c.Stream.RestartStaleAfter.Duration <= 0 {
		errs = append(errs, "stream: restart_stale_after must be > 0")
	}

	// Supabase
	if strings.TrimSpace(c.Supabase.DSN) == "" {
		if c.Supabase.Host == "" {
			errs = append(errs, "supabase: host must not be empty (or set supabase.dsn)")
		}
		if c.Supabase.Port <= 0 || c.Supabase.Port > 65535 {
			errs = append(errs, fmt.Sprintf("supabase: port must be 1-65535, got %d", c.Supabase.Port))
		}
		if c.Supabase.Database == "" {
			errs = append(errs, "supabase: database must not be empty")
		}
	}
	if c.Supabase.PoolMaxConns < 1 {
		errs = append(errs, "supabase: pool_max_conns must be >= 1")
	}
	if c.Supabase.PoolMinConns < 0 {
		errs = append(errs, "supabase: pool_min_conns must be >= 0")
	}
	if c.Supabase.PoolMinConns > c.Supabase.PoolMaxConns {
		errs = append(errs, "supabase: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.CacheTTL.Duration <= 0 {
			errs = append(errs, "redis: cache_ttl must be > 0")
		}
	}

	// Archive
	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archiving is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archiving is enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
		if c.Archive.Interval.Duration <= 0 {
			errs = append(errs, "archive: interval must be > 0")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
