// Package config defines the top-level configuration for streamarb and
// provides validation helpers plus the runtime-tunable parameter object.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by STREAMARB_* environment
// variables.
type Config struct {
	Ledger   LedgerConfig   `toml:"ledger"`
	Venue    VenueConfig    `toml:"venue"`
	Trading  TradingConfig  `toml:"trading"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// LedgerConfig holds the ledger index endpoints and polling parameters.
type LedgerConfig struct {
	MidgardURL   string   `toml:"midgard_url"`
	ThornodeURL  string   `toml:"thornode_url"`
	TrackedAsset string   `toml:"tracked_asset"`
	PollInterval duration `toml:"poll_interval"`
	// FetchLimit is the per-poll action count. Sized with margin (>= 5x the
	// typical actions per block) so bursts and missed cycles lose nothing.
	FetchLimit   int `toml:"fetch_limit"`
	BlockSeconds int `toml:"block_seconds"`
}

// VenueConfig holds the hedging exchange endpoints and credentials.
type VenueConfig struct {
	BaseURL             string `toml:"base_url"`
	Pair                string `toml:"pair"`
	APIKey              string `toml:"api_key"`
	APISecret           string `toml:"api_secret"`
	EncryptedSecretPath string `toml:"encrypted_secret_path"`
	SecretPassword      string `toml:"secret_password"`
	DepthCount          int    `toml:"depth_count"`
}

// TradingConfig holds the operator-tunable trading thresholds. These seed the
// Runtime object; the pipeline reads them from there, never from here.
type TradingConfig struct {
	MinSizeUSD     float64 `toml:"min_size_usd"`
	MinDurationSec int64   `toml:"min_duration_sec"`
	MaxSlippagePct float64 `toml:"max_slippage_pct"`
	NotionalUSD    float64 `toml:"notional_usd"`
	ExitBufferSec  int64   `toml:"exit_buffer_sec"`
	// FallbackQty is used when a depth snapshot cannot be fetched for sizing.
	// Zero aborts planning instead.
	FallbackQty float64 `toml:"fallback_qty"`
	DryRun      bool    `toml:"dry_run"`
}

// PostgresConfig holds PostgreSQL connection parameters. An empty DSN
// disables persistence.
type PostgresConfig struct {
	DSN          string `toml:"dsn"`
	PoolMaxConns int    `toml:"pool_max_conns"`
	PoolMinConns int    `toml:"pool_min_conns"`
}

// RedisConfig holds Redis connection parameters for the event mirror. An
// empty Addr disables it.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the cold
// archive. An empty Bucket disables it.
type S3Config struct {
	Endpoint        string   `toml:"endpoint"`
	Region          string   `toml:"region"`
	Bucket          string   `toml:"bucket"`
	AccessKey       string   `toml:"access_key"`
	SecretKey       string   `toml:"secret_key"`
	ForcePathStyle  bool     `toml:"force_path_style"`
	ArchiveInterval duration `toml:"archive_interval"`
}

// ServerConfig holds HTTP server parameters. An empty APIKey disables
// authentication; a zero RateLimit disables rate limiting.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
	RateLimit   int      `toml:"rate_limit"`
}

// NotifyConfig holds notification channel credentials and the event filter.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "6s", "5m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with sane development defaults.
func Defaults() Config {
	return Config{
		Ledger: LedgerConfig{
			MidgardURL:   "https://midgard.ninerealms.com",
			ThornodeURL:  "https://thornode.ninerealms.com",
			TrackedAsset: "BTC.BTC",
			PollInterval: duration{6 * time.Second},
			FetchLimit:   50,
			BlockSeconds: 6,
		},
		Venue: VenueConfig{
			BaseURL:    "https://api.kraken.com",
			Pair:       "XBTUSD",
			DepthCount: 25,
		},
		Trading: TradingConfig{
			MinSizeUSD:     100_000,
			MinDurationSec: 120,
			MaxSlippagePct: 0.5,
			NotionalUSD:    1_000,
			ExitBufferSec:  30,
			FallbackQty:    0,
			DryRun:         true,
		},
		Postgres: PostgresConfig{
			PoolMaxConns: 4,
			PoolMinConns: 1,
		},
		Redis: RedisConfig{
			PoolSize: 10,
		},
		S3: S3Config{
			Region:          "us-east-1",
			ArchiveInterval: duration{15 * time.Minute},
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8080,
		},
		Mode:     "watch",
		LogLevel: "info",
	}
}

// Validate checks the configuration for internal consistency. It is called
// once at startup after Load.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Mode) {
	case "watch", "trade":
	default:
		return fmt.Errorf("config: unsupported mode %q", c.Mode)
	}

	if c.Ledger.MidgardURL == "" {
		return fmt.Errorf("config: ledger.midgard_url is required")
	}
	if c.Ledger.TrackedAsset == "" {
		return fmt.Errorf("config: ledger.tracked_asset is required")
	}
	if c.Ledger.PollInterval.Duration <= 0 {
		return fmt.Errorf("config: ledger.poll_interval must be positive")
	}
	if c.Ledger.FetchLimit <= 0 {
		return fmt.Errorf("config: ledger.fetch_limit must be positive")
	}
	if c.Ledger.BlockSeconds <= 0 {
		return fmt.Errorf("config: ledger.block_seconds must be positive")
	}

	if c.Venue.BaseURL == "" {
		return fmt.Errorf("config: venue.base_url is required")
	}
	if c.Venue.Pair == "" {
		return fmt.Errorf("config: venue.pair is required")
	}

	if c.Trading.MinSizeUSD < 0 {
		return fmt.Errorf("config: trading.min_size_usd must not be negative")
	}
	if c.Trading.MinDurationSec < 0 {
		return fmt.Errorf("config: trading.min_duration_sec must not be negative")
	}
	if c.Trading.MaxSlippagePct <= 0 {
		return fmt.Errorf("config: trading.max_slippage_pct must be positive")
	}
	if c.Trading.NotionalUSD <= 0 {
		return fmt.Errorf("config: trading.notional_usd must be positive")
	}
	if c.Trading.ExitBufferSec < 0 {
		return fmt.Errorf("config: trading.exit_buffer_sec must not be negative")
	}

	if strings.ToLower(c.Mode) == "trade" && !c.Trading.DryRun {
		if c.Venue.APIKey == "" {
			return fmt.Errorf("config: venue.api_key is required for live trading")
		}
		if c.Venue.APISecret == "" && c.Venue.EncryptedSecretPath == "" {
			return fmt.Errorf("config: venue.api_secret or venue.encrypted_secret_path is required for live trading")
		}
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("config: server.port out of range: %d", c.Server.Port)
	}

	return nil
}
