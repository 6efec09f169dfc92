package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies STREAMARB_* environment variable overrides, and
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

// applyEnvOverrides reads well-known STREAMARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Mode, "STREAMARB_MODE")
	setStr(&cfg.LogLevel, "STREAMARB_LOG_LEVEL")

	setStr(&cfg.Ledger.MidgardURL, "STREAMARB_LEDGER_MIDGARD_URL")
	setStr(&cfg.Ledger.ThornodeURL, "STREAMARB_LEDGER_THORNODE_URL")
	setStr(&cfg.Ledger.TrackedAsset, "STREAMARB_LEDGER_TRACKED_ASSET")
	setInt(&cfg.Ledger.FetchLimit, "STREAMARB_LEDGER_FETCH_LIMIT")
	setInt(&cfg.Ledger.BlockSeconds, "STREAMARB_LEDGER_BLOCK_SECONDS")

	setStr(&cfg.Venue.BaseURL, "STREAMARB_VENUE_BASE_URL")
	setStr(&cfg.Venue.Pair, "STREAMARB_VENUE_PAIR")
	setStr(&cfg.Venue.APIKey, "STREAMARB_VENUE_API_KEY")
	setStr(&cfg.Venue.APISecret, "STREAMARB_VENUE_API_SECRET")
	setStr(&cfg.Venue.EncryptedSecretPath, "STREAMARB_VENUE_ENCRYPTED_SECRET_PATH")
	setStr(&cfg.Venue.SecretPassword, "STREAMARB_VENUE_SECRET_PASSWORD")
	setInt(&cfg.Venue.DepthCount, "STREAMARB_VENUE_DEPTH_COUNT")

	setFloat64(&cfg.Trading.MinSizeUSD, "STREAMARB_TRADING_MIN_SIZE_USD")
	setInt64(&cfg.Trading.MinDurationSec, "STREAMARB_TRADING_MIN_DURATION_SEC")
	setFloat64(&cfg.Trading.MaxSlippagePct, "STREAMARB_TRADING_MAX_SLIPPAGE_PCT")
	setFloat64(&cfg.Trading.NotionalUSD, "STREAMARB_TRADING_NOTIONAL_USD")
	setInt64(&cfg.Trading.ExitBufferSec, "STREAMARB_TRADING_EXIT_BUFFER_SEC")
	setFloat64(&cfg.Trading.FallbackQty, "STREAMARB_TRADING_FALLBACK_QTY")
	setBool(&cfg.Trading.DryRun, "STREAMARB_TRADING_DRY_RUN")

	setStr(&cfg.Postgres.DSN, "STREAMARB_POSTGRES_DSN")
	setInt(&cfg.Postgres.PoolMaxConns, "STREAMARB_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "STREAMARB_POSTGRES_POOL_MIN_CONNS")

	setStr(&cfg.Redis.Addr, "STREAMARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "STREAMARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "STREAMARB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "STREAMARB_REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "STREAMARB_REDIS_TLS_ENABLED")

	setStr(&cfg.S3.Endpoint, "STREAMARB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "STREAMARB_S3_REGION")
	setStr(&cfg.S3.Bucket, "STREAMARB_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "STREAMARB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "STREAMARB_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "STREAMARB_S3_FORCE_PATH_STYLE")

	setBool(&cfg.Server.Enabled, "STREAMARB_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "STREAMARB_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "STREAMARB_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "STREAMARB_SERVER_RATE_LIMIT")

	setStr(&cfg.Notify.TelegramToken, "STREAMARB_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "STREAMARB_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "STREAMARB_NOTIFY_DISCORD_WEBHOOK_URL")
}

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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
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
