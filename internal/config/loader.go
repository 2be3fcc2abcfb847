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
// built-in defaults, applies MAJORBET_* environment variable overrides, and
// returns the final Config. An empty path skips the file. The returned Config
// has NOT been validated; the caller should invoke Config.Validate() after
// Load.
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

// applyEnvOverrides reads well-known MAJORBET_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "MAJORBET_CHAIN_RPC_URL")
	setStr(&cfg.Chain.ContractAddress, "MAJORBET_CHAIN_CONTRACT_ADDRESS")
	setInt64(&cfg.Chain.ChainID, "MAJORBET_CHAIN_CHAIN_ID")
	setUint64(&cfg.Chain.GasLimit, "MAJORBET_CHAIN_GAS_LIMIT")

	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "MAJORBET_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "MAJORBET_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "MAJORBET_WALLET_KEY_PASSWORD")
	setStr(&cfg.Wallet.Address, "MAJORBET_WALLET_ADDRESS")

	// ── Backend ──
	setStr(&cfg.Backend.BaseURL, "MAJORBET_BACKEND_BASE_URL")
	setDuration(&cfg.Backend.Timeout, "MAJORBET_BACKEND_TIMEOUT")

	// ── Price feed ──
	setStr(&cfg.PriceFeed.BinanceURL, "MAJORBET_PRICE_FEED_BINANCE_URL")
	setStr(&cfg.PriceFeed.CoinGeckoURL, "MAJORBET_PRICE_FEED_COINGECKO_URL")
	setDuration(&cfg.PriceFeed.StageTimeout, "MAJORBET_PRICE_FEED_STAGE_TIMEOUT")
	setDuration(&cfg.PriceFeed.Interval, "MAJORBET_PRICE_FEED_INTERVAL")
	setDuration(&cfg.PriceFeed.MaxAge, "MAJORBET_PRICE_FEED_MAX_AGE")
	setStr(&cfg.PriceFeed.FallbackSymbol, "MAJORBET_PRICE_FEED_FALLBACK_SYMBOL")
	setStr(&cfg.PriceFeed.FallbackPrice, "MAJORBET_PRICE_FEED_FALLBACK_PRICE")
	setInt(&cfg.PriceFeed.QuotaLimit, "MAJORBET_PRICE_FEED_QUOTA_LIMIT")
	setDuration(&cfg.PriceFeed.QuotaWindow, "MAJORBET_PRICE_FEED_QUOTA_WINDOW")

	// ── Poll ──
	setDuration(&cfg.Poll.Interval, "MAJORBET_POLL_INTERVAL")
	setDuration(&cfg.Poll.RefreshDelay, "MAJORBET_POLL_REFRESH_DELAY")
	setDuration(&cfg.Poll.FetchTimeout, "MAJORBET_POLL_FETCH_TIMEOUT")

	// ── Odds ──
	setFloat64(&cfg.Odds.HouseCut, "MAJORBET_ODDS_HOUSE_CUT")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.DSN, "MAJORBET_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "MAJORBET_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MAJORBET_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MAJORBET_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MAJORBET_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MAJORBET_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MAJORBET_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "MAJORBET_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "MAJORBET_POSTGRES_POOL_MIN_CONNS")
	setDuration(&cfg.Postgres.ConnectTimeout, "MAJORBET_POSTGRES_CONNECT_TIMEOUT")
	setBool(&cfg.Postgres.RunMigrations, "MAJORBET_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "MAJORBET_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MAJORBET_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MAJORBET_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MAJORBET_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MAJORBET_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MAJORBET_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.SnapshotTTL, "MAJORBET_REDIS_SNAPSHOT_TTL")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "MAJORBET_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "MAJORBET_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MAJORBET_S3_REGION")
	setStr(&cfg.S3.Bucket, "MAJORBET_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MAJORBET_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MAJORBET_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MAJORBET_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MAJORBET_S3_FORCE_PATH_STYLE")
	setInt64(&cfg.S3.MultipartThreshold, "MAJORBET_S3_MULTIPART_THRESHOLD")
	setInt64(&cfg.S3.PartSize, "MAJORBET_S3_PART_SIZE")

	// ── Sync ──
	setDuration(&cfg.Sync.Interval, "MAJORBET_SYNC_INTERVAL")
	setStr(&cfg.Sync.ArchiveCron, "MAJORBET_SYNC_ARCHIVE_CRON")
	setStr(&cfg.Sync.ArchivePrefix, "MAJORBET_SYNC_ARCHIVE_PREFIX")
	setDuration(&cfg.Sync.LockTTL, "MAJORBET_SYNC_LOCK_TTL")

	// ── Server ──
	setInt(&cfg.Server.Port, "PORT") // compatibility alias
	setInt(&cfg.Server.Port, "MAJORBET_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "MAJORBET_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "MAJORBET_SERVER_API_KEY")
	setInt(&cfg.Server.RecordBetLimit, "MAJORBET_SERVER_RECORD_BET_LIMIT")
	setDuration(&cfg.Server.RecordBetWindow, "MAJORBET_SERVER_RECORD_BET_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "MAJORBET_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MAJORBET_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MAJORBET_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MAJORBET_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "MAJORBET_MODE")
	setStr(&cfg.LogLevel, "MAJORBET_LOG_LEVEL")
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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
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
