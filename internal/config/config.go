// Package config defines the majorbet configuration and its validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/majorbet/internal/pipeline"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by MAJORBET_* environment variables.
type Config struct {
	Chain     ChainConfig     `toml:"chain"`
	Wallet    WalletConfig    `toml:"wallet"`
	Backend   BackendConfig   `toml:"backend"`
	PriceFeed PriceFeedConfig `toml:"price_feed"`
	Poll      PollConfig      `toml:"poll"`
	Odds      OddsConfig      `toml:"odds"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Sync      SyncConfig      `toml:"sync"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// ChainConfig locates the contest contract.
type ChainConfig struct {
	RPCURL          string `toml:"rpc_url"`
	ContractAddress string `toml:"contract_address"`
	ChainID         int64  `toml:"chain_id"`
	GasLimit        uint64 `toml:"gas_limit"`
}

// WalletConfig holds the bettor's key. Address alone is enough for read-only
// position tracking.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
	Address          string `toml:"address"`
}

// BackendConfig points at the aggregation service.
type BackendConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout duration `toml:"timeout"`
}

// PriceFeedConfig holds the ETH/USD provider chain.
type PriceFeedConfig struct {
	BinanceURL     string   `toml:"binance_url"`
	CoinGeckoURL   string   `toml:"coingecko_url"`
	StageTimeout   duration `toml:"stage_timeout"`
	Interval       duration `toml:"interval"`
	MaxAge         duration `toml:"max_age"`
	FallbackSymbol string   `toml:"fallback_symbol"`
	FallbackPrice  string   `toml:"fallback_price"`

	// QuotaLimit upstream fetches per QuotaWindow, shared by all instances.
	QuotaLimit  int      `toml:"quota_limit"`
	QuotaWindow duration `toml:"quota_window"`
}

// PollConfig holds the dashboard polling cadence.
type PollConfig struct {
	Interval     duration `toml:"interval"`
	RefreshDelay duration `toml:"refresh_delay"`
	FetchTimeout duration `toml:"fetch_timeout"`
}

// OddsConfig holds the payout parameters.
type OddsConfig struct {
	HouseCut float64 `toml:"house_cut"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN            string   `toml:"dsn"`
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	Database       string   `toml:"database"`
	User           string   `toml:"user"`
	Password       string   `toml:"password"`
	SSLMode        string   `toml:"ssl_mode"`
	PoolMaxConns   int      `toml:"pool_max_conns"`
	PoolMinConns   int      `toml:"pool_min_conns"`
	ConnectTimeout duration `toml:"connect_timeout"`
	RunMigrations  bool     `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr        string   `toml:"addr"`
	Password    string   `toml:"password"`
	DB          int      `toml:"db"`
	PoolSize    int      `toml:"pool_size"`
	MaxRetries  int      `toml:"max_retries"`
	TLSEnabled  bool     `toml:"tls_enabled"`
	SnapshotTTL duration `toml:"snapshot_ttl"`
}

// S3Config holds S3-compatible object storage parameters for snapshot
// archives.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`

	// Snapshots larger than MultipartThreshold bytes are uploaded in parts of
	// PartSize bytes.
	MultipartThreshold int64 `toml:"multipart_threshold"`
	PartSize           int64 `toml:"part_size"`
}

// SyncConfig holds the chain sync and archive schedule.
type SyncConfig struct {
	Interval      duration `toml:"interval"`
	ArchiveCron   string   `toml:"archive_cron"`
	ArchivePrefix string   `toml:"archive_prefix"`
	LockTTL       duration `toml:"lock_ttl"`
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

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey guards /api/sync. Empty leaves it open.
	APIKey          string   `toml:"api_key"`
	RecordBetLimit  int      `toml:"record_bet_limit"`
	RecordBetWindow duration `toml:"record_bet_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			ChainID:  11155111,
			GasLimit: 200_000,
		},
		Backend: BackendConfig{
			BaseURL: "http://127.0.0.1:5001/api",
			Timeout: duration{10 * time.Second},
		},
		PriceFeed: PriceFeedConfig{
			BinanceURL:     "https://api.binance.com",
			CoinGeckoURL:   "https://api.coingecko.com",
			StageTimeout:   duration{5 * time.Second},
			Interval:       duration{10 * time.Second},
			MaxAge:         duration{time.Minute},
			FallbackSymbol: "ETHUSDT",
			FallbackPrice:  "3000",
			QuotaLimit:     30,
			QuotaWindow:    duration{time.Minute},
		},
		Poll: PollConfig{
			Interval:     duration{5 * time.Second},
			RefreshDelay: duration{5 * time.Second},
			FetchTimeout: duration{10 * time.Second},
		},
		Odds: OddsConfig{
			HouseCut: 0.10,
		},
		Postgres: PostgresConfig{
			Host:           "localhost",
			Port:           5432,
			Database:       "majorbet",
			User:           "postgres",
			SSLMode:        "disable",
			PoolMaxConns:   10,
			PoolMinConns:   2,
			ConnectTimeout: duration{10 * time.Second},
			RunMigrations:  true,
		},
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			PoolSize:    20,
			MaxRetries:  3,
			SnapshotTTL: duration{5 * time.Minute},
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "majorbet-archive",
			ForcePathStyle: true,

			MultipartThreshold: 8 * 1024 * 1024,
			PartSize:           5 * 1024 * 1024,
		},
		Sync: SyncConfig{
			Interval:      duration{15 * time.Second},
			ArchiveCron:   "0 * * * *",
			ArchivePrefix: "archive/contest",
			LockTTL:       duration{30 * time.Second},
		},
		Server: ServerConfig{
			Port:            5001,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			RecordBetLimit:  10,
			RecordBetWindow: duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"status_changed", "sync_failed"},
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"server": true,
	"sync":   true,
	"watch":  true,
	"bet":    true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// usesStorage reports whether the mode talks to Postgres and Redis.
func usesStorage(mode string) bool {
	return mode == "server" || mode == "sync"
}

// Validate checks the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var errs []string
	mode := strings.ToLower(c.Mode)

	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, sync, watch, bet)", c.Mode))
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Chain.ContractAddress != "" && !common.IsHexAddress(c.Chain.ContractAddress) {
		errs = append(errs, fmt.Sprintf("chain: contract_address %q is not a hex address", c.Chain.ContractAddress))
	}
	if c.Chain.ChainID <= 0 {
		errs = append(errs, "chain: chain_id must be positive")
	}
	if validModes[mode] && mode != "watch" {
		if c.Chain.RPCURL == "" {
			errs = append(errs, "chain: rpc_url is required for mode "+mode)
		}
		if c.Chain.ContractAddress == "" {
			errs = append(errs, "chain: contract_address is required for mode "+mode)
		}
	}
	if mode == "bet" {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set for mode bet")
		}
		if c.Chain.GasLimit == 0 {
			errs = append(errs, "chain: gas_limit must be > 0")
		}
	}
	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
	}
	if c.Wallet.Address != "" && !common.IsHexAddress(c.Wallet.Address) {
		errs = append(errs, fmt.Sprintf("wallet: address %q is not a hex address", c.Wallet.Address))
	}

	if (mode == "watch" || mode == "bet") && c.Backend.BaseURL == "" {
		errs = append(errs, "backend: base_url must not be empty")
	}

	if c.Odds.HouseCut < 0 || c.Odds.HouseCut >= 1 {
		errs = append(errs, fmt.Sprintf("odds: house_cut must be in [0, 1), got %v", c.Odds.HouseCut))
	}
	if c.Poll.Interval.Duration <= 0 {
		errs = append(errs, "poll: interval must be > 0")
	}
	if c.PriceFeed.Interval.Duration <= 0 {
		errs = append(errs, "price_feed: interval must be > 0")
	}

	if usesStorage(mode) {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}

		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}

		if c.Sync.Interval.Duration <= 0 {
			errs = append(errs, "sync: interval must be > 0")
		}
		if c.S3.Enabled {
			if c.S3.Bucket == "" {
				errs = append(errs, "s3: bucket must not be empty")
			}
			if c.S3.PartSize != 0 && c.S3.PartSize < 5*1024*1024 {
				errs = append(errs, "s3: part_size must be at least 5 MiB")
			}
			if err := pipeline.ValidateCron(c.Sync.ArchiveCron); err != nil {
				errs = append(errs, "sync: archive_cron: "+err.Error())
			}
		}
	}

	if mode == "server" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RecordBetLimit < 0 {
			errs = append(errs, "server: record_bet_limit must be >= 0")
		}
		if c.Server.RecordBetLimit > 0 && c.Server.RecordBetWindow.Duration <= 0 {
			errs = append(errs, "server: record_bet_window must be > 0 when record_bet_limit is set")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
