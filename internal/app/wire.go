package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/ethclient"

	s3blob "github.com/alanyoungcy/majorbet/internal/blob/s3"
	"github.com/alanyoungcy/majorbet/internal/cache/redis"
	"github.com/alanyoungcy/majorbet/internal/config"
	"github.com/alanyoungcy/majorbet/internal/domain"
	"github.com/alanyoungcy/majorbet/internal/notify"
	"github.com/alanyoungcy/majorbet/internal/platform/ethchain"
	"github.com/alanyoungcy/majorbet/internal/server/handler"
	"github.com/alanyoungcy/majorbet/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application modes
// need to operate. It is constructed by Wire and torn down by the returned
// cleanup function. Storage fields are nil in modes that do not use them.
type Dependencies struct {
	// Stores
	ContestStore domain.ContestStore
	BetStore     domain.BetStore
	AuditStore   domain.AuditStore

	// Caches
	SnapshotCache domain.SnapshotCache
	PriceCache    domain.PriceCache
	RateLimiter   domain.RateLimiter
	LockManager   domain.LockManager
	SignalBus     domain.SignalBus

	// Blob storage
	Archiver *s3blob.Archiver

	// Chain
	EthClient *ethclient.Client
	Ledger    *ethchain.Client

	// Notifications
	Notifier *notify.Notifier

	// Health lists the dependencies /api/health probes.
	Health map[string]handler.Pinger
}

// pingFunc adapts a health function to handler.Pinger.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// needsStorage returns true for modes that run the aggregation service.
func needsStorage(mode string) bool {
	switch mode {
	case "server", "sync":
		return true
	default:
		return false
	}
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

	deps := &Dependencies{Health: make(map[string]handler.Pinger)}
	mode := strings.ToLower(cfg.Mode)

	// --- Ledger (optional in watch mode) ---
	if cfg.Chain.RPCURL != "" && cfg.Chain.ContractAddress != "" {
		ec, err := ethchain.Dial(ctx, cfg.Chain.RPCURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: %w", err)
		}
		closers = append(closers, ec.Close)
		deps.EthClient = ec

		ledger, err := ethchain.NewClient(ec, cfg.Chain.ContractAddress)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: ledger: %w", err)
		}
		deps.Ledger = ledger
		deps.Health["chain"] = pingFunc(func(ctx context.Context) error {
			_, err := ec.BlockNumber(ctx)
			return err
		})
	}

	if needsStorage(mode) {
		// --- PostgreSQL ---
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:            cfg.Postgres.DSN,
			Host:           cfg.Postgres.Host,
			Port:           cfg.Postgres.Port,
			Database:       cfg.Postgres.Database,
			User:           cfg.Postgres.User,
			Password:       cfg.Postgres.Password,
			SSLMode:        cfg.Postgres.SSLMode,
			MaxConns:       cfg.Postgres.PoolMaxConns,
			MinConns:       cfg.Postgres.PoolMinConns,
			ConnectTimeout: cfg.Postgres.ConnectTimeout.Duration,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.ContestStore = postgres.NewContestStore(pool)
		deps.BetStore = postgres.NewBetStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
		deps.Health["postgres"] = pgClient

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

		deps.SnapshotCache = redis.NewSnapshotCache(redisClient, cfg.Redis.SnapshotTTL.Duration)
		deps.PriceCache = redis.NewPriceCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient, cfg.PriceFeed.QuotaLimit, cfg.PriceFeed.QuotaWindow.Duration)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.Health["redis"] = redisClient

		// --- S3 snapshot archive ---
		if cfg.S3.Enabled {
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
			deps.Archiver = s3blob.NewArchiver(
				s3blob.NewWriter(s3Client),
				deps.ContestStore,
				deps.BetStore,
				deps.AuditStore,
				cfg.Sync.ArchivePrefix,
				s3blob.WithMultipart(cfg.S3.MultipartThreshold, cfg.S3.PartSize),
			)
			deps.Health["s3"] = pingFunc(s3Client.Health)
		}
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

	return deps, cleanup, nil
}
