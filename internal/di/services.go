package di

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aristath/bourse/internal/clientdata"
	"github.com/aristath/bourse/internal/config"
	"github.com/aristath/bourse/internal/events"
	"github.com/aristath/bourse/internal/modules/ledger"
	"github.com/aristath/bourse/internal/modules/orderbook"
	"github.com/aristath/bourse/internal/modules/portfolio"
	"github.com/aristath/bourse/internal/modules/prices"
	"github.com/aristath/bourse/internal/modules/trading"
	"github.com/aristath/bourse/internal/reliability"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// InitializeServices creates repositories, infrastructure clients and services
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	// Events: in-process bus, optionally mirrored to NATS
	container.EventBus = events.NewBus(log)

	var publisher events.Publisher
	if cfg.NATSURL != "" {
		natsPublisher, err := events.NewNATSPublisher(cfg.NATSURL, log)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		container.NATSPublisher = natsPublisher
		publisher = natsPublisher
	}
	container.EventManager = events.NewManager(container.EventBus, publisher, log)

	container.Validate = validator.New()

	// Repositories
	container.ClientDataRepo = clientdata.NewRepository(container.CacheDB.Conn())
	container.PortfolioRepo = portfolio.NewRepository(container.LedgerDB.Conn(), log)
	container.LedgerRepo = ledger.NewRepository(container.LedgerDB.Conn(), log)

	// Price oracle, restored from the last persisted snapshot
	container.Oracle = prices.NewOracle(container.ClientDataRepo, cfg.Prices.CacheTTL, container.EventManager, log)
	restored, err := container.Oracle.Restore()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to restore persisted quotes, using fallback prices")
	} else if restored > 0 {
		log.Info().Int("quotes", restored).Msg("Restored persisted quotes")
	}

	// Order book cache backend
	cache, err := newBookCache(container, cfg, log)
	if err != nil {
		return err
	}
	container.BookCache = cache

	container.Synthesizer = orderbook.NewSynthesizer(
		container.Oracle,
		cache,
		orderbook.NewSeededRandom(cfg.OrderBook.Seed),
		cfg.OrderBook.TTL,
		log,
	)

	// Services
	container.PortfolioService = portfolio.NewService(container.PortfolioRepo, container.Oracle, container.EventManager, log)

	container.ExecutionService = trading.NewExecutionService(
		container.LedgerDB.Conn(),
		container.PortfolioRepo,
		container.LedgerRepo,
		container.Synthesizer,
		container.Oracle,
		trading.FeeSchedule{
			Taker:   cfg.Fees.TakerRate,
			Maker:   cfg.Fees.MakerRate,
			Default: cfg.Fees.DefaultRate,
		},
		container.EventManager,
		log,
	)

	if cfg.Backup != nil {
		store, err := reliability.NewS3Store(context.Background(), reliability.S3Config{
			Endpoint:        cfg.Backup.Endpoint,
			Region:          cfg.Backup.Region,
			Bucket:          cfg.Backup.Bucket,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
		})
		if err != nil {
			return fmt.Errorf("failed to create backup store: %w", err)
		}
		container.BackupService = reliability.NewBackupService(
			container.LedgerDB,
			store,
			filepath.Join(cfg.DataDir, "backups"),
			cfg.Backup.Retain,
			container.EventManager,
			log,
		)
	}

	log.Info().
		Str("orderbook_cache", cfg.OrderBook.CacheBackend).
		Bool("nats", container.NATSPublisher != nil).
		Bool("backups", container.BackupService != nil).
		Msg("Services initialized")

	return nil
}

// newBookCache builds the configured order book cache
func newBookCache(container *Container, cfg *config.Config, log zerolog.Logger) (orderbook.Cache, error) {
	switch cfg.OrderBook.CacheBackend {
	case config.CacheBackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}

		container.RedisClient = client
		log.Info().Str("addr", cfg.RedisAddr).Msg("Using redis order book cache")
		return orderbook.NewRedisCache(client, cfg.OrderBook.TTL), nil

	case config.CacheBackendSQLite:
		return orderbook.NewSQLiteCache(container.ClientDataRepo, cfg.OrderBook.TTL), nil

	default:
		container.MemoryCache = orderbook.NewMemoryCache()
		return container.MemoryCache, nil
	}
}
