/**
 * Package di provides dependency injection type definitions.
 *
 * The Container holds every long-lived dependency. It is created by Wire()
 * and handed to the HTTP server, which builds its handlers from it.
 */
package di

import (
	"github.com/aristath/bourse/internal/clientdata"
	"github.com/aristath/bourse/internal/config"
	"github.com/aristath/bourse/internal/database"
	"github.com/aristath/bourse/internal/events"
	"github.com/aristath/bourse/internal/modules/ledger"
	"github.com/aristath/bourse/internal/modules/orderbook"
	"github.com/aristath/bourse/internal/modules/portfolio"
	"github.com/aristath/bourse/internal/modules/prices"
	"github.com/aristath/bourse/internal/modules/trading"
	"github.com/aristath/bourse/internal/reliability"
	"github.com/aristath/bourse/internal/scheduler"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
)

/**
 * Container holds all dependencies for the application.
 *
 * Architecture:
 * - Databases: ledger.db (portfolios, holdings, transactions) and cache.db
 *   (persisted quotes and books)
 * - Infrastructure: event bus, optional NATS and Redis connections
 * - Repositories and services for prices, order books, portfolios, trading
 * - Scheduler with the maintenance jobs registered by RegisterJobs
 */
type Container struct {
	Config *config.Config

	// Databases
	LedgerDB *database.DB
	CacheDB  *database.DB

	// Infrastructure
	EventBus      *events.Bus
	EventManager  *events.Manager
	NATSPublisher *events.NATSPublisher // nil when NATS_URL is unset
	RedisClient   *redis.Client         // nil unless ORDERBOOK_CACHE=redis
	Validate      *validator.Validate

	// Repositories
	ClientDataRepo *clientdata.Repository
	PortfolioRepo  *portfolio.Repository
	LedgerRepo     *ledger.Repository

	// Order books
	BookCache   orderbook.Cache
	MemoryCache *orderbook.MemoryCache // Set only for the memory backend
	Synthesizer *orderbook.Synthesizer

	// Services
	Oracle           *prices.Oracle
	PortfolioService *portfolio.Service
	ExecutionService *trading.ExecutionService
	BackupService    *reliability.BackupService // nil when backups are disabled

	Scheduler *scheduler.Scheduler
}

// Close releases every connection the container owns.
func (c *Container) Close() {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	if c.NATSPublisher != nil {
		c.NATSPublisher.Close()
	}
	if c.RedisClient != nil {
		_ = c.RedisClient.Close()
	}
	if c.CacheDB != nil {
		_ = c.CacheDB.Close()
	}
	if c.LedgerDB != nil {
		_ = c.LedgerDB.Close()
	}
}
