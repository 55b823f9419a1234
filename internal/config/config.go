// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Order book cache backends
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendSQLite = "sqlite"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for ledger.db and cache.db (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	OrderBook OrderBookConfig
	Fees      FeeConfig
	Prices    PriceConfig
	Backup    *BackupConfig // nil when backups are not configured

	RedisAddr string // Only used when OrderBook.CacheBackend is redis
	NATSURL   string // Empty disables event publication to NATS
}

// OrderBookConfig controls the synthetic order book
type OrderBookConfig struct {
	CacheBackend string
	TTL          time.Duration
	Seed         uint64 // 0 means seed from the clock
}

// FeeConfig holds the maker/taker fee schedule
type FeeConfig struct {
	TakerRate   decimal.Decimal
	MakerRate   decimal.Decimal
	DefaultRate decimal.Decimal
}

// PriceConfig controls the price oracle
type PriceConfig struct {
	Simulation     bool   // Random-walk the quote book on a schedule
	SimulationCron string // Cron spec for the random walk
	CacheTTL       time.Duration
}

// BackupConfig holds S3-compatible ledger backup settings
type BackupConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Schedule        string
	Retain          int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("BOURSE_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	takerRate, err := getEnvAsDecimal("TAKER_FEE_RATE", "0.001")
	if err != nil {
		return nil, err
	}
	makerRate, err := getEnvAsDecimal("MAKER_FEE_RATE", "0.0008")
	if err != nil {
		return nil, err
	}
	defaultRate, err := getEnvAsDecimal("TRADING_FEE_RATE", "0.001")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		OrderBook: OrderBookConfig{
			CacheBackend: strings.ToLower(getEnv("ORDERBOOK_CACHE", CacheBackendMemory)),
			TTL:          getEnvAsDuration("ORDERBOOK_TTL", 30*time.Second),
			Seed:         uint64(getEnvAsInt("ORDERBOOK_SEED", 0)),
		},
		Fees: FeeConfig{
			TakerRate:   takerRate,
			MakerRate:   makerRate,
			DefaultRate: defaultRate,
		},
		Prices: PriceConfig{
			Simulation:     getEnvAsBool("PRICE_SIMULATION", false),
			SimulationCron: getEnv("PRICE_SIMULATION_SCHEDULE", "@every 5s"),
			CacheTTL:       getEnvAsDuration("PRICE_CACHE_TTL", 24*time.Hour),
		},
		Backup:    loadBackupConfig(),
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		NATSURL:   getEnv("NATS_URL", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	switch c.OrderBook.CacheBackend {
	case CacheBackendMemory, CacheBackendRedis, CacheBackendSQLite:
	default:
		return fmt.Errorf("unknown ORDERBOOK_CACHE backend %q (expected memory, redis or sqlite)", c.OrderBook.CacheBackend)
	}

	if c.OrderBook.TTL <= 0 {
		return fmt.Errorf("ORDERBOOK_TTL must be positive, got %s", c.OrderBook.TTL)
	}

	for name, rate := range map[string]decimal.Decimal{
		"TAKER_FEE_RATE":   c.Fees.TakerRate,
		"MAKER_FEE_RATE":   c.Fees.MakerRate,
		"TRADING_FEE_RATE": c.Fees.DefaultRate,
	} {
		if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return fmt.Errorf("%s must be in [0, 1), got %s", name, rate)
		}
	}

	if c.Backup != nil && c.Backup.Bucket == "" {
		return fmt.Errorf("BACKUP_BUCKET is required when backups are enabled")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsDecimal(key, defaultValue string) (decimal.Decimal, error) {
	raw := getEnv(key, defaultValue)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

// loadBackupConfig returns nil unless BACKUP_ENABLED is set
func loadBackupConfig() *BackupConfig {
	if !getEnvAsBool("BACKUP_ENABLED", false) {
		return nil
	}
	return &BackupConfig{
		Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
		Region:          getEnv("BACKUP_REGION", "auto"),
		Bucket:          getEnv("BACKUP_BUCKET", ""),
		AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
		Schedule:        getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"),
		Retain:          getEnvAsInt("BACKUP_RETAIN", 7),
	}
}
