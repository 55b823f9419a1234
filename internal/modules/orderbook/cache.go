package orderbook

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/bourse/internal/clientdata"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// Cache stores the latest book per symbol. Freshness is decided by the
// synthesizer from Book.GeneratedAt; backends may drop entries earlier.
type Cache interface {
	Get(ctx context.Context, symbol string) (*Book, error)
	Set(ctx context.Context, book *Book) error
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu    sync.RWMutex
	books map[string]*Book
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{books: make(map[string]*Book)}
}

// Get returns the cached book or nil.
func (c *MemoryCache) Get(_ context.Context, symbol string) (*Book, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.books[symbol], nil
}

// Set overwrites the entry for book.Symbol.
func (c *MemoryCache) Set(_ context.Context, book *Book) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.books[book.Symbol] = book
	return nil
}

// Evict drops books generated before now-maxAge and returns how many went.
func (c *MemoryCache) Evict(now time.Time, maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for symbol, b := range c.books {
		if !b.FreshAt(now, maxAge) {
			delete(c.books, symbol)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of cached books.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.books)
}

// RedisCache shares books between instances through Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache stores books under "orderbook:<symbol>" with expiry ttl.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, prefix: "orderbook:"}
}

// Get returns the cached book or nil when the key is missing.
func (c *RedisCache) Get(ctx context.Context, symbol string) (*Book, error) {
	data, err := c.client.Get(ctx, c.prefix+symbol).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order book from redis: %w", err)
	}

	var rec bookRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode order book %s: %w", symbol, err)
	}
	return fromRecord(rec)
}

// Set writes the book with SET EX.
func (c *RedisCache) Set(ctx context.Context, book *Book) error {
	data, err := msgpack.Marshal(toRecord(book))
	if err != nil {
		return fmt.Errorf("failed to encode order book %s: %w", book.Symbol, err)
	}
	if err := c.client.Set(ctx, c.prefix+book.Symbol, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store order book in redis: %w", err)
	}
	return nil
}

// SQLiteCache keeps books in the cache.db order_books table.
type SQLiteCache struct {
	repo *clientdata.Repository
	ttl  time.Duration
}

// NewSQLiteCache creates a cache over the client data repository.
func NewSQLiteCache(repo *clientdata.Repository, ttl time.Duration) *SQLiteCache {
	return &SQLiteCache{repo: repo, ttl: ttl}
}

// Get returns the stored book while its row has not expired.
func (c *SQLiteCache) Get(_ context.Context, symbol string) (*Book, error) {
	var rec bookRecord
	found, err := c.repo.GetIfFresh(clientdata.TableOrderBooks, symbol, &rec)
	if err != nil || !found {
		return nil, err
	}
	return fromRecord(rec)
}

// Set upserts the book row.
func (c *SQLiteCache) Set(_ context.Context, book *Book) error {
	return c.repo.Store(clientdata.TableOrderBooks, book.Symbol, toRecord(book), c.ttl)
}
