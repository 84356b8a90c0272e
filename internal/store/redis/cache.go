// Package redis caches fetched candle series in Redis so repeated
// backtests over the same coin and lookback skip the exchange.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"crypto-backtest/internal/breaker"
	"crypto-backtest/internal/model"
)

const defaultTTL = 5 * time.Minute

// Config configures the Redis cache.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	TTL      time.Duration // entry lifetime; 0 uses 5m
}

// Cache stores candle series as JSON strings with a TTL.
// Every call goes through a circuit breaker so a dead Redis costs one
// fast ErrOpen instead of a dial timeout per request.
type Cache struct {
	client *goredis.Client
	ttl    time.Duration
	cb     *breaker.Breaker
}

// New connects to Redis, pings it and returns a Cache.
func New(cfg Config, cb *breaker.Breaker) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return NewWithClient(client, cfg.TTL, cb), nil
}

// NewWithClient wraps an existing client. A nil breaker gets a default
// one (5 failures, 10s reset).
func NewWithClient(client *goredis.Client, ttl time.Duration, cb *breaker.Breaker) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if cb == nil {
		cb = breaker.New("redis", 5, 10*time.Second)
	}
	if cb.Neutral == nil {
		cb.Neutral = neutral
	}
	return &Cache{client: client, ttl: ttl, cb: cb}
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// GetCandles returns ok=false on a miss.
func (c *Cache) GetCandles(ctx context.Context, key string) ([]model.Candle, bool, error) {
	var raw []byte
	err := c.cb.Execute(func() error {
		var err error
		raw, err = c.client.Get(ctx, key).Bytes()
		return err
	})
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	candles, err := decodeCandles(raw)
	if err != nil {
		// A corrupt entry is a miss; the next write replaces it.
		return nil, false, fmt.Errorf("redis decode %s: %w", key, err)
	}
	return candles, true, nil
}

// SetCandles stores candles under key with the configured TTL.
func (c *Cache) SetCandles(ctx context.Context, key string, candles []model.Candle) error {
	raw, err := json.Marshal(candles)
	if err != nil {
		return fmt.Errorf("marshal candles: %w", err)
	}
	err = c.cb.Execute(func() error {
		return c.client.Set(ctx, key, raw, c.ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

func decodeCandles(raw []byte) ([]model.Candle, error) {
	var candles []model.Candle
	if err := json.Unmarshal(raw, &candles); err != nil {
		return nil, err
	}
	return candles, nil
}

// neutral keeps cache misses and caller cancellations from tripping the breaker.
func neutral(err error) bool {
	return errors.Is(err, goredis.Nil) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
