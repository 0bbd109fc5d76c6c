// Package cache keeps normalized raw price series in Redis so repeated
// requests for the same code and period skip the upstream provider.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"StockLens/internal/model"
)

// ErrMiss is returned by every series cache tier when nothing usable is stored.
var ErrMiss = errors.New("cache miss")

const defaultPrefix = "stocklens:bars:"

// RedisCache stores bar slices as JSON under "<prefix><code>_<period>".
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to addr and verifies the connection with PING.
func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedisCacheWithClient(client, defaultPrefix, ttl), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) Name() string { return "redis" }

// Key returns the Redis key of a series.
func (c *RedisCache) Key(code string, period model.Period) string {
	return c.prefix + SeriesKey(code, period)
}

// SeriesKey is the tier-independent "<code>_<period>" key; slashes in the code are replaced.
func SeriesKey(code string, period model.Period) string {
	return strings.ReplaceAll(code, "/", "_") + "_" + string(period)
}

// Load returns the stored bars or ErrMiss.
func (c *RedisCache) Load(ctx context.Context, code string, period model.Period) ([]model.OHLCV, error) {
	data, err := c.client.Get(ctx, c.Key(code, period)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return DecodeBars(data)
}

// Store saves bars with the configured TTL. A zero TTL keeps the key forever.
func (c *RedisCache) Store(ctx context.Context, code string, period model.Period, bars []model.OHLCV) error {
	data, err := EncodeBars(bars)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.Key(code, period), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate drops a stored series.
func (c *RedisCache) Invalidate(ctx context.Context, code string, period model.Period) error {
	return c.client.Del(ctx, c.Key(code, period)).Err()
}

func (c *RedisCache) Close() error { return c.client.Close() }

// EncodeBars serializes bars for storage.
func EncodeBars(bars []model.OHLCV) ([]byte, error) {
	data, err := json.Marshal(bars)
	if err != nil {
		return nil, fmt.Errorf("encode bars: %w", err)
	}
	return data, nil
}

// DecodeBars parses stored bars. An empty slice counts as a miss.
func DecodeBars(data []byte) ([]model.OHLCV, error) {
	var bars []model.OHLCV
	if err := json.Unmarshal(data, &bars); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	if len(bars) == 0 {
		return nil, ErrMiss
	}
	return bars, nil
}
