package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces jobscout cache keys in a shared Redis.
const DefaultRedisPrefix = "jobscout:parse:"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g. "redis://localhost:6379").
	URL string

	// Prefix namespaces the cache keys (defaults to DefaultRedisPrefix).
	Prefix string

	// TTL is the entry time-to-live.
	TTL time.Duration
}

// RedisCache implements Cache on Redis. Expiry is native: entries are
// stored with a TTL and Redis drops them itself, so Cleanup is a no-op and
// ExpiredCount is always zero.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis creates a Redis-backed cache and verifies the connection.
func NewRedis(cfg RedisConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("cache TTL must be positive, got %s", cfg.TTL)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}

	slog.Info("redis cache connected", "prefix", prefix, "ttl", cfg.TTL)

	return &RedisCache{client: client, prefix: prefix, ttl: cfg.TTL}, nil
}

// Get returns the entry for key, or nil if Redis has dropped or never held it.
func (c *RedisCache) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse cache entry: %w", err)
	}
	return &entry, nil
}

// Put stores the entry with the configured TTL, overwriting any prior value.
func (c *RedisCache) Put(ctx context.Context, entry *Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+entry.Key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Stats counts live keys under the prefix by scanning. Redis holds no
// expired entries, so ExpiredCount is always zero.
func (c *RedisCache) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		stats.Entries++
		size, err := c.client.StrLen(ctx, iter.Val()).Result()
		if err == nil {
			stats.TotalBytes += size
		}
	}
	if err := iter.Err(); err != nil {
		return Stats{}, fmt.Errorf("failed to scan cache keys: %w", err)
	}
	return stats, nil
}

// Cleanup is a no-op: Redis expires entries natively.
func (c *RedisCache) Cleanup(ctx context.Context) (int64, error) {
	return 0, nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
