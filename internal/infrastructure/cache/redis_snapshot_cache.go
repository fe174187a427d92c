package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/orderdesk/backend/internal/domain/stock"
)

const snapshotKeyPrefix = "stock:snapshot:"

// RedisSnapshotCache implements SnapshotCache using Redis. Suitable for
// deployments where multiple instances serve snapshot reads.
type RedisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisSnapshotCache creates a new Redis-based snapshot cache
func NewRedisSnapshotCache(cfg RedisConfig, ttl time.Duration) (*RedisSnapshotCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSnapshotCache{client: client, ttl: ttl}, nil
}

// NewRedisSnapshotCacheWithClient creates a cache with an existing Redis client.
// Useful for testing or when sharing a client across components.
func NewRedisSnapshotCacheWithClient(client *redis.Client, ttl time.Duration) *RedisSnapshotCache {
	return &RedisSnapshotCache{client: client, ttl: ttl}
}

// Get returns the cached snapshot for a product, if present
func (c *RedisSnapshotCache) Get(ctx context.Context, productID uuid.UUID) (*stock.StockSnapshot, bool, error) {
	data, err := c.client.Get(ctx, snapshotKeyPrefix+productID.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read snapshot from cache: %w", err)
	}

	var snapshot stock.StockSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		// A corrupt entry is treated as a miss; the next Set overwrites it.
		return nil, false, nil
	}
	return &snapshot, true, nil
}

// Set stores a snapshot with the configured TTL
func (c *RedisSnapshotCache) Set(ctx context.Context, snapshot *stock.StockSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := c.client.Set(ctx, snapshotKeyPrefix+snapshot.ProductID.String(), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write snapshot to cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached snapshot for a product
func (c *RedisSnapshotCache) Invalidate(ctx context.Context, productID uuid.UUID) error {
	if err := c.client.Del(ctx, snapshotKeyPrefix+productID.String()).Err(); err != nil {
		return fmt.Errorf("failed to invalidate snapshot: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisSnapshotCache) Close() error {
	return c.client.Close()
}

// Ensure RedisSnapshotCache implements SnapshotCache
var _ SnapshotCache = (*RedisSnapshotCache)(nil)
