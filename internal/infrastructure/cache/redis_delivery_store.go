package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kossanah/woocommerce-fusion/internal/domain/shared"
)

// DefaultDeliveryKeyPrefix namespaces webhook delivery ids in Redis
const DefaultDeliveryKeyPrefix = "fusion:webhook:delivery:"

// RedisDeliveryStore remembers accepted webhook deliveries in Redis so that
// every server instance rejects the same redelivery.
type RedisDeliveryStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisDeliveryStore connects to Redis and verifies the connection
func NewRedisDeliveryStore(ctx context.Context, cfg RedisConfig) (*RedisDeliveryStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisDeliveryStoreWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisDeliveryStoreWithClient wraps an existing client
func NewRedisDeliveryStoreWithClient(client redis.UniversalClient, keyPrefix string) *RedisDeliveryStore {
	if keyPrefix == "" {
		keyPrefix = DefaultDeliveryKeyPrefix
	}
	return &RedisDeliveryStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// MarkProcessed records a delivery id. It returns false if the id was
// already recorded and has not expired. SETNX keeps the check and the write
// atomic across instances.
func (s *RedisDeliveryStore) MarkProcessed(ctx context.Context, deliveryKey string, ttl time.Duration) (bool, error) {
	fresh, err := s.client.SetNX(ctx, s.keyPrefix+deliveryKey, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record delivery: %w", err)
	}
	return fresh, nil
}

// IsProcessed reports whether a delivery id is currently recorded
func (s *RedisDeliveryStore) IsProcessed(ctx context.Context, deliveryKey string) (bool, error) {
	n, err := s.client.Exists(ctx, s.keyPrefix+deliveryKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to look up delivery: %w", err)
	}
	return n > 0, nil
}

// Release forgets a delivery id
func (s *RedisDeliveryStore) Release(ctx context.Context, deliveryKey string) error {
	if err := s.client.Del(ctx, s.keyPrefix+deliveryKey).Err(); err != nil {
		return fmt.Errorf("failed to release delivery: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisDeliveryStore) Close() error {
	return s.client.Close()
}

var _ shared.IdempotencyStore = (*RedisDeliveryStore)(nil)
