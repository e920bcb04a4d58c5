package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed keys (webhook delivery ids) for a TTL
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl. It returns false if the key was
	// already claimed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks whether key is currently claimed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release drops a claim so the key can be processed again. It is used
	// when processing failed after the claim.
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig controls delivery deduplication
type IdempotencyConfig struct {
	// TTL is how long a delivery id is remembered. Storefronts retry failed
	// deliveries well within a day.
	TTL time.Duration

	// Enabled switches deduplication on; when off every delivery is processed
	Enabled bool
}

// DefaultIdempotencyConfig returns a 24h TTL with deduplication on
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
