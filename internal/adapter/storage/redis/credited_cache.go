package redis

import (
	"context"
	"fmt"
	"time"

	"wallet-reconciler/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// CreditedCache implements ports.CreditedCache using Redis.
type CreditedCache struct {
	client *goredis.Client
	prefix string
}

// NewCreditedCache creates a new Redis-backed credited-fingerprint cache.
func NewCreditedCache(client *goredis.Client) *CreditedCache {
	return &CreditedCache{
		client: client,
		prefix: "credited:",
	}
}

// IsCredited reports whether fp has been marked as credited.
func (c *CreditedCache) IsCredited(ctx context.Context, fp domain.Fingerprint) (bool, error) {
	n, err := c.client.Exists(ctx, c.prefix+string(fp)).Result()
	if err != nil {
		return false, fmt.Errorf("redis credited exists: %w", err)
	}
	return n > 0, nil
}

// MarkCredited records fp as credited for ttl.
func (c *CreditedCache) MarkCredited(ctx context.Context, fp domain.Fingerprint, ttl time.Duration) error {
	err := c.client.Set(ctx, c.prefix+string(fp), time.Now().UTC().Format(time.RFC3339), ttl).Err()
	if err != nil {
		return fmt.Errorf("redis credited set: %w", err)
	}
	return nil
}
