package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// TickLease lets one replica claim a scheduled tick using Redis SET NX.
// Losing the race is not an error: the tick is simply skipped locally.
type TickLease struct {
	client *goredis.Client
	prefix string
}

// NewTickLease creates a new Redis-backed tick lease.
func NewTickLease(client *goredis.Client) *TickLease {
	return &TickLease{
		client: client,
		prefix: "lease:",
	}
}

// TryAcquire claims name for ttl. Returns true if this caller holds the lease.
func (l *TickLease) TryAcquire(ctx context.Context, name string, holder string, ttl time.Duration) (bool, error) {
	result, err := l.client.SetArgs(ctx, l.prefix+name, holder, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			// Held by another replica
			return false, nil
		}
		return false, fmt.Errorf("redis lease acquire: %w", err)
	}
	return result == "OK", nil
}
