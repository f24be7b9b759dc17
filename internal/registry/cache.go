package registry

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"persona/internal/cas"
)

const pointerKeyPrefix = "persona:pointer:"

// PointerCache caches resolved registry pointers in Redis with a short TTL so
// repeated loads don't hit the ledger. Cache failures are treated as misses;
// the ledger stays the source of truth.
type PointerCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPointerCache builds a cache over an existing Redis client.
func NewPointerCache(client *redis.Client, ttl time.Duration) *PointerCache {
	return &PointerCache{client: client, ttl: ttl}
}

// Get returns the cached pointer for owner, if present.
func (c *PointerCache) Get(ctx context.Context, owner string) (cas.Address, bool) {
	val, err := c.client.Get(ctx, pointerKeyPrefix+owner).Result()
	if errors.Is(err, redis.Nil) || err != nil {
		return "", false
	}
	return cas.Address(val), true
}

// Set stores the pointer with the configured TTL. Errors are ignored; a cache
// write failure must never fail the read path.
func (c *PointerCache) Set(ctx context.Context, owner string, addr cas.Address) {
	_ = c.client.Set(ctx, pointerKeyPrefix+owner, string(addr), c.ttl).Err()
}

// Invalidate drops the cached pointer for owner.
func (c *PointerCache) Invalidate(ctx context.Context, owner string) {
	_ = c.client.Del(ctx, pointerKeyPrefix+owner).Err()
}
