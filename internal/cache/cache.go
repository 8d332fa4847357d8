// Package cache implements the two-tier cache: an in-process bounded tier
// backed by an optional shared tier, used for token subject lookups,
// black-list markers and hot settings.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/redis/go-redis/v9"
)

// Cache is the two-tier cache contract: get/set/delete/exists over string
// keys and values. Tier 2 is best-effort; a tier-2 failure never fails the
// call.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Exists(ctx context.Context, key string) bool
}

// TwoTier combines a ristretto in-process cache (tier 1) with an optional
// redis client (tier 2). If redis is nil, the cache degrades to tier 1 only
// without failing the process, per the "optional shared cache" contract.
// Tier 1 itself can be switched off entirely (enableMemoryCache=false),
// degrading further to tier-2-only or, with neither tier present, a cache
// that never hits and silently drops writes.
type TwoTier struct {
	tier1      *ristretto.Cache
	tier2      *redis.Client
	log        *slog.Logger
	defaultTTL time.Duration
}

// New constructs the cache. capacity bounds the number of tier-1 entries
// (approximate: ristretto evicts by cost/frequency, not strict LRU, which
// satisfies the "approximate LRU" requirement) and is ignored when
// enableMemoryCache is false. redisClient may be nil. defaultTTL is applied
// to Set calls made with ttl<=0.
func New(enableMemoryCache bool, capacity int64, defaultTTL time.Duration, redisClient *redis.Client, log *slog.Logger) (*TwoTier, error) {
	var t1 *ristretto.Cache
	if enableMemoryCache {
		var err error
		t1, err = ristretto.NewCache(&ristretto.Config{
			NumCounters: capacity * 10,
			MaxCost:     capacity,
			BufferItems: 64,
		})
		if err != nil {
			return nil, err
		}
	}
	if log == nil {
		log = slog.Default()
	}
	return &TwoTier{tier1: t1, tier2: redisClient, log: log, defaultTTL: defaultTTL}, nil
}

// Get reads tier 1 first, then tier 2 with promotion back into tier 1.
func (c *TwoTier) Get(ctx context.Context, key string) (string, bool) {
	if c.tier1 != nil {
		if v, ok := c.tier1.Get(key); ok {
			return v.(string), true
		}
	}
	if c.tier2 == nil {
		return "", false
	}
	v, err := c.tier2.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("cache_tier2_get_failed", "error", err, "key", key)
		}
		return "", false
	}
	if c.tier1 != nil {
		c.tier1.SetWithTTL(key, v, 1, 0)
	}
	return v, true
}

// Set writes tier 1 then tier 2 (best-effort). A tier-2 failure is logged
// and does not abort the operation. A non-positive ttl falls back to the
// configured default.
func (c *TwoTier) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if c.tier1 != nil {
		if ttl > 0 {
			c.tier1.SetWithTTL(key, value, 1, ttl)
		} else {
			c.tier1.Set(key, value, 1)
		}
	}
	if c.tier2 == nil {
		return
	}
	if err := c.tier2.Set(ctx, key, value, ttl).Err(); err != nil {
		c.log.Warn("cache_tier2_set_failed", "error", err, "key", key)
	}
}

// Delete removes the key from both tiers. Used after mutations that affect
// cached keys (token revocation, policy update) so the cache never serves a
// stale pre-image.
func (c *TwoTier) Delete(ctx context.Context, key string) {
	if c.tier1 != nil {
		c.tier1.Del(key)
	}
	if c.tier2 == nil {
		return
	}
	if err := c.tier2.Del(ctx, key).Err(); err != nil {
		c.log.Warn("cache_tier2_delete_failed", "error", err, "key", key)
	}
}

// Exists reports presence without returning the value; used for the
// black-list check which only cares about membership.
func (c *TwoTier) Exists(ctx context.Context, key string) bool {
	_, ok := c.Get(ctx, key)
	return ok
}

// Close flushes tier-1 eviction and closes the tier-2 connection, per the
// shutdown contract (drains pools, flushes tier-1 eviction before exit).
func (c *TwoTier) Close() error {
	if c.tier1 != nil {
		c.tier1.Close()
	}
	if c.tier2 != nil {
		return c.tier2.Close()
	}
	return nil
}

// Key-space helpers. The core uses exactly three key spaces.
func TokenKey(token string) string     { return "token:" + token }
func BlacklistKey(token string) string { return "blacklist:" + token }
func AuthCodeKey(code string) string   { return "code:" + code }
