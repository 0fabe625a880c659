// Package statecache optionally persists the single resting buy order id
// across process restarts using Redis, so a crash-restart can re-adopt a
// still-live order instead of blindly cancelling it. It is a durability
// convenience only: the position ledger itself is always rebuilt from
// exchange truth (see Non-goals), never from this cache.
package statecache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 10 * time.Minute

// Cache wraps a redis client scoped to a single key namespace.
type Cache struct {
	rdb    *redis.Client
	prefix string
}

// New creates a Cache. addr is a "host:port" Redis address; prefix
// namespaces keys (e.g. by asset or deployment).
func New(addr, password string, db int, prefix string) *Cache {
	return &Cache{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		prefix: prefix,
	}
}

// SaveRestingBuy stores the resting buy's order id, price, and size,
// keyed by asset id, with a bounded TTL so a stale entry from a since-
// rotated asset never resurrects.
func (c *Cache) SaveRestingBuy(ctx context.Context, assetID, orderID string, priceTicks, sizeUnits int64) error {
	key := c.key("resting_buy", assetID)
	val := fmt.Sprintf("%s|%d|%d", orderID, priceTicks, sizeUnits)
	if err := c.rdb.Set(ctx, key, val, defaultTTL).Err(); err != nil {
		return fmt.Errorf("statecache: save resting buy: %w", err)
	}
	return nil
}

// ClearRestingBuy removes the cached resting buy for assetID. The driver
// calls it when the buy is cancelled (including on rotation) and when the
// placement half of a cancel-and-replace fails; a successful replace
// overwrites the entry through SaveRestingBuy instead.
func (c *Cache) ClearRestingBuy(ctx context.Context, assetID string) error {
	if err := c.rdb.Del(ctx, c.key("resting_buy", assetID)).Err(); err != nil {
		return fmt.Errorf("statecache: clear resting buy: %w", err)
	}
	return nil
}

// LoadRestingBuy returns the cached order id, price ticks, and size units
// for assetID, or ok=false if nothing is cached.
func (c *Cache) LoadRestingBuy(ctx context.Context, assetID string) (orderID string, priceTicks, sizeUnits int64, ok bool, err error) {
	key := c.key("resting_buy", assetID)
	val, redisErr := c.rdb.Get(ctx, key).Result()
	if redisErr == redis.Nil {
		return "", 0, 0, false, nil
	}
	if redisErr != nil {
		return "", 0, 0, false, fmt.Errorf("statecache: load resting buy: %w", redisErr)
	}
	orderID, priceTicks, sizeUnits, err = decodeRestingBuy(val)
	if err != nil {
		return "", 0, 0, false, err
	}
	return orderID, priceTicks, sizeUnits, true, nil
}

// decodeRestingBuy parses the "orderID|priceTicks|sizeUnits" wire format
// SaveRestingBuy writes. fmt.Sscanf can't be used here: its %s verb is
// greedy and won't stop at the '|' delimiter.
func decodeRestingBuy(val string) (orderID string, priceTicks, sizeUnits int64, err error) {
	parts := strings.SplitN(val, "|", 3)
	if len(parts) != 3 {
		return "", 0, 0, fmt.Errorf("statecache: decode cached resting buy: malformed value %q", val)
	}
	priceTicks, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("statecache: decode price ticks: %w", err)
	}
	sizeUnits, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("statecache: decode size units: %w", err)
	}
	return parts[0], priceTicks, sizeUnits, nil
}

func (c *Cache) key(kind, id string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, kind, id)
}

// Close closes the underlying Redis client.
func (c *Cache) Close() error {
	return c.rdb.Close()
}
