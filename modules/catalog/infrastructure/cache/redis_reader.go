// Package cache provides a Redis cache-aside layer in front of a catalog reader.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/rai/storefront-payments/modules/catalog/domain"
)

const keyPrefix = "catalog:product:"

func cacheKey(id string) string { return keyPrefix + id }

// RedisReader serves products from Redis and falls back to the wrapped
// reader on a miss. Concurrent misses for the same id set share one
// backend read. Redis errors degrade to backend reads, never to failures.
type RedisReader struct {
	next   domain.Reader
	client redis.Cmdable
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

func NewRedisReader(next domain.Reader, client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *RedisReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisReader{next: next, client: client, ttl: ttl, logger: logger}
}

func (c *RedisReader) FindByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	ids = uniqueSorted(ids)
	found := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cacheKey(id)
	}

	var missing []string
	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("catalog cache read failed", slog.Any("error", err))
		missing = ids
	} else {
		for i, v := range vals {
			raw, ok := v.(string)
			if !ok {
				missing = append(missing, ids[i])
				continue
			}
			var p domain.Product
			if err := json.Unmarshal([]byte(raw), &p); err != nil {
				missing = append(missing, ids[i])
				continue
			}
			found[ids[i]] = p
		}
	}

	if len(missing) == 0 {
		return found, nil
	}

	v, err, _ := c.group.Do(strings.Join(missing, ","), func() (interface{}, error) {
		fresh, err := c.next.FindByIDs(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, id := range missing {
			p, ok := fresh[id]
			if !ok {
				continue
			}
			payload, err := json.Marshal(p)
			if err != nil {
				continue
			}
			if err := c.client.Set(ctx, cacheKey(id), string(payload), c.ttl).Err(); err != nil {
				c.logger.Warn("catalog cache write failed", slog.String("product_id", id), slog.Any("error", err))
			}
		}
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}

	for id, p := range v.(map[string]domain.Product) {
		found[id] = p
	}
	return found, nil
}

func uniqueSorted(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

// Compile-time interface check.
var _ domain.Reader = (*RedisReader)(nil)
