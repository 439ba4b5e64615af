package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cached is a Redis read-through cache in front of another Provider.
// Redis failures degrade to calling the wrapped provider directly.
type Cached struct {
	next Provider
	rdb  redis.Cmdable
	ttl  time.Duration
	log  *zap.Logger
}

func NewCached(next Provider, rdb redis.Cmdable, ttl time.Duration, log *zap.Logger) *Cached {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cached{next: next, rdb: rdb, ttl: ttl, log: log.With(zap.String("component", "group_cache"))}
}

func cacheKey(groupID, userID string) string {
	return fmt.Sprintf("docvault:group:%s:member:%s", groupID, userID)
}

func (c *Cached) IsMember(ctx context.Context, userID, groupID string) (bool, error) {
	key := cacheKey(groupID, userID)

	val, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		return val == "1", nil
	case !errors.Is(err, redis.Nil):
		c.log.Warn("group_cache_read_failed", zap.String("key", key), zap.Error(err))
	}

	ok, err := c.next.IsMember(ctx, userID, groupID)
	if err != nil {
		return false, err
	}

	v := "0"
	if ok {
		v = "1"
	}
	if err := c.rdb.Set(ctx, key, v, c.ttl).Err(); err != nil {
		c.log.Warn("group_cache_write_failed", zap.String("key", key), zap.Error(err))
	}
	return ok, nil
}
