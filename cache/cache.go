package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache is a small JSON-codec key/value layer over Redis.
type Cache struct {
	rdb *redis.Client
	l   *zap.Logger
}

// New connects from a full redis:// / rediss:// URL when one is given,
// otherwise from host:port and password.
func New(redisURL, addr, password string) (*Cache, error) {
	var opts *redis.Options
	if redisURL != "" {
		var err error
		opts, err = redis.ParseURL(redisURL)
		if err != nil {
			return nil, errors.Wrap(err, "Failed parse redis url")
		}
	} else {
		opts = &redis.Options{Addr: addr, Password: password}
	}
	rdb := redis.NewClient(opts)
	c := &Cache{rdb: rdb, l: zap.L().Named("cache")}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "Failed ping redis")
	}
	return c, nil
}

// Get unmarshals the cached value into out. The second return is false on a
// miss.
func (c *Cache) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "Failed redis get")
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, errors.Wrap(err, "Failed unmarshal cached value")
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "Failed marshal value")
	}
	if err := c.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
		return errors.Wrap(err, "Failed redis set")
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return errors.Wrap(c.rdb.Del(ctx, key).Err(), "Failed redis del")
}

// ClearPattern drops every key matching the glob pattern.
func (c *Cache) ClearPattern(ctx context.Context, pattern string) error {
	keys, err := c.rdb.Keys(ctx, pattern).Result()
	if err != nil {
		return errors.Wrap(err, "Failed redis keys")
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, "Failed redis del")
	}
	c.l.Debug("Cleared cache keys.", zap.String("pattern", pattern), zap.Int("count", len(keys)))
	return nil
}

func (c *Cache) Close() error {
	return c.rdb.Close()
}
