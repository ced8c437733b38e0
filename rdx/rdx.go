package rdx

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when a key is absent; callers fall through to the
// database.
var ErrMiss = errors.New("cache miss")

// Cache is a thin JSON wrapper over Redis. A nil *Cache is a valid no-op
// cache, so handlers never need to branch on whether Redis is configured.
type Cache struct {
	conn *redis.Client
}

// Connect dials Redis. A failed ping returns a nil cache and the error so the
// caller can decide to run without caching.
func Connect(ctx context.Context, addr, password string) (*Cache, error) {
	conn := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := conn.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Cache{conn: conn}, nil
}

// GetJSON unmarshals the cached value into dest, ErrMiss when absent.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) error {
	if c == nil {
		return ErrMiss
	}
	raw, err := c.conn.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// SetJSON stores value under key with a TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.conn.Set(ctx, key, raw, ttl).Err()
}

// Del drops keys, used to invalidate stats after writes.
func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if c == nil {
		return nil
	}
	return c.conn.Del(ctx, keys...).Err()
}

// SetNX stores value only if the key is new; reports whether it was set.
// Used for checkout-session idempotency keys.
func (c *Cache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if c == nil {
		return true, nil
	}
	return c.conn.SetNX(ctx, key, value, ttl).Result()
}

// Close releases the connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.conn.Close()
}
