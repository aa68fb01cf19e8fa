// Package cache provides a Redis-backed JSON cache used for chat snapshots.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/gomodule/redigo/redis"
)

// DefaultPrefix namespaces every key.
const DefaultPrefix = "sitelog:"

// Cache stores JSON values in Redis with a fixed TTL. A nil *Cache is a
// valid disabled cache.
type Cache struct {
	pool   *redis.Pool
	ttl    time.Duration
	prefix string
}

// Option customizes a Cache.
type Option func(*Cache)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

// WithDial replaces the connection dialer.
func WithDial(dial func(ctx context.Context) (redis.Conn, error)) Option {
	return func(c *Cache) { c.pool.DialContext = dial }
}

// New creates a cache for the Redis server at url. It returns nil when url
// is empty.
func New(url string, ttl time.Duration, opts ...Option) *Cache {
	if url == "" {
		return nil
	}
	c := &Cache{
		pool: &redis.Pool{
			MaxIdle:     4,
			MaxActive:   16,
			IdleTimeout: 4 * time.Minute,
			DialContext: func(ctx context.Context) (redis.Conn, error) {
				return redis.DialURLContext(ctx, url,
					redis.DialConnectTimeout(2*time.Second),
					redis.DialReadTimeout(2*time.Second),
					redis.DialWriteTimeout(2*time.Second))
			},
		},
		ttl:    ttl,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether the cache is backed by a server.
func (c *Cache) Enabled() bool {
	return c != nil
}

// Ping checks the server connection.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	defer conn.Close()
	_, err = conn.Do("PING")
	return err
}

// GetJSON decodes the value at key into v and reports whether it existed.
func (c *Cache) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	if c == nil {
		return false, nil
	}
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return false, fmt.Errorf("redis connect: %w", err)
	}
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("GET", c.prefix+key))
	if errors.Is(err, redis.ErrNil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stores v at key with the cache TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	defer conn.Close()

	args := []interface{}{c.prefix + key, data}
	if c.ttl > 0 {
		args = append(args, "PX", c.ttl.Milliseconds())
	}
	if _, err := conn.Do("SET", args...); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	defer conn.Close()
	if _, err := conn.Do("DEL", c.prefix+key); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Close releases pooled connections.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.pool.Close()
}
