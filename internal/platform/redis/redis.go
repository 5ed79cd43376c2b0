package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/talentcurate/pipeline/internal/config"
	"github.com/redis/go-redis/v9"
)

// Client represents a Redis client.
type Client struct {
	*redis.Client
}

// New creates a new Redis client.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("unable to connect to Redis: %w", err)
	}

	return &Client{Client: rdb}, nil
}

// Health checks the Redis health.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// releaseScript only deletes the lease key if it is still held by the
// caller's token, so a holder never releases a lease it has already lost
// to TTL expiry and reclamation by another build.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// refreshScript extends a lease's TTL only while the caller still holds it.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end
`)

// AcquireLease attempts to take an exclusive, TTL-bounded lease on key
// using holder as the ownership token. It returns true if the lease was
// acquired (key was absent or already expired).
func (c *Client) AcquireLease(ctx context.Context, key, holder string, ttl time.Duration) (bool, error) {
	return c.SetNX(ctx, key, holder, ttl).Result()
}

// RefreshLease extends an already-held lease's TTL. It returns false if the
// caller no longer holds the lease (abandoned and reclaimed by another
// holder, or it already expired).
func (c *Client) RefreshLease(ctx context.Context, key, holder string, ttl time.Duration) (bool, error) {
	res, err := refreshScript.Run(ctx, c.Client, []string{key}, holder, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// ReleaseLease gives up a held lease early, allowing the next waiter to
// acquire it immediately instead of waiting out the full TTL.
func (c *Client) ReleaseLease(ctx context.Context, key, holder string) error {
	_, err := releaseScript.Run(ctx, c.Client, []string{key}, holder).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	return nil
}

// LeaseHolder reports the current holder of key, if any.
func (c *Client) LeaseHolder(ctx context.Context, key string) (string, bool, error) {
	holder, err := c.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return holder, true, nil
}
