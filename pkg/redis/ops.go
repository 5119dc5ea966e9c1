package redis

import (
	"context"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments KEYS[1] and starts its ARGV[1] ms window on the
// first hit, in one round trip.
var fixedWindowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// toggleMemberScript flips ARGV[1] in the set KEYS[1]; returns 1 when present afterwards.
var toggleMemberScript = redis.NewScript(`
if redis.call("SISMEMBER", KEYS[1], ARGV[1]) == 1 then
	redis.call("SREM", KEYS[1], ARGV[1])
	return 0
end
redis.call("SADD", KEYS[1], ARGV[1])
return 1
`)

// releaseIfOwnerScript deletes KEYS[1] only while it still holds ARGV[1].
var releaseIfOwnerScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.cmd.Set(ctx, key, value, ttl).Err()
}

// Get returns redis.Nil for a missing key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	return c.cmd.Get(ctx, key).Result()
}

// SetNX reports whether the key was created.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	return c.cmd.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.cmd.Del(ctx, keys...).Err()
}

// FixedWindowAllow counts a hit against scope and reports whether the count
// is still within limit for the current window.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if err := c.ready(); err != nil {
		return false, 0, err
	}
	count, err := fixedWindowScript.Run(ctx, c.cmd, []string{c.RateLimitKey(scope)}, window.Milliseconds()).Int64()
	if err != nil {
		return false, 0, err
	}
	return count <= limit, count, nil
}

// ToggleMember flips member in the set at key and reports whether it is a
// member afterwards.
func (c *Client) ToggleMember(ctx context.Context, key, member string) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	present, err := toggleMemberScript.Run(ctx, c.cmd, []string{key}, member).Int64()
	return present == 1, err
}

func (c *Client) IsMember(ctx context.Context, key, member string) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	return c.cmd.SIsMember(ctx, key, member).Result()
}

// Members returns the set at key in lexical order; a missing key is empty.
func (c *Client) Members(ctx context.Context, key string) ([]string, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	members, err := c.cmd.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	slices.Sort(members)
	return members, nil
}

// ReleaseIfOwner deletes key while its value is still owner and reports
// whether it did.
func (c *Client) ReleaseIfOwner(ctx context.Context, key, owner string) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	deleted, err := releaseIfOwnerScript.Run(ctx, c.cmd, []string{key}, owner).Int64()
	return deleted == 1, err
}
