package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Sternrassler/infinite-gallery/pkg/render"
	"github.com/redis/go-redis/v9"
)

// RedisKeySessionFormat is the registry entry of a session.
const RedisKeySessionFormat = "gallery:session:%s"

// Registry records which sessions exist, so that every replica can serve a
// session another replica created.
type Registry interface {
	// Register records a new session.
	Register(ctx context.Context, id string, created time.Time) error

	// Lookup refreshes the entry's expiry and returns its creation time.
	Lookup(ctx context.Context, id string) (created time.Time, ok bool, err error)

	// Exists reports whether the entry is present without refreshing it.
	Exists(ctx context.Context, id string) (bool, error)

	// Remove deletes the entry.
	Remove(ctx context.Context, id string) error
}

// RedisRegistry is a Registry whose entries expire with the session TTL.
type RedisRegistry struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisRegistry creates a registry on redisClient.
func NewRedisRegistry(redisClient *redis.Client, ttl time.Duration) *RedisRegistry {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = render.DefaultSessionTTL
	}
	return &RedisRegistry{redis: redisClient, ttl: ttl}
}

func (r *RedisRegistry) key(id string) string {
	return fmt.Sprintf(RedisKeySessionFormat, id)
}

// Register implements Registry.
func (r *RedisRegistry) Register(ctx context.Context, id string, created time.Time) error {
	if err := r.redis.Set(ctx, r.key(id), created.UnixNano(), r.ttl).Err(); err != nil {
		return fmt.Errorf("register session: %w", err)
	}
	return nil
}

// Lookup implements Registry. GET and EXPIRE run in one transaction.
func (r *RedisRegistry) Lookup(ctx context.Context, id string) (time.Time, bool, error) {
	var get *redis.StringCmd
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.Get(ctx, r.key(id))
		pipe.Expire(ctx, r.key(id), r.ttl)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return time.Time{}, false, fmt.Errorf("lookup session: %w", err)
	}

	value, err := get.Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("lookup session: %w", err)
	}

	nanos, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("lookup session: invalid entry %q", value)
	}
	return time.Unix(0, nanos), true, nil
}

// Exists implements Registry.
func (r *RedisRegistry) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.redis.Exists(ctx, r.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	return n > 0, nil
}

// Remove implements Registry.
func (r *RedisRegistry) Remove(ctx context.Context, id string) error {
	if err := r.redis.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
