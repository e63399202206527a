package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisKeyInFlightFormat is the key holding a session's in-flight lock.
const RedisKeyInFlightFormat = "gallery:session:%s:inflight"

// DefaultLockTTL bounds how long a crashed holder can keep a session busy.
const DefaultLockTTL = 2 * time.Minute

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard is a Guard shared by every replica serving a session.
type RedisGuard struct {
	redis  *redis.Client
	key    string
	ttl    time.Duration
	logger zerolog.Logger

	mu    sync.Mutex
	token string
}

// NewRedisGuard creates a guard for the given session.
func NewRedisGuard(redisClient *redis.Client, sessionID string, ttl time.Duration, logger zerolog.Logger) *RedisGuard {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisGuard{
		redis:  redisClient,
		key:    fmt.Sprintf(RedisKeyInFlightFormat, sessionID),
		ttl:    ttl,
		logger: logger,
	}
}

// Key returns the Redis key of the lock.
func (g *RedisGuard) Key() string {
	return g.key
}

// TryAcquire implements Guard with SET NX PX.
func (g *RedisGuard) TryAcquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()

	ok, err := g.redis.SetNX(ctx, g.key, token, g.ttl).Result()
	if err != nil {
		guardErrorsTotal.WithLabelValues("acquire").Inc()
		return false, fmt.Errorf("acquire in-flight lock: %w", err)
	}
	if !ok {
		guardRejectionsTotal.WithLabelValues("redis").Inc()
		return false, nil
	}

	g.mu.Lock()
	g.token = token
	g.mu.Unlock()

	g.logger.Debug().Str("key", g.key).Dur("ttl", g.ttl).Msg("In-flight lock acquired")
	return true, nil
}

// Release implements Guard. Releasing a lock this guard does not hold is a no-op.
func (g *RedisGuard) Release(ctx context.Context) error {
	g.mu.Lock()
	token := g.token
	g.token = ""
	g.mu.Unlock()

	if token == "" {
		return nil
	}

	deleted, err := releaseScript.Run(ctx, g.redis, []string{g.key}, token).Int()
	if err != nil {
		guardErrorsTotal.WithLabelValues("release").Inc()
		return fmt.Errorf("release in-flight lock: %w", err)
	}
	if deleted == 0 {
		g.logger.Warn().Str("key", g.key).Msg("In-flight lock expired before release")
	}
	return nil
}

// Held implements Guard.
func (g *RedisGuard) Held(ctx context.Context) (bool, error) {
	n, err := g.redis.Exists(ctx, g.key).Result()
	if err != nil {
		guardErrorsTotal.WithLabelValues("held").Inc()
		return false, fmt.Errorf("check in-flight lock: %w", err)
	}
	return n > 0, nil
}
