package render

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keys of a session's surface.
const (
	RedisKeyElementsFormat = "gallery:session:%s:elements"
	RedisKeyLoaderFormat   = "gallery:session:%s:loader"
)

// DefaultSessionTTL is how long surface keys outlive the last write.
const DefaultSessionTTL = 30 * time.Minute

// ErrInvalidElement indicates a stored element could not be decoded.
var ErrInvalidElement = errors.New("invalid surface element")

// RedisSurface is a ReadWriter backed by Redis.
type RedisSurface struct {
	redis       *redis.Client
	elementsKey string
	loaderKey   string
	ttl         time.Duration
}

// NewRedisSurface creates the surface of one session.
func NewRedisSurface(redisClient *redis.Client, sessionID string, ttl time.Duration) *RedisSurface {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSurface{
		redis:       redisClient,
		elementsKey: fmt.Sprintf(RedisKeyElementsFormat, sessionID),
		loaderKey:   fmt.Sprintf(RedisKeyLoaderFormat, sessionID),
		ttl:         ttl,
	}
}

// AppendElement implements Surface. RPUSH keeps appends ordered and atomic.
func (s *RedisSurface) AppendElement(ctx context.Context, e Element) error {
	data, err := json.Marshal(e)
	if err != nil {
		SurfaceErrors.WithLabelValues("append").Inc()
		return fmt.Errorf("marshal element: %w", err)
	}

	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, s.elementsKey, data)
	pipe.Expire(ctx, s.elementsKey, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		SurfaceErrors.WithLabelValues("append").Inc()
		return fmt.Errorf("redis rpush: %w", err)
	}

	ElementsAppended.WithLabelValues(string(e.Kind)).Inc()
	return nil
}

// SetLoaderVisible implements Surface.
func (s *RedisSurface) SetLoaderVisible(ctx context.Context, visible bool) error {
	value := "0"
	if visible {
		value = "1"
	}
	if err := s.redis.Set(ctx, s.loaderKey, value, s.ttl).Err(); err != nil {
		SurfaceErrors.WithLabelValues("loader").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Elements implements Reader.
func (s *RedisSurface) Elements(ctx context.Context, from int) ([]Element, error) {
	if from < 0 {
		from = 0
	}

	raw, err := s.redis.LRange(ctx, s.elementsKey, int64(from), -1).Result()
	if err != nil {
		SurfaceErrors.WithLabelValues("read").Inc()
		return nil, fmt.Errorf("redis lrange: %w", err)
	}

	elements := make([]Element, 0, len(raw))
	for _, item := range raw {
		var e Element
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			SurfaceErrors.WithLabelValues("read").Inc()
			return nil, fmt.Errorf("%w: %v", ErrInvalidElement, err)
		}
		elements = append(elements, e)
	}
	return elements, nil
}

// Len implements Reader.
func (s *RedisSurface) Len(ctx context.Context) (int, error) {
	n, err := s.redis.LLen(ctx, s.elementsKey).Result()
	if err != nil {
		SurfaceErrors.WithLabelValues("read").Inc()
		return 0, fmt.Errorf("redis llen: %w", err)
	}
	return int(n), nil
}

// LoaderVisible implements Reader. A missing key means hidden.
func (s *RedisSurface) LoaderVisible(ctx context.Context) (bool, error) {
	value, err := s.redis.Get(ctx, s.loaderKey).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		SurfaceErrors.WithLabelValues("read").Inc()
		return false, fmt.Errorf("redis get: %w", err)
	}
	return value == "1", nil
}

// Delete removes the session's keys.
func (s *RedisSurface) Delete(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.elementsKey, s.loaderKey).Err(); err != nil {
		SurfaceErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
