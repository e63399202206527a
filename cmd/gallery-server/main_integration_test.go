//go:build integration

package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Sternrassler/infinite-gallery/internal/config"
	"github.com/Sternrassler/infinite-gallery/internal/testutil"
	"github.com/Sternrassler/infinite-gallery/pkg/pagination"
	"github.com/Sternrassler/infinite-gallery/pkg/ratelimit"
	"github.com/Sternrassler/infinite-gallery/pkg/render"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

func redisConfig() config.Config {
	cfg := config.Default()
	cfg.Surface.Backend = config.BackendRedis
	cfg.Guard.Backend = config.BackendRedis
	return cfg
}

// TestFullScrollFlow covers initial load, a scroll-triggered load and
// deletion against a real Redis.
func TestFullScrollFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockUnsplash()
	defer mock.Close()
	ts := newTestServer(t, mock, redisConfig(), redisClient)

	id := createSession(t, ts)
	waitForElements(t, ts, id, 2)

	ctx := context.Background()
	n, err := redisClient.LLen(ctx, fmt.Sprintf(render.RedisKeyElementsFormat, id)).Result()
	if err != nil {
		t.Fatalf("LLEN: %v", err)
	}
	if n != 2 {
		t.Errorf("LLEN = %d, want 2", n)
	}

	ttl, err := redisClient.TTL(ctx, fmt.Sprintf(render.RedisKeyElementsFormat, id)).Result()
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= 0 {
		t.Errorf("TTL = %v, want a positive expiry", ttl)
	}

	near := scrollBody(t, pagination.ScrollPosition{ViewportHeight: 900, ScrollOffset: 1200, DocumentHeight: 3000})
	postScroll(t, ts, id, near)
	waitForElements(t, ts, id, 4)

	held, err := redisClient.Exists(ctx, fmt.Sprintf(ratelimit.RedisKeyInFlightFormat, id)).Result()
	if err != nil {
		t.Fatalf("EXISTS: %v", err)
	}
	if held != 0 {
		t.Error("in-flight key still present after the load finished")
	}
}

// TestSharedGuardAcrossReplicas checks that a guard held by one replica
// blocks scroll loads served by another.
func TestSharedGuardAcrossReplicas(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockUnsplash()
	defer mock.Close()
	ts := newTestServer(t, mock, redisConfig(), redisClient)

	id := createSession(t, ts)
	waitForElements(t, ts, id, 2)

	other := ratelimit.NewRedisGuard(redisClient, id, time.Minute, zerolog.Nop())
	ok, err := other.TryAcquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("TryAcquire() = %v, %v", ok, err)
	}

	near := scrollBody(t, pagination.ScrollPosition{ViewportHeight: 900, ScrollOffset: 1200, DocumentHeight: 3000})
	postScroll(t, ts, id, near)
	time.Sleep(200 * time.Millisecond)

	if got := mock.RequestCount(); got != 1 {
		t.Errorf("RequestCount() = %d while another replica holds the guard, want 1", got)
	}

	if err := other.Release(context.Background()); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	postScroll(t, ts, id, near)
	waitForElements(t, ts, id, 4)
}
