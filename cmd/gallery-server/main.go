package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/infinite-gallery/internal/config"
	"github.com/Sternrassler/infinite-gallery/internal/session"
	"github.com/Sternrassler/infinite-gallery/pkg/logging"
	"github.com/Sternrassler/infinite-gallery/pkg/ratelimit"
	"github.com/Sternrassler/infinite-gallery/pkg/render"
	"github.com/Sternrassler/infinite-gallery/pkg/unsplash"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup(logging.DefaultConfig())
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	logging.Setup(cfg.LoggingConfig())
	logger := logging.NewLogger(logging.ComponentServer)

	var redisClient *redis.Client
	if cfg.UsesRedis() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
		}
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	}

	client, err := unsplash.New(cfg.UnsplashClientConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create image API client")
	}

	sessions, err := session.NewManager(sessionOptions(cfg, client, redisClient))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create session manager")
	}
	defer sessions.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newServer(sessions, redisClient).routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweepSessions(ctx, sessions, cfg.Session.SweepInterval, cfg.Session.TTL)

	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("query", cfg.Unsplash.Query).
			Int("count", cfg.Unsplash.Count).
			Str("surface", cfg.Surface.Backend).
			Str("guard", cfg.Guard.Backend).
			Msg("Starting gallery server")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// sessionOptions selects surface and guard backends.
func sessionOptions(cfg config.Config, source *unsplash.Client, redisClient *redis.Client) session.Options {
	opts := session.Options{
		Source:     source,
		Controller: cfg.ControllerConfig(),
	}

	// A Redis surface makes a session servable by every replica, so its id
	// is registered there too.
	if cfg.Surface.Backend == config.BackendRedis {
		ttl := cfg.Session.TTL
		opts.NewSurface = func(id string) render.ReadWriter {
			return render.NewRedisSurface(redisClient, id, ttl)
		}
		opts.Registry = session.NewRedisRegistry(redisClient, ttl)
	}

	if cfg.Guard.Backend == config.BackendRedis {
		guardLogger := logging.NewLogger(logging.ComponentGuard)
		opts.NewGuard = func(id string) ratelimit.Guard {
			return ratelimit.NewRedisGuard(redisClient, id, ratelimit.DefaultLockTTL, logging.WithSession(guardLogger, id))
		}
	}

	return opts
}

func sweepSessions(ctx context.Context, sessions *session.Manager, interval, maxIdle time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Sweep(maxIdle)
		}
	}
}
