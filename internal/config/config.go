// Package config loads the gallery server configuration from an optional
// YAML file and environment variables. Environment variables win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/infinite-gallery/pkg/logging"
	"github.com/Sternrassler/infinite-gallery/pkg/pagination"
	"github.com/Sternrassler/infinite-gallery/pkg/render"
	"github.com/Sternrassler/infinite-gallery/pkg/unsplash"
	"gopkg.in/yaml.v3"
)

// Backend names for surfaces and guards.
const (
	BackendMemory = "memory"
	BackendLocal  = "local"
	BackendRedis  = "redis"
)

type Config struct {
	Port     string         `yaml:"port"`
	Log      LogConfig      `yaml:"log"`
	Unsplash UnsplashConfig `yaml:"unsplash"`
	Scroll   ScrollConfig   `yaml:"scroll"`
	Surface  BackendConfig  `yaml:"surface"`
	Guard    BackendConfig  `yaml:"guard"`
	Redis    RedisConfig    `yaml:"redis"`
	Session  SessionConfig  `yaml:"session"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type UnsplashConfig struct {
	BaseURL   string        `yaml:"base_url"`
	AccessKey string        `yaml:"access_key"`
	Count     int           `yaml:"count"`
	Query     string        `yaml:"query"`
	Timeout   time.Duration `yaml:"timeout"`
}

type ScrollConfig struct {
	ThresholdPx float64       `yaml:"threshold_px"`
	Debounce    time.Duration `yaml:"debounce"`
}

type BackendConfig struct {
	Backend string `yaml:"backend"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port: "8080",
		Log: LogConfig{
			Level: string(logging.LevelInfo),
		},
		Unsplash: UnsplashConfig{
			BaseURL: unsplash.DefaultBaseURL,
			Count:   unsplash.DefaultCount,
			Query:   unsplash.DefaultQuery,
			Timeout: 30 * time.Second,
		},
		Scroll: ScrollConfig{
			ThresholdPx: pagination.DefaultThresholdPx,
			Debounce:    pagination.DefaultDebounce,
		},
		Surface: BackendConfig{Backend: BackendMemory},
		Guard:   BackendConfig{Backend: BackendLocal},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Session: SessionConfig{
			TTL:           render.DefaultSessionTTL,
			SweepInterval: time.Minute,
		},
	}
}

// Load builds the configuration from GALLERY_CONFIG (if set) and the
// environment, then validates it.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("GALLERY_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	cfg.Surface.Backend = strings.ToLower(strings.TrimSpace(cfg.Surface.Backend))
	cfg.Guard.Backend = strings.ToLower(strings.TrimSpace(cfg.Guard.Backend))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	var errs []error
	parse := func(key string, set func(string) error) {
		if v, ok := lookup(key); ok && v != "" {
			if err := set(v); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
	}
	duration := func(dst *time.Duration) func(string) error {
		return func(v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return err
			}
			*dst = d
			return nil
		}
	}

	str("PORT", &c.Port)
	str("LOG_LEVEL", &c.Log.Level)
	parse("LOG_PRETTY", func(v string) error {
		b, err := strconv.ParseBool(v)
		c.Log.Pretty = b
		return err
	})

	str("UNSPLASH_ACCESS_KEY", &c.Unsplash.AccessKey)
	str("UNSPLASH_BASE_URL", &c.Unsplash.BaseURL)
	str("GALLERY_QUERY", &c.Unsplash.Query)
	parse("GALLERY_COUNT", func(v string) error {
		n, err := strconv.Atoi(v)
		c.Unsplash.Count = n
		return err
	})
	parse("UNSPLASH_TIMEOUT", duration(&c.Unsplash.Timeout))

	parse("SCROLL_THRESHOLD", func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		c.Scroll.ThresholdPx = f
		return err
	})
	parse("SCROLL_DEBOUNCE", duration(&c.Scroll.Debounce))

	str("SURFACE_BACKEND", &c.Surface.Backend)
	str("GUARD_BACKEND", &c.Guard.Backend)

	str("REDIS_URL", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	parse("REDIS_DB", func(v string) error {
		n, err := strconv.Atoi(v)
		c.Redis.DB = n
		return err
	})

	parse("SESSION_TTL", duration(&c.Session.TTL))
	parse("SESSION_SWEEP_INTERVAL", duration(&c.Session.SweepInterval))

	return errors.Join(errs...)
}

// Validate checks backend names and required values. A missing access key
// is not an error; the client logs it.
func (c Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}

	switch strings.ToLower(c.Surface.Backend) {
	case BackendMemory, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("surface backend must be %q or %q (got %q)", BackendMemory, BackendRedis, c.Surface.Backend))
	}

	switch strings.ToLower(c.Guard.Backend) {
	case BackendLocal, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("guard backend must be %q or %q (got %q)", BackendLocal, BackendRedis, c.Guard.Backend))
	}

	if c.UsesRedis() && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis address is required for redis backends"))
	}

	if c.Scroll.ThresholdPx < 0 {
		errs = append(errs, fmt.Errorf("scroll threshold must be >= 0 (got %v)", c.Scroll.ThresholdPx))
	}
	if c.Scroll.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("scroll debounce must be > 0 (got %v)", c.Scroll.Debounce))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, fmt.Errorf("session ttl must be > 0 (got %v)", c.Session.TTL))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// UsesRedis reports whether any backend needs Redis.
func (c Config) UsesRedis() bool {
	return strings.EqualFold(c.Surface.Backend, BackendRedis) || strings.EqualFold(c.Guard.Backend, BackendRedis)
}

// UnsplashClientConfig converts to the image API client configuration.
func (c Config) UnsplashClientConfig() unsplash.Config {
	cfg := unsplash.DefaultConfig(c.Unsplash.AccessKey)
	cfg.BaseURL = c.Unsplash.BaseURL
	cfg.Count = c.Unsplash.Count
	cfg.Query = c.Unsplash.Query
	cfg.Timeout = c.Unsplash.Timeout
	return cfg
}

// ControllerConfig converts to the pagination controller configuration,
// without a guard; guards are per session.
func (c Config) ControllerConfig() pagination.ControllerConfig {
	return pagination.ControllerConfig{
		ThresholdPx: c.Scroll.ThresholdPx,
		Debounce:    c.Scroll.Debounce,
	}
}

// LoggingConfig converts to the logging configuration.
func (c Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.Log.Level); err == nil {
		cfg.Level = level
	}
	cfg.Pretty = c.Log.Pretty
	return cfg
}
