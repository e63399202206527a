// Package logging configures the zerolog diagnostic channel shared by the
// gallery components.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is a LOG_LEVEL value.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Component names used in the "component" field.
const (
	ComponentClient     = "unsplash-client"
	ComponentPipeline   = "pipeline"
	ComponentPagination = "pagination"
	ComponentGuard      = "guard"
	ComponentSession    = "session"
	ComponentServer     = "server"
)

// ServiceName is the "service" field of every log line.
const ServiceName = "infinite-gallery"

// Config holds logger configuration.
type Config struct {
	Level LogLevel

	// Pretty switches from JSON lines to console output for local runs.
	Pretty bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns JSON at info level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// ParseLevel validates a LOG_LEVEL value. Case and surrounding space are
// ignored and "warning" is accepted for warn.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return "", fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
	}
}

// zerologLevel maps a level to zerolog. Invalid values fall back to info;
// configuration is validated before it gets here.
func (l LogLevel) zerologLevel() zerolog.Level {
	parsed, err := ParseLevel(string(l))
	if err != nil {
		return zerolog.InfoLevel
	}
	switch parsed {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Setup configures the global zerolog logger and returns it. Durations are
// logged in milliseconds, the unit run and request timings are read in.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(cfg.Level.zerologLevel())
	zerolog.DurationFieldUnit = time.Millisecond

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	logger := zerolog.New(out).With().
		Timestamp().
		Str("service", ServiceName).
		Logger()
	log.Logger = logger

	return logger
}

// NewLogger creates a child of the global logger tagged with a component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// WithSession tags a logger with the page-view session it serves.
func WithSession(logger zerolog.Logger, sessionID string) zerolog.Logger {
	return logger.With().Str("session_id", sessionID).Logger()
}

// WithRequestID tags a logger with the HTTP request id.
func WithRequestID(logger zerolog.Logger, requestID string) zerolog.Logger {
	if requestID == "" {
		return logger
	}
	return logger.With().Str("request_id", requestID).Logger()
}

// What is logged at which level:
//
// Debug
//   - "Scroll near bottom dropped, load in flight" (pagination)
//   - "Requesting random photos", "Random photos received" (unsplash-client)
//   - "In-flight lock acquired" (guard), "Session closed" (session)
//   - "HTTP request" (server, one line per request)
//
// Info
//   - "Photos rendered" with photos and duration (pipeline)
//   - "Loading more photos..." on a scroll-triggered load (pagination)
//   - "Session created", "Session picked up from registry", "Idle sessions swept"
//   - "Starting gallery server", "Shutting down"
//
// Warn
//   - surface writes that failed ("Failed to append photo", "Failed to toggle loader")
//   - guard backend errors, which skip the load ("In-flight guard unavailable")
//   - registry errors while a local session keeps serving
//
// Error
//   - "Access key is not defined" (config_missing, logged once at client creation)
//   - "Error fetching photos" with error_class and, for HTTP failures, status
//
// Fields: service, component, session_id, request_id, error_class, status,
// photos, duration (ms).
