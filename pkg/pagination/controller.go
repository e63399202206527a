package pagination

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/infinite-gallery/pkg/logging"
	"github.com/Sternrassler/infinite-gallery/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for trigger decisions.
var controllerTriggersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gallery_controller_triggers_total",
	Help: "Pipeline trigger decisions by reason and outcome",
}, []string{"reason", "outcome"})

const (
	// DefaultThresholdPx is how close to the bottom a scroll must be.
	DefaultThresholdPx = 1000

	// DefaultDebounce is the scroll idle window.
	DefaultDebounce = 200 * time.Millisecond
)

// Runner runs one fetch-and-render cycle. *Pipeline implements it.
type Runner interface {
	Run(ctx context.Context) Result
}

// ScrollPosition is the viewport state reported with a scroll event.
type ScrollPosition struct {
	ViewportHeight float64 `json:"viewportHeight"`
	ScrollOffset   float64 `json:"scrollOffset"`
	DocumentHeight float64 `json:"documentHeight"`
}

// NearBottom reports whether the viewport bottom is within thresholdPx of
// the document bottom.
func (p ScrollPosition) NearBottom(thresholdPx float64) bool {
	return p.ViewportHeight+p.ScrollOffset >= p.DocumentHeight-thresholdPx
}

// ControllerConfig holds the controller configuration.
type ControllerConfig struct {
	// ThresholdPx is the distance from the bottom that triggers a load.
	ThresholdPx float64

	// Debounce is the scroll idle window.
	Debounce time.Duration

	// Guard holds the in-flight flag (default: a new LocalGuard).
	Guard ratelimit.Guard
}

// DefaultControllerConfig returns the standard thresholds with a local guard.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		ThresholdPx: DefaultThresholdPx,
		Debounce:    DefaultDebounce,
		Guard:       ratelimit.NewLocalGuard(),
	}
}

type scrollEvent struct {
	ctx context.Context
	pos ScrollPosition
}

// Controller decides when the pipeline runs for one page-view session.
type Controller struct {
	runner    Runner
	guard     ratelimit.Guard
	threshold float64
	debouncer *ratelimit.Debouncer[scrollEvent]
	logger    zerolog.Logger
	runs      atomic.Int64

	mu     sync.Mutex
	closed bool
	active sync.WaitGroup
}

// NewController creates a controller for runner.
func NewController(runner Runner, cfg ControllerConfig, logger zerolog.Logger) *Controller {
	if cfg.Guard == nil {
		cfg.Guard = ratelimit.NewLocalGuard()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	c := &Controller{
		runner:    runner,
		guard:     cfg.Guard,
		threshold: cfg.ThresholdPx,
		logger:    logger.With().Str("component", logging.ComponentPagination).Logger(),
	}
	c.debouncer = ratelimit.NewDebouncer(cfg.Debounce, c.handleScroll)

	return c
}

// OnReady runs the pipeline for the first page in the caller's goroutine.
// It reports whether a run happened.
func (c *Controller) OnReady(ctx context.Context) bool {
	return c.trigger(ctx, "ready")
}

// OnScroll records a scroll notification. Only the last notification of a
// burst is evaluated, once the idle window has passed. ctx must outlive the
// debounce window; it becomes the context of the triggered run.
func (c *Controller) OnScroll(ctx context.Context, pos ScrollPosition) {
	c.debouncer.Call(scrollEvent{ctx: ctx, pos: pos})
}

func (c *Controller) handleScroll(ev scrollEvent) {
	if !ev.pos.NearBottom(c.threshold) {
		controllerTriggersTotal.WithLabelValues("scroll", "not_near_bottom").Inc()
		return
	}

	if c.trigger(ev.ctx, "scroll") {
		return
	}
	c.logger.Debug().
		Float64("viewport", ev.pos.ViewportHeight).
		Float64("offset", ev.pos.ScrollOffset).
		Float64("document", ev.pos.DocumentHeight).
		Msg("Scroll near bottom dropped, load in flight")
}

// trigger runs the pipeline unless a run is in flight. The guard is released
// on every exit path, including a panic in the runner.
func (c *Controller) trigger(ctx context.Context, reason string) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		controllerTriggersTotal.WithLabelValues(reason, "closed").Inc()
		return false
	}
	c.active.Add(1)
	c.mu.Unlock()
	defer c.active.Done()

	acquired, err := c.guard.TryAcquire(ctx)
	if err != nil {
		controllerTriggersTotal.WithLabelValues(reason, "guard_error").Inc()
		c.logger.Warn().Err(err).Str("reason", reason).Msg("In-flight guard unavailable, skipping load")
		return false
	}
	if !acquired {
		controllerTriggersTotal.WithLabelValues(reason, "in_flight").Inc()
		return false
	}
	defer func() {
		if err := c.guard.Release(context.WithoutCancel(ctx)); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to release in-flight guard")
		}
	}()

	controllerTriggersTotal.WithLabelValues(reason, "started").Inc()
	c.runs.Add(1)

	if reason == "scroll" {
		c.logger.Info().Msg("Loading more photos...")
	}

	c.runner.Run(ctx)
	return true
}

// InFlight reports whether a pipeline run is in progress. Guard errors read
// as not in flight.
func (c *Controller) InFlight(ctx context.Context) bool {
	held, err := c.guard.Held(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to read in-flight guard")
		return false
	}
	return held
}

// Runs returns the number of pipeline runs started.
func (c *Controller) Runs() int64 {
	return c.runs.Load()
}

// Close drops any pending scroll evaluation and rejects further runs. A run
// already in progress continues; Wait blocks until it has finished.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.debouncer.Stop()
}

// Wait blocks until no run is in progress or ctx is done. Call it after
// Close, otherwise a new run can start right after Wait returns.
func (c *Controller) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.active.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
