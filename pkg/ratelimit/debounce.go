// Package ratelimit holds the timing and admission primitives of the
// gallery: a generic debouncer and the in-flight guards that keep a session
// to one pipeline run at a time.
package ratelimit

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for debounced calls.
var (
	debounceCallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gallery_debounce_calls_total",
		Help: "Total number of calls made to debounced functions",
	})

	debounceExecutionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gallery_debounce_executions_total",
		Help: "Total number of debounced function executions",
	})
)

// Debouncer delays fn until wait has passed without another Call. Each Call
// cancels the pending execution and reschedules it with the latest argument,
// so one quiet period yields exactly one execution.
type Debouncer[T any] struct {
	wait time.Duration
	fn   func(T)

	mu      sync.Mutex
	timer   *time.Timer
	arg     T
	pending bool
	gen     uint64
}

// NewDebouncer creates a debouncer for fn with the given idle window.
func NewDebouncer[T any](wait time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{
		wait: wait,
		fn:   fn,
	}
}

// Call schedules fn(arg) after the idle window, replacing any pending call.
func (d *Debouncer[T]) Call(arg T) {
	debounceCallsTotal.Inc()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.arg = arg
	d.pending = true
	d.gen++
	gen := d.gen

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, func() { d.fire(gen) })
}

// fire runs fn unless a later Call, Stop or Flush superseded generation gen.
func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.pending {
		d.mu.Unlock()
		return
	}
	arg := d.take()
	d.mu.Unlock()

	debounceExecutionsTotal.Inc()
	d.fn(arg)
}

// Stop cancels a pending execution. It reports whether one was pending.
func (d *Debouncer[T]) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.pending {
		return false
	}
	d.take()
	return true
}

// Flush runs a pending execution immediately in the caller's goroutine.
// It reports whether fn ran.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return false
	}
	arg := d.take()
	d.mu.Unlock()

	debounceExecutionsTotal.Inc()
	d.fn(arg)
	return true
}

// Pending reports whether an execution is scheduled.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// take clears the pending state and returns the argument. Caller holds mu.
func (d *Debouncer[T]) take() T {
	arg := d.arg
	var zero T
	d.arg = zero
	d.pending = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return arg
}
