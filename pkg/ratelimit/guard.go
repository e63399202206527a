package ratelimit

import (
	"context"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for in-flight guards.
var (
	guardRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_guard_rejections_total",
		Help: "Total number of pipeline runs rejected because one was in flight",
	}, []string{"guard"})

	guardErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_guard_errors_total",
		Help: "Total number of guard backend errors by operation",
	}, []string{"operation"})
)

// Guard is the in-flight flag of one page-view session. TryAcquire sets it
// when it is clear; Release clears it.
type Guard interface {
	// TryAcquire sets the flag and reports true, or reports false when a
	// run is already in flight.
	TryAcquire(ctx context.Context) (bool, error)

	// Release clears the flag.
	Release(ctx context.Context) error

	// Held reports whether a run is in flight.
	Held(ctx context.Context) (bool, error)
}

// LocalGuard is a process-local Guard. The zero value is ready to use.
type LocalGuard struct {
	held atomic.Bool
}

// NewLocalGuard creates a cleared local guard.
func NewLocalGuard() *LocalGuard {
	return &LocalGuard{}
}

// TryAcquire implements Guard.
func (g *LocalGuard) TryAcquire(_ context.Context) (bool, error) {
	if g.held.CompareAndSwap(false, true) {
		return true, nil
	}
	guardRejectionsTotal.WithLabelValues("local").Inc()
	return false, nil
}

// Release implements Guard.
func (g *LocalGuard) Release(_ context.Context) error {
	g.held.Store(false)
	return nil
}

// Held implements Guard.
func (g *LocalGuard) Held(_ context.Context) (bool, error) {
	return g.held.Load(), nil
}
