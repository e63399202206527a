// Package session hosts page-view sessions: one surface, one controller and
// one pipeline per browser page, looked up by id.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/infinite-gallery/pkg/logging"
	"github.com/Sternrassler/infinite-gallery/pkg/pagination"
	"github.com/Sternrassler/infinite-gallery/pkg/ratelimit"
	"github.com/Sternrassler/infinite-gallery/pkg/render"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gallery_sessions_active",
		Help: "Number of page-view sessions held by this process",
	})

	sessionsClosedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_sessions_closed_total",
		Help: "Total sessions closed by reason",
	}, []string{"reason"})

	sessionsAdoptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gallery_sessions_adopted_total",
		Help: "Total sessions created elsewhere and picked up from the registry",
	})
)

var (
	// ErrClosed is returned by Create after Close.
	ErrClosed = errors.New("session manager closed")

	// ErrNotFound is returned for unknown or expired sessions.
	ErrNotFound = errors.New("session not found")
)

// closeTimeout bounds how long closing a session waits for a run to finish
// and for its shared state to be deleted.
const closeTimeout = 5 * time.Second

// SurfaceFactory creates the surface of a session.
type SurfaceFactory func(sessionID string) render.ReadWriter

// GuardFactory creates the in-flight guard of a session.
type GuardFactory func(sessionID string) ratelimit.Guard

// Options configures a Manager.
type Options struct {
	// Source supplies photo pages (required).
	Source pagination.PhotoSource

	// Controller holds threshold and debounce; its Guard is ignored.
	Controller pagination.ControllerConfig

	// NewSurface defaults to an in-memory surface.
	NewSurface SurfaceFactory

	// NewGuard defaults to a process-local guard.
	NewGuard GuardFactory

	// Registry shares session ids between replicas. Without it sessions
	// are only known to the process that created them. Use it together
	// with shared surface and guard backends.
	Registry Registry
}

// Session is one page view.
type Session struct {
	id         string
	created    time.Time
	surface    render.ReadWriter
	controller *pagination.Controller
	logger     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	ready  chan struct{}

	lastSeen atomic.Int64
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Created returns the creation time.
func (s *Session) Created() time.Time { return s.created }

// Surface returns the read side of the session's surface.
func (s *Session) Surface() render.Reader { return s.surface }

// Controller returns the session's pagination controller.
func (s *Session) Controller() *pagination.Controller { return s.controller }

// Ready is closed once the initial page load has finished. For a session
// picked up from the registry it is closed from the start.
func (s *Session) Ready() <-chan struct{} { return s.ready }

// LastSeen returns the time of the last access through this process.
func (s *Session) LastSeen() time.Time { return time.Unix(0, s.lastSeen.Load()) }

// Scroll forwards a scroll notification to the controller. The run it may
// trigger lives as long as the session, not the caller's request.
func (s *Session) Scroll(pos pagination.ScrollPosition) {
	s.controller.OnScroll(s.ctx, pos)
}

// Elements returns the elements from index from on and whether a load is in
// progress.
func (s *Session) Elements(ctx context.Context, from int) ([]render.Element, bool, error) {
	elements, err := s.surface.Elements(ctx, from)
	if err != nil {
		return nil, false, err
	}
	loading, err := s.surface.LoaderVisible(ctx)
	if err != nil {
		return nil, false, err
	}
	return elements, loading, nil
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

type deleter interface {
	Delete(ctx context.Context) error
}

// close stops the controller and waits for a run in progress. With
// deleteShared the run is cancelled first and the surface is deleted once
// it has settled; otherwise the run finishes normally and the surface stays
// for other replicas.
func (s *Session) close(deleteShared bool) {
	s.controller.Close()
	if deleteShared {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if err := s.controller.Wait(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Run still in progress at session close")
	}
	s.cancel()

	if deleteShared {
		deleteSurface(ctx, s.surface, s.logger)
	}
}

func deleteSurface(ctx context.Context, surface render.ReadWriter, logger zerolog.Logger) {
	d, ok := surface.(deleter)
	if !ok {
		return
	}
	if err := d.Delete(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to delete session surface")
	}
}

// Manager owns the sessions of this process.
type Manager struct {
	opts   Options
	logger zerolog.Logger
	now    func() time.Time

	root   context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool
}

// NewManager creates a session manager.
func NewManager(opts Options) (*Manager, error) {
	if opts.Source == nil {
		return nil, errors.New("photo source is required")
	}
	if opts.NewSurface == nil {
		opts.NewSurface = func(string) render.ReadWriter { return render.NewMemorySurface() }
	}
	if opts.NewGuard == nil {
		opts.NewGuard = func(string) ratelimit.Guard { return ratelimit.NewLocalGuard() }
	}

	root, cancel := context.WithCancel(context.Background())
	return &Manager{
		opts:     opts,
		logger:   logging.NewLogger(logging.ComponentSession),
		now:      time.Now,
		root:     root,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}, nil
}

// newSession wires surface, guard, pipeline and controller for id.
func (m *Manager) newSession(id string, created time.Time) *Session {
	surface := m.opts.NewSurface(id)

	cfg := m.opts.Controller
	cfg.Guard = m.opts.NewGuard(id)

	pipeline := pagination.NewPipeline(m.opts.Source, surface, logging.WithSession(log.Logger, id))
	controller := pagination.NewController(pipeline, cfg, logging.WithSession(log.Logger, id))

	ctx, cancel := context.WithCancel(m.root)
	s := &Session{
		id:         id,
		created:    created,
		surface:    surface,
		controller: controller,
		logger:     logging.WithSession(m.logger, id),
		ctx:        ctx,
		cancel:     cancel,
		ready:      make(chan struct{}),
	}
	s.touch(m.now())
	return s
}

// Create starts a session and fires its initial page load in the background.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := m.newSession(uuid.NewString(), m.now())

	if m.opts.Registry != nil {
		if err := m.opts.Registry.Register(ctx, s.id, s.created); err != nil {
			s.controller.Close()
			s.cancel()
			return nil, err
		}
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		s.controller.Close()
		s.cancel()
		return nil, ErrClosed
	}
	m.sessions[s.id] = s
	m.mu.Unlock()

	sessionsActive.Inc()
	s.logger.Info().Msg("Session created")

	go func() {
		defer close(s.ready)
		s.controller.OnReady(s.ctx)
	}()

	return s, nil
}

// Get returns the session with id and marks it as seen. With a registry, a
// session created by another replica is picked up, and a session whose
// entry is gone is closed here too.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if m.opts.Registry == nil {
		if !ok {
			return nil, ErrNotFound
		}
		s.touch(m.now())
		return s, nil
	}

	created, found, err := m.opts.Registry.Lookup(ctx, id)
	switch {
	case err != nil && ok:
		m.logger.Warn().Err(err).Str("session_id", id).Msg("Session registry unavailable, serving local session")
		s.touch(m.now())
		return s, nil
	case err != nil:
		return nil, err
	case !found:
		if ok && m.remove(id, s) {
			m.closeSession(s, "expired", true)
		}
		return nil, ErrNotFound
	case ok:
		s.touch(m.now())
		return s, nil
	}

	return m.adopt(id, created)
}

// adopt builds a local session for an id created by another replica. No
// initial load is fired; the creator did that.
func (m *Manager) adopt(id string, created time.Time) (*Session, error) {
	s := m.newSession(id, created)
	close(s.ready)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		s.controller.Close()
		s.cancel()
		return nil, ErrClosed
	}
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		s.controller.Close()
		s.cancel()
		existing.touch(m.now())
		return existing, nil
	}
	m.sessions[id] = s
	m.mu.Unlock()

	sessionsActive.Inc()
	sessionsAdoptedTotal.Inc()
	s.logger.Info().Time("created", created).Msg("Session picked up from registry")
	return s, nil
}

// remove deletes id from the map if it still maps to s.
func (m *Manager) remove(id string, s *Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[id] != s {
		return false
	}
	delete(m.sessions, id)
	return true
}

// Delete closes the session and deletes its shared state. With a registry
// this works from any replica.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if m.opts.Registry != nil {
		if !ok {
			exists, err := m.opts.Registry.Exists(ctx, id)
			if err != nil {
				return err
			}
			if !exists {
				return ErrNotFound
			}
		}
		if err := m.opts.Registry.Remove(ctx, id); err != nil {
			m.logger.Warn().Err(err).Str("session_id", id).Msg("Failed to remove session from registry")
		}
		if !ok {
			deleteSurface(ctx, m.opts.NewSurface(id), logging.WithSession(m.logger, id))
			sessionsClosedTotal.WithLabelValues("deleted").Inc()
			return nil
		}
	} else if !ok {
		return ErrNotFound
	}

	m.closeSession(s, "deleted", true)
	return nil
}

// Sweep closes sessions not seen by this process for maxIdle and returns
// how many it closed. With a registry, a session another replica still
// serves is only released here; its shared state stays.
func (m *Manager) Sweep(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)

	var idle []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		if m.servedElsewhere(s.id) {
			m.closeSession(s, "released", false)
			continue
		}
		m.closeSession(s, "idle", true)
	}

	if len(idle) > 0 {
		m.logger.Info().Int("sessions", len(idle)).Dur("max_idle", maxIdle).Msg("Idle sessions swept")
	}
	return len(idle)
}

// servedElsewhere reports whether the registry entry of id is still alive.
// Registry errors count as alive, so shared state is never deleted blindly.
func (m *Manager) servedElsewhere(id string) bool {
	if m.opts.Registry == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	exists, err := m.opts.Registry.Exists(ctx, id)
	if err != nil {
		m.logger.Warn().Err(err).Str("session_id", id).Msg("Session registry unavailable during sweep")
		return true
	}
	return exists
}

// Len returns the number of sessions held by this process.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close closes every session and rejects new ones. With a registry the
// shared state is left for the other replicas.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	all := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	deleteShared := m.opts.Registry == nil

	var wg sync.WaitGroup
	for _, s := range all {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			m.closeSession(s, "shutdown", deleteShared)
		}(s)
	}
	wg.Wait()
	m.cancel()
}

func (m *Manager) closeSession(s *Session, reason string, deleteShared bool) {
	s.close(deleteShared)
	sessionsActive.Dec()
	sessionsClosedTotal.WithLabelValues(reason).Inc()
	s.logger.Debug().Str("reason", reason).Bool("shared_deleted", deleteShared).Msg("Session closed")
}
