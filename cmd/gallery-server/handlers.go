package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/infinite-gallery/internal/session"
	"github.com/Sternrassler/infinite-gallery/pkg/logging"
	"github.com/Sternrassler/infinite-gallery/pkg/metrics"
	"github.com/Sternrassler/infinite-gallery/pkg/pagination"
	"github.com/Sternrassler/infinite-gallery/pkg/render"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

//go:embed web/index.html
var indexPage []byte

type server struct {
	sessions *session.Manager
	redis    *redis.Client // nil unless a backend uses Redis
	logger   zerolog.Logger
}

func newServer(sessions *session.Manager, redisClient *redis.Client) *server {
	return &server{
		sessions: sessions,
		redis:    redisClient,
		logger:   logging.NewLogger(logging.ComponentServer),
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", indexHandler)
	r.Get("/health", healthHandler)
	r.Get("/ready", s.readyHandler)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Post("/scroll", s.scroll)
			r.Get("/elements", s.elements)
			r.Delete("/", s.deleteSession)
		})
	})

	return r
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger := logging.WithRequestID(s.logger, chimiddleware.GetReqID(r.Context()))
		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

func indexHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexPage)
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (s *server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if s.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.redis.Ping(ctx).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("Readiness check failed")
			http.Error(w, "Redis unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

type createSessionResponse struct {
	ID string `json:"id"`
}

type elementsResponse struct {
	Elements []render.Element `json:"elements"`
	HTML     string           `json:"html"`
	Next     int              `json:"next"`
	Loading  bool             `json:"loading"`
}

func (s *server) createSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create session")
		writeError(w, http.StatusServiceUnavailable, "session_unavailable", "Session could not be created")
		return
	}
	writeJSON(w, http.StatusCreated, createSessionResponse{ID: sess.ID()})
}

func (s *server) scroll(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var pos pagination.ScrollPosition
	if err := decodeJSON(r, &pos); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_scroll", "Invalid scroll position")
		return
	}

	sess.Scroll(pos)
	w.WriteHeader(http.StatusAccepted)
}

func (s *server) elements(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	from := 0
	if raw := r.URL.Query().Get("from"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_from", "from must be a non-negative integer")
			return
		}
		from = n
	}

	elements, loading, err := sess.Elements(r.Context(), from)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sess.ID()).Msg("Failed to read surface")
		writeError(w, http.StatusInternalServerError, "surface_unavailable", "Surface could not be read")
		return
	}

	fragment, err := render.HTML(elements)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to render elements")
		writeError(w, http.StatusInternalServerError, "render_failed", "Elements could not be rendered")
		return
	}

	if elements == nil {
		elements = []render.Element{}
	}
	writeJSON(w, http.StatusOK, elementsResponse{
		Elements: elements,
		HTML:     fragment,
		Next:     from + len(elements),
		Loading:  loading,
	})
}

func (s *server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeSessionError(w, err)
		return nil, false
	}
	return sess, true
}

func (s *server) writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session_not_found", "Session not found")
		return
	}
	s.logger.Error().Err(err).Msg("Session lookup failed")
	writeError(w, http.StatusServiceUnavailable, "session_unavailable", "Session store unavailable")
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return fmt.Errorf("empty body")
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, errCode, msg string) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    errCode,
			"message": msg,
		},
	})
}
