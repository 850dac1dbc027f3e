package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/loom-ui/loom/pkg/snapshot"
)

// Server hosts reactive sessions over HTTP and WebSocket.
type Server struct {
	config  *Config
	logger  *slog.Logger
	factory AppFactory
	store   snapshot.Store

	upgrader   websocket.Upgrader
	httpServer *http.Server

	mu       sync.Mutex
	sessions map[string]*Session
}

// New creates a server. The factory builds each session's runtime on first
// contact; the store persists paused sessions.
func New(factory AppFactory, store snapshot.Store, config *Config) *Server {
	config = config.withDefaults()
	logger := config.Logger.With("component", "server")

	s := &Server{
		config:  config,
		logger:  logger,
		factory: factory,
		store:   store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		sessions: make(map[string]*Session),
	}
	return s
}

// Handler returns the server's HTTP handler, mountable under any router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/sessions/{session}", func(r chi.Router) {
		r.Post("/snapshot", s.handlePause)
		r.Get("/snapshot", s.handleLoadSnapshot)
		r.Delete("/snapshot", s.handleDeleteSnapshot)
		r.Get("/live", s.handleLive)
	})
	return r
}

// Start runs the HTTP server until the context is canceled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "address", s.config.Address)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	return s.httpServer.Shutdown(shutdownCtx)
}

// Session returns the named session, building it through the factory on
// first contact.
func (s *Server) Session(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}

	app, err := s.factory(id)
	if err != nil {
		return nil, fmt.Errorf("loom: build session %q: %w", id, err)
	}
	sess := newSession(id, app, s.logger)
	s.sessions[id] = sess
	return sess, nil
}

// DropSession forgets an in-memory session. Its stored snapshot, if any,
// stays.
func (s *Server) DropSession(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handlePause pauses the session and persists the snapshot.
func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")

	sess, err := s.Session(id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	snap, err := sess.Pause(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := s.store.Save(r.Context(), id, snap); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.logger.Info("session paused", "session", id, "tasks", len(snap.Tasks))
	s.writeJSON(w, http.StatusOK, map[string]any{
		"session": id,
		"takenAt": snap.TakenAt,
		"tasks":   len(snap.Tasks),
	})
}

// handleLoadSnapshot returns the stored snapshot for the session.
func (s *Server) handleLoadSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")

	snap, err := s.store.Load(r.Context(), id)
	if errors.Is(err, snapshot.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
