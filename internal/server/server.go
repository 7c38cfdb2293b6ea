// Package server serves the browser chat: a single page plus a small JSON API over per-browser chat sessions.
package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cchalm/cloudops-assistant/internal/chat"
	"github.com/cchalm/cloudops-assistant/internal/logger"
	"github.com/cchalm/cloudops-assistant/internal/metrics"
	"github.com/gorilla/mux"
)

//go:embed static/index.html
var indexHTML []byte

type Options struct {
	Addr        string
	MaxSessions int
	Logger      *logger.Logger
	Metrics     *metrics.Recorder
}

type Server struct {
	router   *mux.Router
	registry *Registry
	http     *http.Server
	log      *logger.Logger
}

// New builds the server. Every session it creates sends its queries through invoker.
func New(invoker chat.Invoker, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	recorder := opts.Metrics
	if recorder == nil {
		recorder = metrics.NewRecorder()
	}

	registry := NewRegistry(opts.MaxSessions, func() *chat.Session {
		return chat.NewSession(invoker, chat.WithLogger(log), chat.WithMetrics(recorder))
	}, recorder)

	router := mux.NewRouter()
	router.Use(LoggingMiddleware(log))

	s := &Server{router: router, registry: registry, log: log}
	s.routes(NewChatHandlers(log, registry), recorder)
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(h *ChatHandlers, recorder *metrics.Recorder) {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/sessions", h.CreateSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", h.GetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", h.DeleteSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/messages", h.PostMessage).Methods(http.MethodPost)
	api.HandleFunc("/quick-actions", h.QuickActions).Methods(http.MethodGet)

	s.router.Handle("/metrics", recorder.Handler()).Methods(http.MethodGet)

	s.router.HandleFunc("/healthCheck", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		response := map[string]string{"status": "healthy"}
		_ = json.NewEncoder(w).Encode(response)
	}).Methods(http.MethodGet)

	s.router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(indexHTML)
	}).Methods(http.MethodGet)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Registry() *Registry {
	return s.registry
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info(fmt.Sprintf("Server is running on %s", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to run HTTP server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.log.Info("Server stopped gracefully.")
	return nil
}
