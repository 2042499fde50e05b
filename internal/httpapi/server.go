// Package httpapi exposes the read-only debug HTTP surface: health,
// recent gate evaluations, and per-symbol analysis history. Local-only
// by default, matching the teacher's read-only interface server.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/nse-agent/marketagent/internal/analysisstore"
	"github.com/nse-agent/marketagent/internal/gatelog"
	"github.com/nse-agent/marketagent/internal/metrics"
)

// Config controls the server's bind address and timeouts.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns the local-only default configuration.
func DefaultConfig() Config {
	return Config{
		Host:         "127.0.0.1",
		Port:         8090,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server is the read-only debug HTTP surface.
type Server struct {
	router  *mux.Router
	server  *http.Server
	config  Config
	log     zerolog.Logger
	store   analysisstore.Store
	gatelog gatelog.Logger
	metrics *metrics.Registry
}

// New constructs a Server, failing fast if the configured port is
// unavailable: it binds the port once as a probe and releases it; Start
// binds it again.
func New(cfg Config, store analysisstore.Store, gl gatelog.Logger, m *metrics.Registry, log zerolog.Logger) (*Server, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("http api bind %s: %w", addr, err)
	}
	listener.Close()

	s := &Server{router: mux.NewRouter(), config: cfg, log: log, store: store, gatelog: gl, metrics: m}
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(jsonContentType)

	api.HandleFunc("/healthz", s.handleHealthz).Methods("GET")
	api.HandleFunc("/gates/recent", s.handleGatesRecent).Methods("GET")
	api.HandleFunc("/analyses/{symbol}", s.handleAnalyses).Methods("GET")

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	s.router.NotFoundHandler = http.HandlerFunc(notFound)
}

type requestIDKey struct{}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()[:8]
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleGatesRecent(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "missing symbol query parameter"})
		return
	}
	if s.gatelog == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"error": "gate log not configured"})
		return
	}
	recs, err := s.gatelog.Recent(r.Context(), symbol, 20)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(recs)
}

func (s *Server) handleAnalyses(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	if s.store == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"error": "analysis store not configured"})
		return
	}
	analyses, err := s.store.ListBySymbol(r.Context(), symbol, 20)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(analyses)
}

// Start serves until the process exits or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting debug http api")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
