// Package server exposes the question-answering service over HTTP.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/Aman-CERP/saesagent/internal/agent"
	"github.com/Aman-CERP/saesagent/pkg/version"
)

// ErrNilBackend is returned by New without a backend.
var ErrNilBackend = stderrors.New("server: backend is required")

// maxBodyBytes bounds a request body.
const maxBodyBytes = 64 << 10

// Backend is the part of agent.Service the HTTP surface needs.
type Backend interface {
	Ask(ctx context.Context, req agent.Request) agent.Response
	Status() agent.Status
	ClearCaches()
}

var _ Backend = (*agent.Service)(nil)

// Config holds HTTP server settings.
type Config struct {
	Addr string
	// CORSOrigins lists allowed origins; "*" allows any.
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns listen settings suitable for local use. The write
// timeout exceeds the service's caller timeout so slow generations still
// reach the client.
func DefaultConfig() Config {
	return Config{
		Addr:         "127.0.0.1:8000",
		CORSOrigins:  []string{"*"},
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 150 * time.Second,
	}
}

// Server is the HTTP front end.
type Server struct {
	cfg     Config
	backend Backend
	started time.Time

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	closed     bool
}

// New creates a Server for backend.
func New(backend Backend, cfg Config) (*Server, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	return &Server{cfg: cfg, backend: backend, started: time.Now()}, nil
}

// wireRequest is the body of POST /generate/.
type wireRequest struct {
	Query    string `json:"query"`
	UserID   string `json:"id_usuario"`
	UserType string `json:"tipo_usuario"`
	// Reasoning set to 1 forces generation.
	Reasoning int `json:"razonamiento"`
}

// RegisterRoutes adds the service endpoints to mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /generate/{$}", s.handleGenerate)
	mux.HandleFunc("GET /queue/status", s.handleStatus)
	mux.HandleFunc("POST /cache/clear", s.handleClearCache)
	mux.HandleFunc("GET /healthz", s.handleHealth)
}

// Handler returns the routed handler with logging and CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return logRequests(s.corsMiddleware(mux))
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("server already closed")
	}
	if s.httpServer != nil {
		return fmt.Errorf("server already started")
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	srv := s.httpServer
	go func() {
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			slog.Error("http_serve_failed", slog.String("error", err.Error()))
		}
	}()
	slog.Info("http_started", slog.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.httpServer == nil {
		return nil
	}
	err := s.httpServer.Shutdown(ctx)
	slog.Info("http_stopped")
	return err
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var in wireRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}

	resp := s.backend.Ask(r.Context(), agent.Request{
		Query:          in.Query,
		UserID:         in.UserID,
		UserType:       in.UserType,
		ForceReasoning: in.Reasoning == 1,
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Status())
}

func (s *Server) handleClearCache(w http.ResponseWriter, _ *http.Request) {
	s.backend.ClearCaches()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Cachés limpiados."})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"version": version.Short(),
	})
}

// corsMiddleware adds CORS headers for allowed origins.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	anyOrigin := slices.Contains(s.cfg.CORSOrigins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case origin == "":
		case anyOrigin:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case slices.Contains(s.cfg.CORSOrigins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("http_request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Debug("http_encode_failed", slog.String("error", err.Error()))
	}
}
