// Package server exposes the latest battery snapshot and Prometheus metrics
// over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/rdegges/batfi/internal/report"
)

const shutdownTimeout = 5 * time.Second

// Server serves /metrics, /snapshot and /healthz. Publish is called by the
// tick loop; handlers only read the published copy.
type Server struct {
	addr    string
	log     logrus.FieldLogger
	router  *mux.Router
	started time.Time

	mu       sync.RWMutex
	snapshot report.Snapshot
	hasSnap  bool
}

// New builds a Server. Metrics are gathered from g.
func New(addr string, g prometheus.Gatherer, log logrus.FieldLogger) *Server {
	s := &Server{
		addr:    addr,
		log:     log,
		router:  mux.NewRouter(),
		started: time.Now(),
	}

	s.router.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	s.router.HandleFunc("/snapshot", s.snapshotHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)
	s.router.Use(s.loggingMiddleware)

	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Publish replaces the snapshot served at /snapshot.
func (s *Server) Publish(snap report.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
	s.hasSnap = true
}

// Latest returns the last published snapshot.
func (s *Server) Latest() (report.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.hasSnap
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("Serving metrics on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	s.log.Debug("Metrics server stopped")
	return nil
}

func (s *Server) snapshotHandler(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.Latest()
	if !ok {
		respondError(w, "no reading yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := report.Encode(w, snap, false); err != nil {
		s.log.Warnf("Failed to write snapshot: %v", err)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.Latest()
	status := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	}
	if ok {
		status["last_tick"] = snap.Timestamp
	}
	respondJSON(w, status, http.StatusOK)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debugf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]string{"error": message}, status)
}
