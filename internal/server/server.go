// Package server exposes run progress over HTTP while a long collection is
// in flight: liveness, progress counters, and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ProgressSource reports pipeline progress. Implemented by the engine
// pipeline.
type ProgressSource interface {
	Progress() (done, total, batch int)
}

// Server is the optional status endpoint for a run.
type Server struct {
	Addr     string
	Source   ProgressSource
	Registry *prometheus.Registry
	Logger   *zap.Logger

	httpServer *http.Server
}

// Start begins serving in the background. Errors other than a clean close
// are logged, never fatal: the status surface must not take the run down.
func (s *Server) Start() {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/healthz", s.handleHealth)
	router.Get("/progress", s.handleProgress)
	if s.Registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{}))
	}

	s.httpServer = &http.Server{
		Addr:              s.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.Logger != nil {
				s.Logger.Warn("status server stopped", zap.Error(err))
			}
		}
	}()
}

// Shutdown stops the server, waiting briefly for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProgress(w http.ResponseWriter, _ *http.Request) {
	var done, total, batch int
	if s.Source != nil {
		done, total, batch = s.Source.Progress()
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"done":  done,
		"total": total,
		"batch": batch,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
