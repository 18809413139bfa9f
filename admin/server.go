// Package admin serves the optional local HTTP interface: Prometheus metrics,
// a health probe and the latest display model as JSON.
package admin

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"aodash/session"
	"aodash/stats"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Source supplies the latest frame.
type Source interface {
	Latest() (session.DisplayModel, bool)
}

// Server is the admin HTTP server.
type Server struct {
	addr     string
	source   Source
	tracker  *stats.Tracker
	registry *prometheus.Registry
	router   chi.Router
	now      func() time.Time
	logf     func(string, ...any)
}

// New wires the router. The tracker's collector plus the Go runtime and
// process collectors are registered on a private registry.
func New(addr string, source Source, tracker *stats.Tracker) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		stats.NewCollector(tracker),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s := &Server{
		addr:     addr,
		source:   source,
		tracker:  tracker,
		registry: registry,
		now:      time.Now,
		logf:     log.Printf,
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(noStore)
	router.Get("/healthz", s.handleHealth)
	router.Get("/state", s.handleState)
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	s.router = router
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logf("Admin: serving on http://%s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

type healthResponse struct {
	Status     string  `json:"status"`
	LastRead   string  `json:"last_read,omitempty"`
	AgeSeconds float64 `json:"age_seconds,omitempty"`
	Ticks      uint64  `json:"ticks"`
	Uptime     string  `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "waiting",
		Ticks:  s.tracker.Ticks(),
		Uptime: s.tracker.GetUptime().Truncate(time.Second).String(),
	}
	last, ok := s.tracker.LastSuccess()
	if !ok {
		respondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.Status = "ok"
	resp.LastRead = last.UTC().Format(time.RFC3339)
	resp.AgeSeconds = max(s.now().Sub(last).Seconds(), 0)
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	model, ok := s.source.Latest()
	if !ok {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "no snapshot has been read yet"})
		return
	}
	respondJSON(w, http.StatusOK, model)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func noStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(w, r)
	})
}
