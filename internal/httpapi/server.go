// Package httpapi exposes the tutoring orchestrator over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/abhisek/tutord/internal/catalog"
	"github.com/abhisek/tutord/internal/orchestrator"
)

// Server wires the chi router over the orchestrator.
type Server struct {
	orch    *orchestrator.Orchestrator
	catalog *catalog.Catalog
	logger  *zap.Logger
	router  chi.Router
}

// New builds the HTTP server. A nil logger is replaced with a no-op
// one.
func New(orch *orchestrator.Orchestrator, cat *catalog.Catalog, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{orch: orch, catalog: cat, logger: logger}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(s.measureRequests)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Post("/start", s.handleStart)
			r.Post("/start-adaptive", s.handleStartAdaptive)
			r.Post("/step", s.handleStep)
			r.Post("/end", s.handleEnd)
			r.Get("/progression-status/{learnerID}", s.handleProgressionStatus)
			r.Get("/{sessionID}", s.handleGetSession)
		})
		r.Get("/topics", s.handleTopics)
		r.Post("/catalog/refresh", s.handleCatalogRefresh)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"catalog_items": s.catalog.Len(),
	})
}

func (s *Server) handleCatalogRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Refresh(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "refreshed",
		"catalog_items": s.catalog.Len(),
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully within
// the given timeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{Addr: addr, Handler: s}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	s.logger.Info("http server listening", zap.String("addr", addr))
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
