// Package server exposes the query service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/Danyokkk/cybus/config"
	"github.com/Danyokkk/cybus/query"
)

// Server is the HTTP API
type Server struct {
	svc     *query.Service
	metrics http.Handler
	log     zerolog.Logger
	http    *http.Server
}

// New builds the router. metrics may be nil, in which case /metrics is not mounted.
func New(cfg config.ServerConfig, svc *query.Service, metrics http.Handler, log zerolog.Logger) *Server {
	s := &Server{
		svc:     svc,
		metrics: metrics,
		log:     log.With().Str("component", "http").Logger(),
	}
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.routes(cfg.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the root handler, for tests and embedding
func (s *Server) Handler() http.Handler { return s.http.Handler }

func (s *Server) routes(origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/stops", s.handleStops)
		r.Get("/stops/nearby", s.handleNearbyStops)
		r.Get("/stops/{stopId}/timetable", s.handleTimetable)
		r.Get("/routes", s.handleRoutes)
		r.Get("/routes/search", s.handleSearchRoutes)
		r.Get("/routes/{routeId}", s.handleRouteDetail)
		r.Get("/vehicle_positions", s.handleVehiclePositions)
		r.Get("/plan", s.handlePlan)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	return r
}

// ListenAndServe blocks until the server stops. It returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains connections, waiting at most 10s
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.log.Info().Msg("server shut down")
	return nil
}
