// Package server provides the HTTP API for applying filters and rendering templates.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/textfilter/internal/config"
	"github.com/hyperjump/textfilter/internal/filters"
	"github.com/hyperjump/textfilter/internal/templates"
	"go.uber.org/zap"
)

// Server is the HTTP server for the filter API.
type Server struct {
	filters   *filters.Registry
	templates *templates.Store
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies. store may be nil,
// in which case the render endpoints answer 501.
func NewServer(
	registry *filters.Registry,
	store *templates.Store,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		filters:   registry,
		templates: store,
		config:    cfg,
		logger:    logger,
	}
}

// Router returns the HTTP handler with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/filters", s.handleListFilters)
		r.Post("/filters/{name}", s.handleApplyFilter)
		r.Get("/templates", s.handleListTemplates)
		r.Post("/render/{name}", s.handleRender)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
