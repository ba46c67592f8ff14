// Package server provides the HTTP API for semlight.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/semlight/internal/config"
	"github.com/hyperjump/semlight/internal/page"
	"github.com/hyperjump/semlight/internal/scoring"
	"github.com/hyperjump/semlight/internal/topics"
	"github.com/hyperjump/semlight/pkg/utils"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies; pages can be large.
const maxBodyBytes = 32 << 20

// ModelStatus reports the state of the lazily loaded model.
type ModelStatus interface {
	Loaded() bool
	Attempts() int
}

// Server is the HTTP server for the semlight API.
type Server struct {
	service     *scoring.Service
	highlighter *page.Highlighter
	catalog     *topics.Catalog
	models      ModelStatus
	config      *config.Config
	logger      *zap.Logger
	server      *http.Server
}

// NewServer creates a server with the given dependencies. catalog and models may be nil.
func NewServer(
	service *scoring.Service,
	highlighter *page.Highlighter,
	catalog *topics.Catalog,
	models ModelStatus,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		service:     service,
		highlighter: highlighter,
		catalog:     catalog,
		models:      models,
		config:      cfg,
		logger:      utils.OrNop(logger),
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(s.recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/score", s.handleScore)
		r.Post("/highlight", s.handleHighlight)
		r.Get("/topics", s.handleTopics)
		r.Get("/topics/{name}", s.handleGetTopic)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
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
