// Package web serves the HTTP API.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/openscrape/facedex/internal/identity"
	"github.com/openscrape/facedex/internal/naming"
	"github.com/openscrape/facedex/internal/pipeline"
	"github.com/openscrape/facedex/internal/storage"
	"github.com/openscrape/facedex/internal/web/handlers"
)

// Deps carries everything the API serves. Covers and Namer are
// optional; their endpoints answer 404/501 when absent.
type Deps struct {
	Pipeline *pipeline.Pipeline
	Registry *identity.Registry
	Store    storage.Store
	Detector pipeline.FaceDetector
	Covers   handlers.CoverSource
	Namer    naming.Provider
}

// Server represents the web server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
}

// NewServer creates a new web server.
func NewServer(deps Deps, host string, port int) *Server {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(5 * time.Minute))

	s := &Server{router: r}
	s.setupRoutes(deps)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // batches can take a while
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
