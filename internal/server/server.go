// Package server exposes the file-sharing API over HTTP. TLS is left to
// the reverse proxy in front of the service.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"file-drop-service/pkg/logger"
)

// Server wraps the HTTP listener and its routes
type Server struct {
	httpServer *http.Server
	logger     *logger.Logger
}

// New creates an HTTP server with all routes registered
func New(addr string, handler *Handler) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Get("/health", handler.HandleHealth)
	router.Post("/api/upload", handler.HandleUpload)
	router.Get("/api/files/{fileID}", handler.HandleDownload)
	router.Get("/{fileID}", handler.HandleShareLink)

	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: router,
			// Uploads and downloads can be large; only the idle and
			// header phases get tight deadlines.
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger.NewWithComponent("server"),
	}
}

// Run blocks serving requests until ListenAndServe fails or Shutdown is
// called. A clean shutdown returns nil.
func (s *Server) Run() error {
	s.logger.InfoWithFields("HTTP server started", map[string]interface{}{
		"addr": s.httpServer.Addr,
	})

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}
