package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fieldserve/scheduling-backend/internal/infrastructure/config"
	"github.com/fieldserve/scheduling-backend/internal/infrastructure/telemetry"
)

// Server wraps the HTTP server with the standard middleware stack.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer assembles the server around the API handler.
func NewServer(cfg config.ServerConfig, handler *Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	stack := Chain(handler.Routes(),
		RecoveryMiddleware(logger),
		RequestIDMiddleware(),
		TracingMiddleware(telemetry.Tracer("api.rest")),
		LoggingMiddleware(logger),
	)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      stack,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: logger,
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("api server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("api server shutting down")
	return s.httpServer.Shutdown(ctx)
}
