// Package server assembles the HTTP server around the recommendation API.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/moodplate/engine/internal/infrastructure/config"
	"github.com/moodplate/engine/internal/infrastructure/http/handlers"
	"github.com/moodplate/engine/internal/infrastructure/http/middleware"
	"github.com/moodplate/engine/internal/ports/inbound"
)

// Server represents the HTTP server.
type Server struct {
	config *config.Config
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a new HTTP server instance.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	service inbound.RecommendationService,
	registry *prometheus.Registry,
) *Server {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := handlers.NewRecommendHandler(service, logger)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.Recovery(logger))

	router.GET("/health", handler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := router.Group("/api/v1")
	{
		api.POST("/recommendations", handler.Recommend)
	}

	return &Server{
		config: cfg,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
}

// Start begins serving and blocks until the listener closes.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
