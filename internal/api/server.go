// Package api exposes the moderation pipeline over HTTP to the submission
// layer.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/beatguard/internal/pipeline"
	"github.com/beatguard/pkg/models"
)

// Processor is the pipeline surface the server needs
type Processor interface {
	Process(ctx context.Context, req models.ModerationRequest) (*models.PipelineResult, error)
}

// Server represents the API server
type Server struct {
	echo      *echo.Echo
	port      int
	processor Processor
	log       zerolog.Logger
}

// NewServer creates a new API server around the pipeline
func NewServer(port int, processor Processor, log zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := &Server{
		echo:      e,
		port:      port,
		processor: processor,
		log:       log,
	}

	server.setupRoutes()

	return server
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	s.echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	v1 := s.echo.Group("/api/v1")
	v1.POST("/moderate", s.moderate)
}

// moderate runs one submission through the pipeline. Invalid input is the
// only client error; everything else the pipeline absorbs into the verdict.
func (s *Server) moderate(c echo.Context) error {
	var req models.ModerationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	result, err := s.processor.Process(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, pipeline.ErrEmptyContent) || errors.Is(err, pipeline.ErrInvalidKind) {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
		}
		s.log.Error().Err(err).Msg("moderation request failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal error",
		})
	}

	return c.JSON(http.StatusOK, result)
}

// Start begins the API server and blocks until interrupted
func (s *Server) Start() error {
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			s.log.Fatal().Err(err).Msg("shutting down the server")
		}
	}()

	s.log.Info().Int("port", s.port).Msg("moderation API listening")

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}

// Handler exposes the routed handler for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}
