package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Himson2006/Yolo-Gpu-2/internal/conf"
	"github.com/Himson2006/Yolo-Gpu-2/internal/errors"
	"github.com/Himson2006/Yolo-Gpu-2/internal/logger"
	"github.com/Himson2006/Yolo-Gpu-2/internal/observability"
)

// Server is the camtrap HTTP server. It owns the echo instance, the middleware
// chain, the /metrics endpoint and the API controller.
type Server struct {
	echo       *echo.Echo
	config     *Config
	settings   *conf.Settings
	controller *Controller
	metrics    *observability.Metrics
	log        logger.Logger
	startTime  time.Time
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithMetrics enables request metrics and the /metrics endpoint.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) { s.log = l }
}

// NewServer creates the HTTP server and registers every route.
func NewServer(settings *conf.Settings, deps *Dependencies, opts ...ServerOption) (*Server, error) {
	config := ConfigFromSettings(settings)
	if err := config.Validate(); err != nil {
		return nil, errors.New(err).
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}

	s := &Server{
		config:    config,
		settings:  settings,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Global().Module("api")
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()

	if deps != nil && deps.Logger == nil {
		deps.Logger = s.log
	}
	controller, err := NewController(s.echo, settings, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize API: %w", err)
	}
	s.controller = controller

	s.echo.GET("/health", s.healthCheck)
	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	s.log.Info("HTTP server initialized",
		logger.String("address", config.Address()),
		logger.Bool("debug", config.Debug),
		logger.Bool("metrics", s.metrics != nil))
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.echo.Use(echomw.Recover())
	s.echo.Use(RequestID())
	s.echo.Use(RequestLogger(s.log))
	if s.metrics != nil {
		s.echo.Use(RequestMetrics(s.metrics.HTTP))
	}
	s.echo.Use(echomw.BodyLimit(s.config.BodyLimit))
	s.echo.Use(echomw.GzipWithConfig(echomw.GzipConfig{
		// videos are already compressed
		Skipper: func(ctx echo.Context) bool { return ctx.Path() == APIPrefix+"/events/:id/video" },
	}))
}

func (s *Server) healthCheck(ctx echo.Context) error {
	uptime := time.Since(s.startTime)
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

// Controller returns the API controller.
func (s *Server) Controller() *Controller {
	return s.controller
}

// Echo returns the echo instance, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Serve accepts connections on l until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.echo.Listener = l
	return s.run(ctx)
}

// ListenAndServe listens on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	l, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return errors.New(err).
			Component("api").
			Category(errors.CategoryConfiguration).
			Context("address", s.config.Address()).
			Build()
	}
	return s.Serve(ctx, l)
}

func (s *Server) run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting HTTP server", logger.String("address", s.echo.Listener.Addr().String()))
		errCh <- s.echo.Start("")
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutdown signal received, stopping HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	s.log.Info("HTTP server stopped")
	return nil
}
