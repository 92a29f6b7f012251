// Package httpcontroller assembles the dashboard HTTP server: the
// embedded frontend, the JSON API and the metrics endpoint.
package httpcontroller

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/autovisor/visitmon/frontend"
	"github.com/autovisor/visitmon/internal/api"
	"github.com/autovisor/visitmon/internal/conf"
	"github.com/autovisor/visitmon/internal/logging"
	"github.com/autovisor/visitmon/internal/observability"
	"github.com/autovisor/visitmon/internal/visit"
)

// Server encapsulates the Echo server and related configuration.
type Server struct {
	Echo     *echo.Echo
	Settings *conf.Settings
	API      *api.Controller

	metrics *observability.Metrics

	webLogger      *slog.Logger
	webLevelVar    *slog.LevelVar
	webLoggerClose func() error
}

// New initializes the HTTP server around the given record set loader.
func New(settings *conf.Settings, loader *visit.Service, metrics *observability.Metrics) *Server {
	s := &Server{
		Echo:     echo.New(),
		Settings: settings,
		metrics:  metrics,
	}
	s.Echo.HideBanner = true
	s.Echo.IPExtractor = echo.ExtractIPFromXFFHeader()

	s.webLevelVar = new(slog.LevelVar)
	if settings.Debug {
		s.webLevelVar.Set(slog.LevelDebug)
	} else {
		s.webLevelVar.Set(slog.LevelInfo)
	}

	var err error
	logFilePath := filepath.Join(settings.Log.Path, "web.log")
	s.webLogger, s.webLoggerClose, err = logging.NewFileLogger(logFilePath, "web", s.webLevelVar)
	if err != nil {
		log.Printf("Failed to initialize web file logger at %s: %v. Web logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: s.webLevelVar})
		s.webLogger = slog.New(fbHandler).With("service", "web")
		s.webLoggerClose = func() error { return nil }
	}

	s.initMiddleware()

	s.API = api.New(s.Echo, loader, settings, metrics)

	if metrics != nil {
		s.Echo.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}

	// Embedded dashboard assets, index.html at the root
	s.Echo.StaticFS("/", frontend.DistFS)

	return s
}

func (s *Server) initMiddleware() {
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.Gzip())
	s.Echo.Use(s.requestLogger())
}

// requestLogger records request logs and HTTP metrics.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			elapsed := time.Since(start)

			s.webLogger.Info("request",
				"method", req.Method,
				"path", req.URL.Path,
				"status", res.Status,
				"remote_ip", c.RealIP(),
				"duration_ms", elapsed.Milliseconds())

			if s.metrics != nil {
				s.metrics.HTTP.RecordRequest(c.Path(), req.Method, strconv.Itoa(res.Status))
				s.metrics.HTTP.RecordRequestDuration(c.Path(), elapsed.Seconds())
			}
			return nil
		}
	}
}

// Start begins listening and serving until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.Settings.Dashboard.Host, s.Settings.Dashboard.Port)

	errChan := make(chan error, 1)
	go func() {
		s.webLogger.Info("dashboard server starting", "addr", addr)
		if err := s.Echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.webLogger.Info("dashboard server shutting down")
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops the server and releases its resources.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Echo.Shutdown(ctx)
	if s.API != nil {
		s.API.Close()
	}
	if s.webLoggerClose != nil {
		if closeErr := s.webLoggerClose(); closeErr != nil {
			log.Printf("Error closing web logger: %v", closeErr)
		}
	}
	return err
}
