// internal/httpcontroller/server.go
package httpcontroller

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	api "github.com/varity-app/lablr/internal/api/v2"
	"github.com/varity-app/lablr/internal/conf"
	"github.com/varity-app/lablr/internal/datastore"
	"github.com/varity-app/lablr/internal/logging"
)

// Server encapsulates the Echo server and related configurations.
type Server struct {
	Echo     *echo.Echo
	DS       datastore.Interface
	Settings *conf.Settings
	APIV2    *api.Controller

	webLogger *slog.Logger
}

// New initializes a new HTTP server with the given settings and datastore.
func New(settings *conf.Settings, dataStore datastore.Interface) (*Server, error) {
	configureDefaultSettings(settings)

	s := &Server{
		Echo:      echo.New(),
		DS:        dataStore,
		Settings:  settings,
		webLogger: logging.ForService("httpcontroller"),
	}

	// Configure an IP extractor
	s.Echo.IPExtractor = echo.ExtractIPFromXFFHeader()

	if err := s.initializeServer(); err != nil {
		return nil, err
	}
	return s, nil
}

// initializeServer configures middleware and mounts the JSON API.
func (s *Server) initializeServer() error {
	s.Echo.HideBanner = true
	s.configureMiddleware()

	s.Debug("Initializing JSON API v2")
	apiController, err := api.New(s.Echo, s.DS, s.Settings, log.Default())
	if err != nil {
		return fmt.Errorf("failed to initialize API: %w", err)
	}
	s.APIV2 = apiController

	return nil
}

// configureMiddleware sets up middleware for the server.
func (s *Server) configureMiddleware() {
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level:     6,
		MinLength: 2048,
	}))
	s.Echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))
}

// Start begins listening and serving HTTP requests.
func (s *Server) Start() {
	errChan := make(chan error)

	go func() {
		if err := s.Echo.Start(":" + s.Settings.WebServer.Port); err != nil {
			errChan <- err
		}
	}()

	go s.handleServerError(errChan)

	fmt.Printf("HTTP server started on port %s\n", s.Settings.WebServer.Port)
	s.webLogger.Info("HTTP server started", "port", s.Settings.WebServer.Port)
}

// Shutdown gracefully stops the server and its API controller.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.APIV2 != nil {
		s.APIV2.Shutdown()
	}
	return s.Echo.Shutdown(ctx)
}

// Debug logs a debug message when webserver debugging is enabled.
func (s *Server) Debug(format string, v ...any) {
	if s.Settings.WebServer.Debug {
		log.Printf("[DEBUG] "+format, v...)
	}
}

// configureDefaultSettings sets default values for server settings.
func configureDefaultSettings(settings *conf.Settings) {
	if settings.WebServer.Port == "" {
		settings.WebServer.Port = "8080"
	}
}

// handleServerError listens for server errors and logs them.
func (s *Server) handleServerError(errChan chan error) {
	for err := range errChan {
		log.Printf("Server error: %v", err)
		s.webLogger.Error("Server error", "error", err)
	}
}
