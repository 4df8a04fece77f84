// Package core provides the HTTP chassis for Verdant: the chi router, the
// middleware chain, JSON response helpers and health probes. Domain handlers
// register themselves through RouteRegistrars so this package never imports
// them.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"verdant/internal/config"
)

// MetricsCollector records API request telemetry. endpoint is the chi route
// pattern, not the raw path.
type MetricsCollector interface {
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// RouteRegistrar mounts a group of routes on the root router.
type RouteRegistrar func(r chi.Router)

// Server holds the router and the dependencies shared by all requests.
type Server struct {
	Config          *config.Config
	Logger          *slog.Logger
	Validator       *Validator
	Metrics         MetricsCollector
	HealthProbes    []HealthProbe
	RouteRegistrars []RouteRegistrar

	closers []func()
	router  *chi.Mux
}

// NewServer prepares a server. Routes are mounted separately by MountRoutes
// once RouteRegistrars and probes are set.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router exposes the chi.Mux for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// OnShutdown registers fn to run during Shutdown, in reverse order.
func (s *Server) OnShutdown(fn func()) {
	s.closers = append(s.closers, fn)
}

// ListenAndServe serves HTTP on the configured port until ctx is cancelled,
// then drains in-flight requests for up to shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, shutdownTimeout time.Duration) error {
	httpServer := &http.Server{
		Addr:              ":" + s.Config.Server.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.Config.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.Logger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.Logger.Info("initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.Logger.Error("HTTP server shutdown error", "error", err)
	}
	s.Shutdown()
	return nil
}

// Shutdown releases resources registered with OnShutdown.
func (s *Server) Shutdown() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
	s.Logger.Info("server shutdown complete")
}
