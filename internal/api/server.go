package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/profile-control/pcc/internal/auth"
)

// Server is the HTTP API server.
type Server struct {
	httpServer     *http.Server
	mgr            ManagerPort
	hub            TelemetryPort
	roaming        RoamingControl
	authMiddleware *auth.Middleware
	startTime      time.Time
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration
}

// NewServer creates an API server. authMiddleware may be nil, which
// leaves every endpoint unprotected (tests and local runs only).
func NewServer(mgr ManagerPort, hub TelemetryPort, roaming RoamingControl, authMiddleware *auth.Middleware, readTimeout, writeTimeout, idleTimeout time.Duration) *Server {
	return &Server{
		mgr:            mgr,
		hub:            hub,
		roaming:        roaming,
		authMiddleware: authMiddleware,
		startTime:      time.Now(),
		readTimeout:    readTimeout,
		writeTimeout:   writeTimeout,
		idleTimeout:    idleTimeout,
	}
}

// Start runs the HTTP server on addr. Blocks until shutdown.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  s.idleTimeout,
	}

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}

// handleMetrics serves the Prometheus registry.
func (s *Server) handleMetrics() http.Handler {
	return promhttp.Handler()
}
