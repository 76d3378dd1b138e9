// Package server hosts the HTTP façade over the turn orchestrator.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/weiwangfds/love-agent/internal/profile"
	"github.com/weiwangfds/love-agent/plugin/ai/agent"
	"github.com/weiwangfds/love-agent/server/middleware"
	apiv1 "github.com/weiwangfds/love-agent/server/router/api/v1"
	"github.com/weiwangfds/love-agent/store"
)

// Server is the HTTP server wrapping the echo instance.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
}

// NewServer assembles the echo instance, middleware and v1 routes.
func NewServer(ctx context.Context, profile *profile.Profile, st *store.Store, orchestrator *agent.Orchestrator) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	// 10 requests per second per client, with burst of 20.
	e.Use(middleware.NewRateLimiter(10, 20).Middleware())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": profile.Version,
		})
	})

	apiService := apiv1.NewAPIV1Service(profile, st, orchestrator)
	apiService.Register(e.Group("/api/v1"))

	return &Server{
		Profile:    profile,
		Store:      st,
		echoServer: e,
	}, nil
}

// Start begins serving. It returns after the listener stops.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("server started", "address", address, "mode", s.Profile.Mode)

	if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully drains in-flight requests and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("server stopped")
}
