// Package server owns the gin engine and the HTTP listener.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bravo68web/gitkit/internal/application/service"
	"github.com/bravo68web/gitkit/internal/config"
	"github.com/bravo68web/gitkit/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	*gin.Engine

	Config *config.Config
	Browse *service.BrowseService
	Log    *logger.Logger
}

// New creates a server with an empty engine. Routes are added by the router
// package.
func New(cfg *config.Config, browse *service.BrowseService, log *logger.Logger) *Server {
	switch cfg.Server.Mode {
	case gin.DebugMode, "development":
		gin.SetMode(gin.DebugMode)
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	if log == nil {
		log = logger.Get()
	}

	engine := gin.New()
	engine.UseRawPath = true

	return &Server{
		Engine: engine,
		Config: cfg,
		Browse: browse,
		Log:    log.Named("http"),
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Config.ServerAddress(),
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Log.Info("HTTP server listening", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.Log.Info("HTTP server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
