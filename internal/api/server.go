// Package api assembles the gin engine and HTTP server for the huntboard
// daemon.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/mediahunt/huntboard/internal/api/handlers"
	"github.com/mediahunt/huntboard/internal/config"
	"github.com/mediahunt/huntboard/internal/deviceflow"
	"github.com/mediahunt/huntboard/internal/discovery"
	"github.com/mediahunt/huntboard/internal/logging"
	"github.com/mediahunt/huntboard/internal/rotation"
	"github.com/mediahunt/huntboard/internal/store"
)

const shutdownTimeout = 5 * time.Second

// Server is the HTTP front of the daemon.
type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	srv    *http.Server
}

// NewServer wires the handlers into a gin engine. The caller owns the passed
// collaborators; the server only routes to them.
func NewServer(cfg *config.Config, authorizer *deviceflow.Authorizer, providers map[string]deviceflow.Provider, loader *discovery.Loader, rotator *rotation.Rotator, state store.StateStore) *Server {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(logging.GinLogrusLogger())
	engine.Use(logging.GinLogrusRecovery())

	link := handlers.NewLinkHandler(authorizer, providers, state)
	discover := handlers.NewDiscoverHandler(loader, rotator)

	v0 := engine.Group("/v0")
	{
		v0.POST("/link/:provider/start", link.Start)
		v0.GET("/link/:provider/status", link.Status)
		v0.DELETE("/link/:provider", link.Cancel)

		v0.GET("/discover/home", discover.Home)
		v0.GET("/discover/:section", discover.Section)
	}

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return &Server{cfg: cfg, engine: engine}
}

// Engine exposes the underlying router, mainly for tests.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Run serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("huntboard listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(stopCtx); err != nil {
		log.Errorf("server shutdown failed: %v", err)
		return err
	}
	log.Info("server stopped")
	return <-errCh
}
