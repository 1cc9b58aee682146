// Package api exposes the roster, capacity, and assignment operations over
// a JSON HTTP API.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/calder/ticketyard/internal/capacity"
	"github.com/calder/ticketyard/internal/config"
	"github.com/calder/ticketyard/internal/notify"
	"github.com/calder/ticketyard/internal/sprint"
	"github.com/calder/ticketyard/internal/story"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Server bundles the dependencies the handlers need. Story, Workload, and
// Windows are nil when the LLM or tracker is not configured; the affected
// endpoints answer 503. Notify is nil when no chat platform is configured.
type Server struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Story    *story.Service
	Workload capacity.WorkloadSource
	Windows  sprint.Provider
	Notify   *notify.Fanout
	Out      io.Writer
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, srv *Server) error {
	if srv.DB == nil {
		return fmt.Errorf("api: db is required")
	}
	if srv.Cfg == nil {
		return fmt.Errorf("api: config is required")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	srv.registerRoutes(router)

	addr := fmt.Sprintf(":%d", srv.Cfg.API.Port)
	httpSrv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		httpSrv.Shutdown(context.Background())
	}()

	if srv.Out != nil {
		fmt.Fprintf(srv.Out, "API listening at http://localhost:%d\n", srv.Cfg.API.Port)
	}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}
