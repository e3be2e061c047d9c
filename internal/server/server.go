// Package server exposes the coordination store as a JSON HTTP API.
//
// The store is a library first; this server is one thin RPC wrapper over
// it, usable by agent runtimes that are not Go processes.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// StartOpts holds configuration for the API server.
type StartOpts struct {
	DB   *gorm.DB
	Port int
	Out  io.Writer
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("server: db is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	router := NewRouter(opts.DB)

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Waggle API listening on http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// NewRouter builds the Gin engine with all routes registered.
func NewRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, db)
	return router
}

// fail writes a JSON error with a status derived from the error text:
// lookups that found nothing map to 404, everything else to 500 unless the
// handler chose a status itself.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if strings.Contains(err.Error(), "not found") {
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// badRequest writes a 400 JSON error.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
