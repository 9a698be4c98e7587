// Package server exposes stored simulation results over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neo/personasim/internal/database"
	"github.com/neo/personasim/internal/logging"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the read-only results API
type Server struct {
	router *gin.Engine
	db     database.DatabaseInterface
	config Config
	cache  *cache.Cache
}

// NewServer wires the middleware and routes. gatherer backs /metrics; nil
// uses the default registry.
func NewServer(db database.DatabaseInterface, config Config, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if config.ShutdownGrace <= 0 {
		config.ShutdownGrace = DefaultConfig().ShutdownGrace
	}
	if config.StatsTTL <= 0 {
		config.StatsTTL = DefaultConfig().StatsTTL
	}

	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware())
	router.Use(RecoveryMiddleware(config))
	router.Use(CORSMiddleware(config.AllowedOrigins))
	router.Use(ErrorHandler(config))

	s := &Server{
		router: router,
		db:     db,
		config: config,
		cache:  cache.New(config.StatsTTL, 2*config.StatsTTL),
	}

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/sessions", s.handleListSessions)
		api.GET("/sessions/:id/records", s.handleSessionRecords)
		api.GET("/stats", s.handleStats)
	}

	return s
}

// Router returns the underlying handler, mainly for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("Results API listening", map[string]interface{}{"addr": addr})
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

	logging.Info("Shutting down results API", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
