// Package server exposes results and their exports over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gaurav-prasanna/gtmkit/core"
	"github.com/gaurav-prasanna/gtmkit/core/export"
	"github.com/gaurav-prasanna/gtmkit/core/generate"
)

// Generator runs plan generation for an order.
type Generator interface {
	Generate(ctx context.Context, req generate.Request) (*core.Result, error)
}

// Server is the gtmkit HTTP API.
type Server struct {
	store     core.ResultStore
	exporter  *export.Exporter
	generator Generator
	logger    *zap.Logger
	router    *gin.Engine
}

// New creates a server. generator may be nil, in which case generation
// requests are answered with 503.
func New(store core.ResultStore, exporter *export.Exporter, generator Generator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		store:     store,
		exporter:  exporter,
		generator: generator,
		logger:    logger,
		router:    router,
	}

	api := router.Group("/api", noStore)
	{
		api.GET("/health", s.handleHealth)
		api.GET("/results/:orderId", s.handleResult)
		api.GET("/results/:orderId/download", s.handleDownload)
		api.POST("/results/generate", s.handleGenerate)
	}
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", zap.String("addr", addr))

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// --- middleware ---

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Next()
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}
