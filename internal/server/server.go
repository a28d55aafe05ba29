// Package server is the HTTP layer: list endpoints over pagequery plus
// health, metrics and log level endpoints.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/theplant/pagequery"
	"github.com/theplant/pagequery/internal/config"
)

const metricsNamespace = "pagequery"

type Options struct {
	Logger     *zap.Logger
	Pagination config.PaginationConfig

	// Registry collects pagination metrics and is served on /metrics.
	// Nil disables both.
	Registry *prometheus.Registry

	// Health reports whether the store is reachable.
	Health func(ctx context.Context) error

	// LogLevel, when set, is served on /log/level.
	LogLevel http.Handler
}

type Server struct {
	engine  *gin.Engine
	api     *gin.RouterGroup
	cfg     config.PaginationConfig
	logger  *zap.Logger
	metrics *pagequery.Metrics
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(Recovery(logger), RequestID(), AccessLog(logger), ErrorHandler(logger))
	engine.NoRoute(func(c *gin.Context) {
		_ = c.Error(NewAPIError(http.StatusNotFound, "route %s not found", c.Request.URL.Path))
	})

	s := &Server{
		engine: engine,
		api:    engine.Group("/api"),
		cfg:    opts.Pagination,
		logger: logger,
	}

	engine.GET("/healthz", func(c *gin.Context) {
		if opts.Health != nil {
			if err := opts.Health(c.Request.Context()); err != nil {
				logger.Warn("health check failed", zap.Error(err))
				_ = c.Error(NewAPIError(http.StatusServiceUnavailable, "store unavailable"))
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if opts.Registry != nil {
		s.metrics = pagequery.NewMetrics(opts.Registry, metricsNamespace)
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{Registry: opts.Registry})))
	}

	if opts.LogLevel != nil {
		engine.GET("/log/level", gin.WrapH(opts.LogLevel))
		engine.PUT("/log/level", gin.WrapH(opts.LogLevel))
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}
