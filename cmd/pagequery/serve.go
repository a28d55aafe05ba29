package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/theplant/pagequery"
	"github.com/theplant/pagequery/gormstore"
	"github.com/theplant/pagequery/internal/database"
	"github.com/theplant/pagequery/internal/model"
	"github.com/theplant/pagequery/internal/server"
)

var serveFlags struct {
	port int
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server. The database is connected on the first request,
so the server starts even while PostgreSQL is still coming up.

Examples:
  pagequery serve
  pagequery serve --config /etc/pagequery/config.yaml --port 9000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&serveFlags.port, "port", "p", 0, "override server.port")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, level, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if serveFlags.port != 0 {
		cfg.Server.Port = serveFlags.port
	}

	policies, err := model.LoadPolicies(cfg.PolicyFile)
	if err != nil {
		return err
	}
	if err := policies.Validate(); err != nil {
		return fmt.Errorf("invalid policies: %w", err)
	}

	handle := database.New(cfg.Database, logger)
	defer handle.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(server.Options{
		Logger:     logger,
		Pagination: cfg.Pagination,
		Registry:   reg,
		Health:     handle.Ping,
		LogLevel:   level,
	})
	server.Mount(srv, "/users", server.Resource[*model.User]{
		Name:   model.ResourceUsers,
		Store:  gormstore.NewLazy[*model.User](handle.DB),
		Policy: policies[model.ResourceUsers],
		Base:   pagequery.BaseQuery{Include: []string{"company"}},
	})
	server.Mount(srv, "/posts", server.Resource[*model.Post]{
		Name:   model.ResourcePosts,
		Store:  gormstore.NewLazy[*model.Post](handle.DB),
		Policy: policies[model.ResourcePosts],
		Base: pagequery.BaseQuery{
			Where:   model.PublishedPosts(),
			Include: []string{"author"},
		},
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
