// Package main runs the document intelligence HTTP API, or its MCP tools
// over stdio.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/bull/docintel/internal/config"
	"github.com/bull/docintel/internal/httpapi"
	"github.com/bull/docintel/internal/indexer"
	"github.com/bull/docintel/internal/logging"
	mcpserver "github.com/bull/docintel/internal/mcp"
)

var version = "dev"

func main() {
	// .env is optional outside local development.
	envErr := godotenv.Load()

	if err := run(envErr); err != nil {
		fmt.Fprintf(os.Stderr, "docintel server: %v\n", err)
		os.Exit(1)
	}
}

func run(envErr error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if envErr != nil {
		logger.Debug("no .env file found, using environment variables")
	}

	svc, closeIndex, err := indexer.Bootstrap(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeIndex(); err != nil {
			logger.Warn("close index", zap.Error(err))
		}
	}()

	server, err := mcpserver.NewServer(svc, version, logger.Named("mcp"))
	if err != nil {
		return err
	}

	if strings.EqualFold(os.Getenv("SERVER_MODE"), "stdio") {
		logger.Info("starting MCP server (stdio mode)",
			zap.String("backend", string(cfg.Backend)),
			zap.String("index", cfg.Index.Driver))
		return server.Run(ctx)
	}

	handler := httpapi.NewRouter(svc, httpapi.Options{
		Version:     version,
		CORSOrigins: cfg.Server.CORSOrigins,
		MCP:         mcpserver.NewHTTPHandler(server, nil),
	}, logger.Named("http"))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server",
			zap.String("addr", cfg.Server.Addr),
			zap.String("backend", string(cfg.Backend)),
			zap.String("index", cfg.Index.Driver))
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

	logger.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	return srv.Shutdown(shutdownCtx)
}
