// Package main provides the docintel CLI for ingesting and querying files.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bull/docintel/internal/config"
	"github.com/bull/docintel/internal/indexer"
	"github.com/bull/docintel/internal/logging"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "docintel",
	Short:         "Document intelligence: summaries, tags, semantic search and Q&A over files",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default: $CONFIG_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr at debug level")

	rootCmd.AddCommand(ingestCmd, searchCmd, chatCmd, deleteCmd, statusCmd, importGitHubCmd)
}

func main() {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Error: ")
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openService loads configuration and builds the service. The caller must
// invoke the returned cleanup.
func openService(ctx context.Context) (*indexer.Service, *config.Config, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logger := zap.NewNop()
	if verbose {
		if logger, err = logging.New("debug", "console"); err != nil {
			return nil, nil, nil, err
		}
	}

	svc, closeIndex, err := indexer.Bootstrap(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	cleanup := func() {
		_ = closeIndex()
		_ = logger.Sync()
	}
	return svc, cfg, cleanup, nil
}
