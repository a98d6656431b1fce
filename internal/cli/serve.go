package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/membank-oss/membank/internal/bank"
	"github.com/membank-oss/membank/internal/config"
	"github.com/membank-oss/membank/internal/embed"
	"github.com/membank-oss/membank/internal/mcp"
	"github.com/membank-oss/membank/internal/session"
	"github.com/membank-oss/membank/internal/store"
	"github.com/membank-oss/membank/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the memory bank to an MCP client over stdio",
	Long: `Start the MCP server on stdin/stdout.

Logs go to stderr; stdout carries only the JSON-RPC stream. The
process exits when the client closes stdin.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logger := telemetry.NewLogger(level, cfg.Logging.Format)
	defer logger.Close()
	if cfg.Logging.File != "" {
		if err := logger.WithFile(cfg.Logging.File); err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
	}

	metrics := telemetry.NewMetrics()
	if cfg.Metrics.File != "" {
		exporter, err := telemetry.NewJSONFileExporter(cfg.Metrics.File)
		if err != nil {
			return fmt.Errorf("failed to open metrics file: %w", err)
		}
		defer exporter.Close()
		metrics.SetExporter(exporter)
	}

	embedder, err := embed.NewFromConfig(cfg.Embedding)
	if err != nil {
		return err
	}
	if embedder == nil {
		logger.Info("embedding sync disabled, semantic search unavailable")
	}

	stores := store.NewRegistry(cfg.Store.Filename)
	defer stores.Close()

	service := bank.New(stores, embedder, logger, metrics)

	defaultWorkspace := workspace
	if defaultWorkspace == "" {
		defaultWorkspace = cfg.Workspace
	}
	sessions := session.NewRegistry(defaultWorkspace)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	logger.Info("membank mcp server starting",
		"default_workspace", defaultWorkspace,
		"embedding_provider", cfg.Embedding.Provider)

	srv := mcp.NewServer(service, sessions, logger)
	err = srv.Run(ctx)

	if flushErr := metrics.Flush("serve.shutdown"); flushErr != nil {
		logger.Warn("failed to flush metrics", "error", flushErr)
	}
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFile(cfgFile)
	}
	return config.Load(".")
}
