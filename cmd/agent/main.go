package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"weather-a2a/internal/agent"
	"weather-a2a/internal/api"
	"weather-a2a/internal/config"
	"weather-a2a/internal/logging"
	"weather-a2a/internal/storage"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "config/agent.yaml", "path to agent configuration file")
	flag.Parse()

	// Provider API keys may come from a local .env file.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log)
	slog.SetDefault(logger)

	store, err := storage.New(cfg.Storage.Path)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry, err := agent.FromConfig(ctx, cfg, store, logger)
	if err != nil {
		logger.Error("failed to build agents", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := registry.Close(); err != nil {
			logger.Warn("error stopping MCP clients", "error", err)
		}
	}()

	server := api.New(cfg, registry, store, logger)

	logger.Info("agents ready", "count", len(registry.Describe()))

	// Run returns after in-flight webhook deliveries, before the deferred
	// registry and store Close calls.
	if err := server.Run(ctx, shutdownTimeout); err != nil {
		logger.Error("server error", "error", err)
	}
}
