// Command mcp-weather exposes the get_weather tool over Streamable HTTP MCP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"weather-a2a/internal/config"
	"weather-a2a/internal/logging"
	"weather-a2a/internal/weather"
)

var version = "1.0.0"

func main() {
	host := flag.String("host", "0.0.0.0", "listen host")
	port := flag.Int("port", 8091, "listen port")
	level := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	logger := logging.NewWithWriter(config.LogConfig{Level: *level, Name: "mcp-weather"}, os.Stderr)
	slog.SetDefault(logger)

	tools := weather.NewMCPServer(weather.NewClient(), version)

	mux := http.NewServeMux()
	mux.Handle("/mcp", server.NewStreamableHTTPServer(tools))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", *host, *port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown incomplete", "error", err)
		}
	}()

	logger.Info("starting mcp-weather", "address", srv.Addr, "version", version)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	// ListenAndServe returns as soon as Shutdown starts; wait for in-flight
	// tool calls.
	<-drained
}
