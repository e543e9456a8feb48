package api

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"weather-a2a/internal/a2a"
	"weather-a2a/internal/agent"
	"weather-a2a/internal/config"
	"weather-a2a/internal/storage"
)

// Version is reported in agent cards and the API documentation.
const Version = "1.0.0"

const requestIDHeader = "X-Request-ID"

// AgentRegistry resolves agents by id.
type AgentRegistry interface {
	Lookup(id string) (agent.Agent, bool)
	Describe() []agent.Info
}

// RunStore lists recorded agent runs.
type RunStore interface {
	ListRuns(ctx context.Context, agentID string, limit int) ([]*storage.Run, error)
}

// Notifier delivers results of non-blocking calls to a webhook.
type Notifier interface {
	Notify(ctx context.Context, cfg a2a.PushNotificationConfig, payload any) error
}

// Server holds the API server components.
type Server struct {
	app      *fiber.App
	config   *config.Config
	agents   AgentRegistry
	runs     RunStore
	notifier Notifier
	logger   *slog.Logger
	tasks    taskBuilder

	// pending tracks background generations of non-blocking calls.
	pending sync.WaitGroup
}

// New creates a new API server. runs may be nil when nothing is recorded.
func New(cfg *config.Config, agents AgentRegistry, runs RunStore, log *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:               cfg.Name,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())

	// Request ID middleware: reuse X-Request-ID or generate a new one
	app.Use(func(c *fiber.Ctx) error {
		rid := c.Get(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Locals("request_id", rid)
		c.Set(requestIDHeader, rid)
		return c.Next()
	})

	app.Use(logger.New(logger.Config{
		Format: "${time} | ${status} | ${latency} | ${method} | ${path} | rid=${locals:request_id}\n",
	}))

	server := &Server{
		app:      app,
		config:   cfg,
		agents:   agents,
		runs:     runs,
		notifier: a2a.NewNotifier(nil),
		logger:   log,
		tasks:    taskBuilder{newID: uuid.NewString, now: time.Now},
	}

	server.setupRoutes()

	return server
}

// Start begins listening on the configured host and port.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("server listening", "address", addr)
	return s.app.Listen(addr)
}

// Run serves until ctx is done, then shuts down within grace. It returns
// only once pending webhook deliveries have finished or grace has expired,
// so callers may release shared resources afterwards.
func (s *Server) Run(ctx context.Context, grace time.Duration) error {
	served := make(chan error, 1)
	go func() { served <- s.Start() }()

	select {
	case err := <-served:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	err := s.Shutdown(shutdownCtx)
	if serveErr := <-served; serveErr != nil && err == nil {
		err = serveErr
	}
	return err
}

// Shutdown stops accepting requests, then waits for pending webhook
// deliveries until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}

	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pending deliveries interrupted: %w", ctx.Err())
	}
}
