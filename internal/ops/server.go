// Package ops serves the diagnostics API for the client daemon: probes,
// Prometheus metrics, backend status, and token inspection.
package ops

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lumora-app/lumora-client/internal/client"
	"github.com/lumora-app/lumora-client/internal/health"
	"github.com/lumora-app/lumora-client/internal/metrics"
	"github.com/lumora-app/lumora-client/pkg/tokenstore"
)

// Config holds configuration for the ops server.
type Config struct {
	ListenAddr string
	// APIKey guards the /api/v1 group when set. Probe and metrics endpoints
	// are always open.
	APIKey string
}

// Server is the diagnostics Fiber application.
type Server struct {
	app     *fiber.App
	client  *client.Client
	tokens  *tokenstore.Store
	checker *health.Checker
	logger  zerolog.Logger
	config  Config
}

// NewServer creates and configures the ops server.
func NewServer(
	cfg Config,
	apiClient *client.Client,
	tokens *tokenstore.Store,
	checker *health.Checker,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	s := &Server{
		app:     app,
		client:  apiClient,
		tokens:  tokens,
		checker: checker,
		logger:  logger.With().Str("component", "ops_server").Logger(),
		config:  cfg,
	}

	app.Use(recover.New())
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Request-ID", uuid.NewString())
		return c.Next()
	})

	app.Get("/healthz", s.liveness)
	app.Get("/readyz", s.readiness)
	if m != nil {
		app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	v1 := app.Group("/api/v1")
	if cfg.APIKey != "" {
		v1.Use(s.requireAPIKey)
	}
	v1.Get("/status", s.status)
	v1.Get("/token", s.tokenStatus)
	v1.Delete("/token", s.tokenClear)

	return s
}

func (s *Server) requireAPIKey(c *fiber.Ctx) error {
	if c.Get("X-API-Key") != s.config.APIKey {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid api key"})
	}
	return c.Next()
}

func (s *Server) liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) readiness(c *fiber.Ctx) error {
	results := s.checker.RunAll(c.Context())
	for _, status := range results {
		if status == health.StatusDown {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "not_ready",
				"checks": results,
			})
		}
	}
	return c.JSON(fiber.Map{"status": "ready", "checks": results})
}

// status probes the backend through the resilient client and renders either
// the report or the canonical error as-is.
func (s *Server) status(c *fiber.Ctx) error {
	report, err := s.client.Status(c.Context())
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(renderError(err))
	}
	return c.JSON(report)
}

func (s *Server) tokenStatus(c *fiber.Ctx) error {
	_, present := s.tokens.Get(c.Context())
	return c.JSON(fiber.Map{"present": present})
}

func (s *Server) tokenClear(c *fiber.Ctx) error {
	if err := s.tokens.Clear(c.Context()); err != nil {
		s.logger.Error().Err(err).Msg("token clear failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "clear failed"})
	}
	s.logger.Info().Msg("token cleared via ops API")
	return c.JSON(fiber.Map{"cleared": true})
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = ":8090"
	}
	s.logger.Info().Str("addr", addr).Msg("ops server starting")
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("ops server shutting down")
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}
