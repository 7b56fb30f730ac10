// Command lumorad runs the Lumora client daemon: it keeps a resilient client
// to the Lumora backend warm, probes backend status on an interval, and
// exposes diagnostics (probes, metrics, token state) over an ops API.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lumora-app/lumora-client/internal/client"
	"github.com/lumora-app/lumora-client/internal/config"
	"github.com/lumora-app/lumora-client/internal/health"
	"github.com/lumora-app/lumora-client/internal/metrics"
	"github.com/lumora-app/lumora-client/internal/ops"
	"github.com/lumora-app/lumora-client/internal/retry"
	"github.com/lumora-app/lumora-client/internal/slacknotify"
	"github.com/lumora-app/lumora-client/pkg/tokenstore"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("api_base_url", cfg.APIBaseURL).
		Str("ops_addr", cfg.OpsListenAddr).
		Bool("slack_enabled", cfg.SlackEnabled()).
		Msg("starting lumora client daemon")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Durable token storage + single-owner store
	storage, err := tokenstore.NewSQLiteStorage(cfg.TokenDBPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open token storage")
	}
	defer storage.Close()

	tokens := tokenstore.New(storage, logger)

	// Metrics
	m := metrics.New()

	// Retry policies: named defaults, env overrides, then the optional
	// policy file on top.
	standard, critical, advisory, err := buildPolicies(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid retry policy configuration")
	}

	// Observability sink: Slack when configured, structured log otherwise.
	var sink client.EventSink
	if cfg.SlackEnabled() {
		sink = slacknotify.New(cfg.SlackBotToken, cfg.SlackChannel, logger)
		logger.Info().Str("channel", cfg.SlackChannel).Msg("slack event notifications enabled")
	}

	opts := []client.Option{
		client.WithMetrics(m),
		client.WithAttemptTimeout(cfg.AttemptTimeout),
		client.WithStandardPolicy(standard),
		client.WithCriticalPolicy(critical),
		client.WithAdvisoryPolicy(advisory),
	}
	if sink != nil {
		opts = append(opts, client.WithEventSink(sink))
	}
	apiClient := client.New(cfg.APIBaseURL, tokens, logger, opts...)

	// Health checker
	checker := health.NewChecker(logger)
	checker.Register("token_storage", func(ctx context.Context) health.Status {
		if err := storage.Ping(ctx); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})
	checker.Register("api", func(ctx context.Context) health.Status {
		if _, err := apiClient.Status(ctx); err != nil {
			return health.StatusDegraded
		}
		return health.StatusOK
	})

	opsServer := ops.NewServer(ops.Config{
		ListenAddr: cfg.OpsListenAddr,
		APIKey:     cfg.OpsAPIKey,
	}, apiClient, tokens, checker, m, logger)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := opsServer.Start(); err != nil {
			logger.Error().Err(err).Msg("ops server error")
		}
	}()

	// Periodic backend status probe
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(cfg.StatusInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				report, err := apiClient.Status(ctx)
				if err != nil {
					logger.Warn().Err(err).Msg("backend status probe failed")
					continue
				}
				logger.Debug().Str("status", report.Status).Str("version", report.Version).Msg("backend status")
			}
		}
	}()

	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	cancel()

	if err := opsServer.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("ops server shutdown error")
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("all goroutines stopped")
	case <-time.After(15 * time.Second):
		logger.Warn().Msg("forced shutdown after timeout")
	}

	logger.Info().Msg("lumora client daemon stopped")
}

// buildPolicies layers env overrides and the optional policy file onto the
// named defaults.
func buildPolicies(cfg *config.Config) (standard, critical, advisory retry.Policy, err error) {
	standard, critical, advisory = retry.Standard(), retry.Critical(), retry.Advisory()

	env := cfg.EnvOverride()
	if standard, err = env.Apply(standard); err != nil {
		return
	}
	if critical, err = env.Apply(critical); err != nil {
		return
	}
	if advisory, err = env.Apply(advisory); err != nil {
		return
	}

	if cfg.PoliciesPath == "" {
		return
	}
	pf, ferr := config.LoadPolicies(cfg.PoliciesPath)
	if ferr != nil {
		err = ferr
		return
	}
	if standard, err = pf.Standard.Apply(standard); err != nil {
		return
	}
	if critical, err = pf.Critical.Apply(critical); err != nil {
		return
	}
	advisory, err = pf.Advisory.Apply(advisory)
	return
}
