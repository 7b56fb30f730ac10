package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all daemon configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Backend API
	APIBaseURL     string        `envconfig:"LUMORA_API_BASE_URL" default:"https://api.lumora.app"`
	AttemptTimeout time.Duration `envconfig:"LUMORA_ATTEMPT_TIMEOUT" default:"30s"`

	// Retry overrides applied on top of the named policies. Zero means keep
	// the policy's own value.
	MaxAttempts       int           `envconfig:"LUMORA_MAX_ATTEMPTS"`
	BaseDelay         time.Duration `envconfig:"LUMORA_BASE_DELAY"`
	MaxDelay          time.Duration `envconfig:"LUMORA_MAX_DELAY"`
	BackoffMultiplier float64       `envconfig:"LUMORA_BACKOFF_MULTIPLIER"`
	PoliciesPath      string        `envconfig:"LUMORA_POLICIES_PATH"`

	// Token storage
	TokenDBPath string `envconfig:"LUMORA_TOKEN_DB" default:"lumora.db"`

	// Ops server
	OpsListenAddr string `envconfig:"OPS_LISTEN_ADDR" default:":8090"`
	OpsAPIKey     string `envconfig:"OPS_API_KEY"`

	// Periodic backend status probe
	StatusInterval time.Duration `envconfig:"STATUS_INTERVAL" default:"1m"`

	// Slack ops notifications (optional; daemon runs without Slack)
	SlackBotToken string `envconfig:"SLACK_BOT_TOKEN"`
	SlackChannel  string `envconfig:"SLACK_CHANNEL"`

	// Dev credential minting (lumoractl token issue)
	DevTokenSecret string `envconfig:"LUMORA_DEV_TOKEN_SECRET"`
}

// SlackEnabled returns true if Slack notifications are configured.
func (c *Config) SlackEnabled() bool {
	return c.SlackBotToken != "" && c.SlackChannel != ""
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}
