package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lumora-app/lumora-client/internal/retry"
)

// PolicyOverride is one named policy's deploy-time override. Empty fields
// keep the policy's built-in value. Delays use Go duration syntax ("500ms",
// "2s").
type PolicyOverride struct {
	MaxAttempts int     `yaml:"max_attempts"`
	BaseDelay   string  `yaml:"base_delay"`
	MaxDelay    string  `yaml:"max_delay"`
	Multiplier  float64 `yaml:"multiplier"`
}

// PolicyFile is the YAML shape for retry-policy overrides.
type PolicyFile struct {
	Standard *PolicyOverride `yaml:"standard"`
	Critical *PolicyOverride `yaml:"critical"`
	Advisory *PolicyOverride `yaml:"advisory"`
}

// LoadPolicies reads a policy override file.
func LoadPolicies(path string) (*PolicyFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}
	var pf PolicyFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("parsing policy file: %w", err)
	}
	return &pf, nil
}

// Apply layers the override onto p.
func (o *PolicyOverride) Apply(p retry.Policy) (retry.Policy, error) {
	if o == nil {
		return p, nil
	}
	if o.MaxAttempts > 0 {
		p.MaxAttempts = o.MaxAttempts
	}
	if o.BaseDelay != "" {
		d, err := time.ParseDuration(o.BaseDelay)
		if err != nil {
			return p, fmt.Errorf("invalid base_delay: %w", err)
		}
		p.BaseDelay = d
	}
	if o.MaxDelay != "" {
		d, err := time.ParseDuration(o.MaxDelay)
		if err != nil {
			return p, fmt.Errorf("invalid max_delay: %w", err)
		}
		p.MaxDelay = d
	}
	if o.Multiplier > 0 {
		p.Multiplier = o.Multiplier
	}
	return p.Normalize(), nil
}

// EnvOverride builds an override from the flat env-var retry settings.
func (c *Config) EnvOverride() *PolicyOverride {
	o := &PolicyOverride{MaxAttempts: c.MaxAttempts, Multiplier: c.BackoffMultiplier}
	if c.BaseDelay > 0 {
		o.BaseDelay = c.BaseDelay.String()
	}
	if c.MaxDelay > 0 {
		o.MaxDelay = c.MaxDelay.String()
	}
	return o
}
