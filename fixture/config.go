package fixture

import (
	"fmt"

	"github.com/kbukum/fixturekit/config"
	"github.com/kbukum/fixturekit/validation"
)

// Cleanup orders.
const (
	CleanupReverse     = "reverse"
	CleanupDeclaration = "declaration"
)

// ConfigName is the base name of the fixture config file (fixture.yml) and
// the prefix of its environment variables (FIXTURE_*).
const ConfigName = "fixture"

// Config is the process-wide fixture configuration.
type Config struct {
	config.Base `yaml:",inline" mapstructure:",squash"`

	// CleanupOrder is reverse (default) or declaration.
	CleanupOrder string `yaml:"cleanup_order" mapstructure:"cleanup_order" validate:"oneof=reverse declaration"`
	// RunBodyAfterGenerateFailure runs the test body even when generation failed.
	RunBodyAfterGenerateFailure bool `yaml:"run_body_after_generate_failure" mapstructure:"run_body_after_generate_failure"`
	// SkipCleanupOnBodyFailure leaves generated data in place when the body fails.
	SkipCleanupOnBodyFailure bool `yaml:"skip_cleanup_on_body_failure" mapstructure:"skip_cleanup_on_body_failure"`
	// DisableInterception turns transactional boundaries into plain calls.
	DisableInterception bool `yaml:"disable_interception" mapstructure:"disable_interception"`

	// StateGenerator names a generator registered with the state package.
	StateGenerator        string         `yaml:"state_generator" mapstructure:"state_generator" validate:"required_with=StateGeneratorOptions"`
	StateGeneratorOptions map[string]any `yaml:"state_generator_options" mapstructure:"state_generator_options"`
}

// DefaultConfig returns a Config with defaults applied.
func DefaultConfig() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	c.Base.ApplyDefaults()
	if c.CleanupOrder == "" {
		c.CleanupOrder = CleanupReverse
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := c.Base.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("fixture config: %w", err)
	}
	return nil
}

// LoadConfig reads fixture.yml, .env.fixture and FIXTURE_* variables, then
// applies defaults and validates. A missing file yields the defaults.
func LoadConfig(opts ...config.LoaderOption) (*Config, error) {
	cfg := &Config{}
	if _, err := config.LoadConfig(ConfigName, cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
