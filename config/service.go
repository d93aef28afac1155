package config

import (
	"fmt"

	"github.com/kbukum/fixturekit/logger"
)

// Base contains the fields every fixturekit config carries.
// Embed it with mapstructure squash:
//
//	type Config struct {
//	    config.Base `yaml:",inline" mapstructure:",squash"`
//	    CleanupOrder string `yaml:"cleanup_order" mapstructure:"cleanup_order"`
//	}
type Base struct {
	Name    string        `yaml:"name" mapstructure:"name"`
	Logging logger.Config `yaml:"logging" mapstructure:"logging"`
}

// GetBase returns the embedded Base. Promoted to embedding structs.
func (c *Base) GetBase() *Base {
	return c
}

// ApplyDefaults applies default values to the base configuration.
// Embedding structs call c.Base.ApplyDefaults() first.
func (c *Base) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "fixturekit"
	}
	c.Logging.ApplyDefaults()
}

// Validate validates the base configuration fields.
func (c *Base) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}

// NewLogger builds the logger described by the logging section.
func (c *Base) NewLogger() *logger.Logger {
	return logger.New(&c.Logging, c.Name)
}
