// Package config loads configuration from the environment via struct tags.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load fills cfg from environment variables using its `env` tags. Nested
// structs are walked, so a config can be split per concern:
//
//	type Config struct {
//	    HTTPPort int    `env:"HTTP_PORT" envDefault:"8080"`
//	    APIKey   string `env:"API_KEY,notEmpty"`
//	}
//
// A missing required variable or an unparsable value fails the whole load.
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("load config from environment: %w", err)
	}
	return nil
}
