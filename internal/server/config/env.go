package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// parseEnv overlays BB_* environment variables. Unset variables keep the
// current value.
func parseEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
