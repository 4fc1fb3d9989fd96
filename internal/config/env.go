package config

import (
	"errors"
	"os"
)

// loadFromEnv overrides config from TASKCAL_* environment variables.
// Empty variables are ignored.
func loadFromEnv(cfg *Config, sources map[string]ConfigSource) error {
	var errs []error
	for _, s := range settings {
		if s.env == "" {
			continue
		}
		v := os.Getenv(s.env)
		if v == "" {
			continue
		}
		if err := s.set(cfg, v); err != nil {
			errs = append(errs, err)
			continue
		}
		if sources != nil {
			sources[s.key] = SourceEnv
		}
	}
	return errors.Join(errs...)
}
