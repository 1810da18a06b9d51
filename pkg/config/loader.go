// Package config loads environment-driven configuration structs.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Validator is implemented by config structs that check themselves after parsing.
type Validator interface {
	Validate() error
}

// Load parses environment variables into cfg using its `env` tags and runs
// cfg.Validate when cfg implements Validator.
func Load(cfg any) error {
	return LoadWithEnvironment(cfg, nil)
}

// LoadWithEnvironment is like Load but reads from environment instead of the
// process environment when environment is non-nil.
func LoadWithEnvironment(cfg any, environment map[string]string) error {
	opts := env.Options{}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if v, ok := cfg.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
	}
	return nil
}
