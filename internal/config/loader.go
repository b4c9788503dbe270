package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if QUIZRELAY_CONFIG is set
//  3. env (prefix QUIZRELAY_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("QUIZRELAY_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: QUIZRELAY_ADDR, QUIZRELAY_KLAVIYO_API_KEY, ...
	// Map env keys like QUIZRELAY_LIST_ID -> list_id (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("QUIZRELAY_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "quizrelay_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configurations the relay cannot run with. The Klaviyo API
// key is the one setting without a sane default.
func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.KlaviyoAPIKey) == "":
		return fmt.Errorf("%w: klaviyo_api_key is required", ErrInvalidConfig)
	case c.KlaviyoBaseURL == "":
		return fmt.Errorf("%w: klaviyo_base_url must not be empty", ErrInvalidConfig)
	case c.HistoryCap <= 0:
		return fmt.Errorf("%w: history_cap must be positive", ErrInvalidConfig)
	case c.EventRetryAttempts < 0:
		return fmt.Errorf("%w: event_retry_attempts must not be negative", ErrInvalidConfig)
	}
	return nil
}
