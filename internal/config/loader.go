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

// Rule kinds recognized in badge configuration.
var knownRuleKinds = map[string]bool{
	"total_upvotes":         true,
	"total_views":           true,
	"project_count":         true,
	"projects_with_upvotes": true,
	"first_project":         true,
	"composite":             true,
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if VITRIN_CONFIG is set
//  3. env (prefix VITRIN_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("VITRIN_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: VITRIN_ADDR, VITRIN_QUEUE_SIZE, ...
	// Keys map to the koanf tags on the struct; underscores preserved.
	envProvider := env.Provider("VITRIN_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "vitrin_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the engine must not start with.
// Scoring parameters are never clamped: a negative weight or non-positive
// half-life is fatal.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.UpvoteWeight < 0:
		return fmt.Errorf("%w: upvote_weight must not be negative", ErrInvalidConfig)
	case c.ViewWeight < 0:
		return fmt.Errorf("%w: view_weight must not be negative", ErrInvalidConfig)
	case c.HalfLifeDays <= 0:
		return fmt.Errorf("%w: half_life_days must be positive", ErrInvalidConfig)
	case c.ViewDedupWindowMinutes <= 0:
		return fmt.Errorf("%w: view_dedup_window_minutes must be positive", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.MaxPageSize < 1:
		return fmt.Errorf("%w: max_page_size must be positive", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Badges))
	for i := range c.Badges {
		if err := validateBadgeRule(&c.Badges[i], true); err != nil {
			return err
		}
		if seen[c.Badges[i].ID] {
			return fmt.Errorf("%w: duplicate badge id %q", ErrInvalidConfig, c.Badges[i].ID)
		}
		seen[c.Badges[i].ID] = true
	}
	return nil
}

func validateBadgeRule(r *BadgeRule, topLevel bool) error {
	if topLevel && r.ID == "" {
		return fmt.Errorf("%w: badge id must not be empty", ErrInvalidConfig)
	}
	if !knownRuleKinds[r.Kind] {
		return fmt.Errorf("%w: unknown badge rule kind %q", ErrInvalidConfig, r.Kind)
	}
	if r.Bonus < 0 {
		return fmt.Errorf("%w: badge %q bonus must not be negative", ErrInvalidConfig, r.ID)
	}
	switch r.Kind {
	case "first_project":
		// No threshold.
	case "composite":
		if !topLevel {
			return fmt.Errorf("%w: composite rules must not nest", ErrInvalidConfig)
		}
		if len(r.Parts) < 2 {
			return fmt.Errorf("%w: composite badge %q needs at least two parts", ErrInvalidConfig, r.ID)
		}
		for i := range r.Parts {
			if err := validateBadgeRule(&r.Parts[i], false); err != nil {
				return err
			}
		}
	default:
		if r.Threshold < 1 {
			return fmt.Errorf("%w: badge %q threshold must be positive", ErrInvalidConfig, r.ID)
		}
	}
	return nil
}
