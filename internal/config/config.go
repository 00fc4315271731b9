// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file and env.
// - All validation happens at load time. Invalid scoring parameters are
//   fatal to startup, never silently clamped.
// - External errors must be wrapped via this package's error helpers.
package config

import "runtime"

// BadgeRule configures one badge definition. Kind selects a closed rule
// variant; Parts is only read for the composite kind.
type BadgeRule struct {
	// ID uniquely identifies the badge.
	ID string `koanf:"id"`

	// Label is the human-readable badge name.
	Label string `koanf:"label"`

	// Kind selects the rule variant: total_upvotes, total_views,
	// project_count, projects_with_upvotes, first_project, composite.
	Kind string `koanf:"kind"`

	// Threshold is the count the metric must reach. Ignored for
	// first_project and composite.
	Threshold int `koanf:"threshold"`

	// Bonus is the permanent score bonus granted with the badge.
	Bonus float64 `koanf:"bonus"`

	// Parts lists the sub-rules of a composite badge; all must hold.
	Parts []BadgeRule `koanf:"parts"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory activity event queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of event-processing workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the request-idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxPageSize caps GET /leaderboard?page_size.
	MaxPageSize int `koanf:"max_page_size"`

	// UpvoteWeight and ViewWeight scale each event's decayed contribution.
	UpvoteWeight float64 `koanf:"upvote_weight"`
	ViewWeight   float64 `koanf:"view_weight"`

	// HalfLifeDays is the exponential decay half-life applied to event ages.
	HalfLifeDays float64 `koanf:"half_life_days"`

	// ViewDedupWindowMinutes is the session window within which repeated
	// views by the same viewer on the same project are not recounted.
	ViewDedupWindowMinutes int `koanf:"view_dedup_window_minutes"`

	// APITokens lists session tokens accepted for leaderboard reads.
	// An empty list means every read is denied.
	APITokens []string `koanf:"api_tokens"`

	// Badges overrides the built-in badge definition set when non-empty.
	Badges []BadgeRule `koanf:"badges"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":9090",
		QueueSize:              100_000,
		WorkerCount:            runtime.NumCPU() * 4,
		DedupeSize:             500_000,
		MaxPageSize:            100,
		UpvoteWeight:           10,
		ViewWeight:             0.5,
		HalfLifeDays:           30,
		ViewDedupWindowMinutes: 30,
	}
}
