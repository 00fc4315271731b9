// Package types contains common types used across the application
package types

// Entry represents a leaderboard entry.
type Entry struct {
	Rank       int     `json:"rank"`
	UserID     string  `json:"user_id"`
	Score      float64 `json:"score"`
	BadgeCount int     `json:"badge_count"`
}

// Stats is the engine state snapshot served on the stats endpoint.
// Counters and sizes are zero until the service starts.
type Stats struct {
	Started       bool  `json:"started"`
	Workers       int   `json:"workers"`
	QueueCapacity int   `json:"queue_capacity"`
	QueueLength   int   `json:"queue_length"`
	DedupeEntries int64 `json:"dedupe_entries"`
	Users         int   `json:"users"`
	Projects      int   `json:"projects"`
}
