package model

import "time"

// UpvoteRecord is one counted upvote on a project. The (voter, project)
// pair is unique for the lifetime of the project.
type UpvoteRecord struct {
	VoterID string
	TS      time.Time
}

// ViewRecord is one counted view. ViewerID is empty for anonymous views.
type ViewRecord struct {
	ViewerID string
	TS       time.Time
}

// Project holds a published project and its append-only activity logs.
// Upvotes and Views mirror the log lengths so hot reads skip the scan.
type Project struct {
	ID        string
	OwnerID   string
	CreatedAt time.Time
	Upvotes   int
	Views     int
	UpvoteLog []UpvoteRecord
	ViewLog   []ViewRecord
}

// BadgeAward records an irrevocable badge grant.
type BadgeAward struct {
	BadgeID   string    `json:"badge_id"`
	AwardedAt time.Time `json:"awarded_at"`
}

// ScoreRecord caches a derived composite score. Stale means the cached
// value predates some counted activity and must be recomputed before it
// is served.
type ScoreRecord struct {
	Score      float64
	ComputedAt time.Time
	Stale      bool
}

// User is a profile owner tracked by the engine. JoinedAt is fixed at
// first activity and participates in leaderboard tie-breaking.
type User struct {
	ID       string
	JoinedAt time.Time
	Awards   []BadgeAward
	Score    ScoreRecord
}

// HasBadge reports whether the user already holds the badge.
func (u User) HasBadge(badgeID string) bool {
	for _, a := range u.Awards {
		if a.BadgeID == badgeID {
			return true
		}
	}
	return false
}
