package model

import "time"

// ProjectMetrics is the per-project slice of a snapshot: event
// timestamps only, enough to recompute a decayed score without touching
// the store again.
type ProjectMetrics struct {
	ProjectID   string
	CreatedAt   time.Time
	UpvoteTimes []time.Time
	ViewTimes   []time.Time
}

// Snapshot is a consistent point-in-time view of one user's metrics.
// Scoring and badge evaluation both read snapshots, never live store
// state, so one event application sees one coherent world.
type Snapshot struct {
	UserID   string
	JoinedAt time.Time
	Projects []ProjectMetrics
	Badges   []BadgeAward
}

// TotalUpvotes counts upvotes across all of the user's projects.
func (s Snapshot) TotalUpvotes() int {
	n := 0
	for _, p := range s.Projects {
		n += len(p.UpvoteTimes)
	}
	return n
}

// TotalViews counts views across all of the user's projects.
func (s Snapshot) TotalViews() int {
	n := 0
	for _, p := range s.Projects {
		n += len(p.ViewTimes)
	}
	return n
}

// ProjectCount returns the number of published projects.
func (s Snapshot) ProjectCount() int {
	return len(s.Projects)
}

// ProjectsWithUpvotes counts projects holding at least one upvote.
func (s Snapshot) ProjectsWithUpvotes() int {
	n := 0
	for _, p := range s.Projects {
		if len(p.UpvoteTimes) > 0 {
			n++
		}
	}
	return n
}

// HasBadge reports whether the snapshot already includes the badge.
func (s Snapshot) HasBadge(badgeID string) bool {
	for _, a := range s.Badges {
		if a.BadgeID == badgeID {
			return true
		}
	}
	return false
}
