// Package model contains domain entities and events passed between layers.
package model

import "time"

// EventKind discriminates the activity event union.
type EventKind string

// Activity event kinds accepted by the write API.
const (
	KindUpvote  EventKind = "upvote"
	KindView    EventKind = "view"
	KindPublish EventKind = "publish"
)

// ActivityEvent represents one raw activity submitted by clients.
// ActorID is the voter for upvotes, the (optional) viewer for views, and
// the owner for publishes.
type ActivityEvent struct {
	EventID   string    // unique id for request idempotency
	Kind      EventKind // upvote | view | publish
	ActorID   string    // voter / viewer / owner
	ProjectID string    // subject project
	TS        time.Time // event timestamp
}

// Valid reports whether the event carries the fields its kind requires.
// Views may omit ActorID (anonymous view); everything else is mandatory.
func (e ActivityEvent) Valid() bool {
	if e.ProjectID == "" || e.TS.IsZero() {
		return false
	}
	switch e.Kind {
	case KindUpvote, KindPublish:
		return e.ActorID != ""
	case KindView:
		return true
	default:
		return false
	}
}
