// Package repository defines the entity store interface and errors.
//
// The store is the engine's stand-in for the external Data Store
// collaborator: key-based get/put of users and projects, no transactions.
// Atomicity of conflicting writes is the caller's concern; the engine's
// idempotency rules exist precisely so that non-transactional storage
// cannot corrupt derived state.
package repository

import (
	"context"
	"time"

	"github.com/vitrinhq/vitrin/internal/domain/model"
)

// Store provides key-based access to users and projects plus the
// derived-score cache the engine owns exclusively.
type Store interface {
	// GetUser returns a copy of the user. ErrUserNotFound if unknown.
	GetUser(ctx context.Context, id string) (model.User, error)

	// PutUser stores the user record, creating or replacing it.
	PutUser(ctx context.Context, u model.User) error

	// CreateUser stores the user only when the id is unknown, re-checking
	// existence under the store's write lock. Returns false when the user
	// already exists; the existing record is never touched.
	CreateUser(ctx context.Context, u model.User) (bool, error)

	// GetProject returns a copy of the project. ErrProjectNotFound if unknown.
	GetProject(ctx context.Context, id string) (model.Project, error)

	// PutProject stores the project record, creating or replacing it.
	// New projects are indexed under their owner.
	PutProject(ctx context.Context, p model.Project) error

	// UserSnapshot assembles a consistent metrics snapshot of one user:
	// join time, badge awards, and the event logs of every owned project.
	UserSnapshot(ctx context.Context, userID string) (model.Snapshot, error)

	// ListUserIDs returns the ids of all known users.
	ListUserIDs(ctx context.Context) []string

	// MarkStale flags the user's cached score as needing recomputation.
	MarkStale(ctx context.Context, userID string) error

	// AwardBadge appends a badge award exactly once. Returns false when
	// the user already holds the badge; awards are never revoked.
	AwardBadge(ctx context.Context, userID, badgeID string, ts time.Time) (bool, error)

	// SetScore writes the derived score cache. Only the engine's score
	// path may call this; the record is never authoritative.
	SetScore(ctx context.Context, userID string, score float64, asOf time.Time) error

	// UserCount and ProjectCount report store sizes for monitoring.
	UserCount(ctx context.Context) int
	ProjectCount(ctx context.Context) int
}
