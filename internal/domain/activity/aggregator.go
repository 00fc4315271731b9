// Package activity maintains per-project running counts of upvotes and
// views and is the only write path into the entity store.
//
// All three operations are idempotent. Duplicate activity is absorbed as
// a no-op (counted=false, nil error) because clients may legitimately
// retry; unknown ids are validation errors. Counted mutations mark the
// owning user's score cache stale but never recompute it.
package activity

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/vitrinhq/vitrin/internal/adapters/repository"
	"github.com/vitrinhq/vitrin/internal/domain/model"
)

// Default aggregator configuration constants.
const (
	defaultDedupWindow = 30 * time.Minute
	defaultStripeCount = 64
)

// Aggregator applies activity to the store with per-project atomicity.
// A striped lock keyed by project id serializes conflicting writes on the
// same project; writes on different projects never contend.
type Aggregator struct {
	store       repository.Store
	stripes     []sync.Mutex
	dedupWindow time.Duration
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithDedupWindow sets the view dedup window.
func WithDedupWindow(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.dedupWindow = d
		}
	}
}

// WithStripeCount sets the number of project lock stripes.
func WithStripeCount(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.stripes = make([]sync.Mutex, n)
		}
	}
}

// New constructs an Aggregator over the given store.
func New(store repository.Store, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:       store,
		stripes:     make([]sync.Mutex, defaultStripeCount),
		dedupWindow: defaultDedupWindow,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Aggregator) lockProject(projectID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(projectID))
	return &a.stripes[h.Sum32()%uint32(len(a.stripes))]
}

// PublishProject creates the project and, on first activity, its owner.
// Re-publishing an existing project id is a no-op (created=false).
func (a *Aggregator) PublishProject(ctx context.Context, ownerID, projectID string, ts time.Time) (bool, error) {
	mu := a.lockProject(projectID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := a.store.GetProject(ctx, projectID); err == nil {
		return false, nil
	}

	// The stripe lock is per project, so two first publishes by the same
	// owner are not serialized here. Creation must be put-if-absent in
	// the store or the loser would overwrite awards already granted.
	owner := model.User{
		ID:       ownerID,
		JoinedAt: ts,
		Score:    model.ScoreRecord{Stale: true},
	}
	if _, err := a.store.CreateUser(ctx, owner); err != nil {
		return false, err
	}

	p := model.Project{ID: projectID, OwnerID: ownerID, CreatedAt: ts}
	if err := a.store.PutProject(ctx, p); err != nil {
		return false, err
	}
	return true, a.store.MarkStale(ctx, ownerID)
}

// RecordUpvote appends an upvote unless the (voter, project) pair already
// voted. The second attempt returns counted=false, not an error.
func (a *Aggregator) RecordUpvote(ctx context.Context, voterID, projectID string, ts time.Time) (bool, error) {
	mu := a.lockProject(projectID)
	mu.Lock()
	defer mu.Unlock()

	p, err := a.store.GetProject(ctx, projectID)
	if err != nil {
		return false, err
	}
	for _, rec := range p.UpvoteLog {
		if rec.VoterID == voterID {
			return false, nil // already counted
		}
	}
	p.UpvoteLog = append(p.UpvoteLog, model.UpvoteRecord{VoterID: voterID, TS: ts})
	p.Upvotes++
	if err := a.store.PutProject(ctx, p); err != nil {
		return false, err
	}
	return true, a.store.MarkStale(ctx, p.OwnerID)
}

// RecordView appends a view. When viewerID is set, repeated views on the
// same project within the dedup window are absorbed; anonymous views are
// always counted. Views are append-only and never retracted.
func (a *Aggregator) RecordView(ctx context.Context, projectID, viewerID string, ts time.Time) (bool, error) {
	mu := a.lockProject(projectID)
	mu.Lock()
	defer mu.Unlock()

	p, err := a.store.GetProject(ctx, projectID)
	if err != nil {
		return false, err
	}
	if viewerID != "" {
		for i := len(p.ViewLog) - 1; i >= 0; i-- {
			rec := p.ViewLog[i]
			if rec.ViewerID != viewerID {
				continue
			}
			if absDuration(ts.Sub(rec.TS)) < a.dedupWindow {
				return false, nil // within session window
			}
		}
	}
	p.ViewLog = append(p.ViewLog, model.ViewRecord{ViewerID: viewerID, TS: ts})
	p.Views++
	if err := a.store.PutProject(ctx, p); err != nil {
		return false, err
	}
	return true, a.store.MarkStale(ctx, p.OwnerID)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
