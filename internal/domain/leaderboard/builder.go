// Package leaderboard orders users by composite score and paginates the
// result.
//
// Construction reads each user's score "as of" one timestamp, lazily
// recomputing stale caches first. Ties are broken deterministically so
// the ordering is total: higher badge count, then earlier join, then
// identifier. Ranks are dense and unique.
package leaderboard

import (
	"context"
	"sort"
	"time"

	"github.com/vitrinhq/vitrin/internal/adapters/repository"
	"github.com/vitrinhq/vitrin/internal/domain/scoring"
	"github.com/vitrinhq/vitrin/internal/domain/types"
	"github.com/vitrinhq/vitrin/pkg/metrics"
)

// Builder produces ranked leaderboard pages from the store.
type Builder struct {
	store repository.Store
	calc  *scoring.Calculator
}

// New constructs a Builder.
func New(store repository.Store, calc *scoring.Calculator) *Builder {
	return &Builder{store: store, calc: calc}
}

// row carries the sort keys alongside the public entry fields.
type row struct {
	userID     string
	score      float64
	badgeCount int
	joinedAt   time.Time
}

// Freshen recomputes the user's score when the cache is stale and
// returns the fresh value. Concurrent recomputation for the same user
// races harmlessly to the same result; last write wins.
func (b *Builder) Freshen(ctx context.Context, userID string, asOf time.Time) (float64, error) {
	u, err := b.store.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !u.Score.Stale {
		return u.Score.Score, nil
	}

	start := time.Now()
	snap, err := b.store.UserSnapshot(ctx, userID)
	if err != nil {
		return 0, err
	}
	score := b.calc.Compute(snap, asOf)
	if err := b.store.SetScore(ctx, userID, score, asOf); err != nil {
		return 0, err
	}
	metrics.RecordScoreRecompute()
	metrics.RecordScoreRecomputeLatency(float64(time.Since(start).Milliseconds()))
	return score, nil
}

// Build returns one page of the leaderboard as of the given timestamp.
// Requesting a page beyond the data yields an empty slice, not an error.
func (b *Builder) Build(ctx context.Context, page, pageSize int, asOf time.Time) ([]types.Entry, error) {
	if page < 0 || pageSize < 1 {
		return nil, ErrInvalidPage
	}
	rows, err := b.order(ctx, asOf)
	if err != nil {
		return nil, err
	}

	lo := page * pageSize
	if lo >= len(rows) {
		return []types.Entry{}, nil
	}
	hi := lo + pageSize
	if hi > len(rows) {
		hi = len(rows)
	}

	out := make([]types.Entry, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, types.Entry{
			Rank:       i + 1, // dense, unique: the order below is total
			UserID:     rows[i].userID,
			Score:      rows[i].score,
			BadgeCount: rows[i].badgeCount,
		})
	}
	return out, nil
}

// Rank returns a single user's entry under the same total order.
func (b *Builder) Rank(ctx context.Context, userID string, asOf time.Time) (types.Entry, error) {
	if _, err := b.store.GetUser(ctx, userID); err != nil {
		return types.Entry{}, err
	}
	rows, err := b.order(ctx, asOf)
	if err != nil {
		return types.Entry{}, err
	}
	for i, r := range rows {
		if r.userID == userID {
			return types.Entry{Rank: i + 1, UserID: r.userID, Score: r.score, BadgeCount: r.badgeCount}, nil
		}
	}
	return types.Entry{}, repository.ErrUserNotFound
}

// order freshens every stale score and sorts all users. The sort key
// sequence guarantees a strict total order: score desc, badge count
// desc, join time asc, user id asc.
func (b *Builder) order(ctx context.Context, asOf time.Time) ([]row, error) {
	start := time.Now()
	defer func() {
		metrics.RecordLeaderboardBuildLatency(float64(time.Since(start).Milliseconds()))
	}()

	ids := b.store.ListUserIDs(ctx)
	rows := make([]row, 0, len(ids))
	for _, id := range ids {
		score, err := b.Freshen(ctx, id, asOf)
		if err != nil {
			return nil, err
		}
		u, err := b.store.GetUser(ctx, id)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row{
			userID:     id,
			score:      score,
			badgeCount: len(u.Awards),
			joinedAt:   u.JoinedAt,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		a, c := rows[i], rows[j]
		if a.score != c.score {
			return a.score > c.score
		}
		if a.badgeCount != c.badgeCount {
			return a.badgeCount > c.badgeCount
		}
		if !a.joinedAt.Equal(c.joinedAt) {
			return a.joinedAt.Before(c.joinedAt)
		}
		return a.userID < c.userID
	})
	return rows, nil
}
