package leaderboard_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/vitrinhq/vitrin/internal/adapters/repository"
	activity "github.com/vitrinhq/vitrin/internal/domain/activity"
	leaderboard "github.com/vitrinhq/vitrin/internal/domain/leaderboard"
	scoring "github.com/vitrinhq/vitrin/internal/domain/scoring"
)

func TestBuilder_Build(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	newFixture := func() (*repository.MemStore, *activity.Aggregator, *leaderboard.Builder) {
		store := repository.NewMemStore()
		agg := activity.New(store)
		calc := scoring.New(scoring.WithWeights(10, 0.5), scoring.WithHalfLife(30))
		return store, agg, leaderboard.New(store, calc)
	}

	Convey("Given users with distinct scores", t, func() {
		_, agg, builder := newFixture()

		// alice: 2 upvotes, bob: 1 upvote, carol: none.
		So(mustPublish(ctx, agg, "alice", "pa", t0), ShouldBeNil)
		So(mustPublish(ctx, agg, "bob", "pb", t0), ShouldBeNil)
		So(mustPublish(ctx, agg, "carol", "pc", t0), ShouldBeNil)
		_, _ = agg.RecordUpvote(ctx, "v1", "pa", t0)
		_, _ = agg.RecordUpvote(ctx, "v2", "pa", t0)
		_, _ = agg.RecordUpvote(ctx, "v1", "pb", t0)

		Convey("When the first page is built", func() {
			entries, err := builder.Build(ctx, 0, 10, t0)
			So(err, ShouldBeNil)

			Convey("Then users sort by score descending with dense ranks", func() {
				So(entries, ShouldHaveLength, 3)
				So(entries[0].UserID, ShouldEqual, "alice")
				So(entries[1].UserID, ShouldEqual, "bob")
				So(entries[2].UserID, ShouldEqual, "carol")
				So(entries[0].Rank, ShouldEqual, 1)
				So(entries[1].Rank, ShouldEqual, 2)
				So(entries[2].Rank, ShouldEqual, 3)
			})
		})

		Convey("When pagination splits the board", func() {
			page0, err := builder.Build(ctx, 0, 2, t0)
			So(err, ShouldBeNil)
			page1, err := builder.Build(ctx, 1, 2, t0)
			So(err, ShouldBeNil)

			Convey("Then pages are disjoint and ranks continue", func() {
				So(page0, ShouldHaveLength, 2)
				So(page1, ShouldHaveLength, 1)
				So(page1[0].Rank, ShouldEqual, 3)
			})
		})

		Convey("When a page lies beyond the data", func() {
			entries, err := builder.Build(ctx, 5, 10, t0)

			Convey("Then the result is empty, not an error", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldBeEmpty)
			})
		})

		Convey("When the page parameters are invalid", func() {
			_, err := builder.Build(ctx, -1, 10, t0)
			So(err, ShouldEqual, leaderboard.ErrInvalidPage)
			_, err = builder.Build(ctx, 0, 0, t0)
			So(err, ShouldEqual, leaderboard.ErrInvalidPage)
		})
	})

	Convey("Given two users with identical scores and badges", t, func() {
		_, agg, builder := newFixture()

		// Same activity, different join times: earlier join wins the tie.
		So(mustPublish(ctx, agg, "early", "p1", t0), ShouldBeNil)
		So(mustPublish(ctx, agg, "late", "p2", t0.Add(time.Hour)), ShouldBeNil)
		_, _ = agg.RecordUpvote(ctx, "v1", "p1", t0.Add(2*time.Hour))
		_, _ = agg.RecordUpvote(ctx, "v1", "p2", t0.Add(2*time.Hour))

		Convey("When the board is built", func() {
			entries, err := builder.Build(ctx, 0, 10, t0.Add(3*time.Hour))
			So(err, ShouldBeNil)

			Convey("Then the earlier joiner ranks higher", func() {
				So(entries[0].UserID, ShouldEqual, "early")
				So(entries[1].UserID, ShouldEqual, "late")
			})

			Convey("And ranks stay unique", func() {
				So(entries[0].Rank, ShouldEqual, 1)
				So(entries[1].Rank, ShouldEqual, 2)
			})
		})
	})

	Convey("Given a total tie through score, badges, and join time", t, func() {
		_, agg, builder := newFixture()
		So(mustPublish(ctx, agg, "zeta", "pz", t0), ShouldBeNil)
		So(mustPublish(ctx, agg, "alpha", "pa", t0), ShouldBeNil)

		Convey("Then the lexically smaller id wins the final tie-break", func() {
			entries, err := builder.Build(ctx, 0, 10, t0)
			So(err, ShouldBeNil)
			So(entries[0].UserID, ShouldEqual, "alpha")
			So(entries[1].UserID, ShouldEqual, "zeta")
		})
	})
}

func TestBuilder_Freshen(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	Convey("Given a user with a stale score cache", t, func() {
		store := repository.NewMemStore()
		agg := activity.New(store)
		calc := scoring.New(scoring.WithWeights(10, 0.5), scoring.WithHalfLife(30))
		builder := leaderboard.New(store, calc)

		So(mustPublish(ctx, agg, "alice", "p1", t0), ShouldBeNil)
		_, _ = agg.RecordUpvote(ctx, "bob", "p1", t0)

		Convey("When the score is freshened", func() {
			score, err := builder.Freshen(ctx, "alice", t0)
			So(err, ShouldBeNil)
			So(score, ShouldAlmostEqual, 10, 1e-9)

			Convey("Then the cache is no longer stale", func() {
				u, _ := store.GetUser(ctx, "alice")
				So(u.Score.Stale, ShouldBeFalse)
				So(u.Score.Score, ShouldAlmostEqual, 10, 1e-9)
			})

			Convey("And freshening again returns the cached value", func() {
				again, err := builder.Freshen(ctx, "alice", t0.Add(24*time.Hour))
				So(err, ShouldBeNil)
				// Cache hit: as-of moved but the cached value is served.
				So(again, ShouldAlmostEqual, 10, 1e-9)
			})
		})

		Convey("When new activity lands after a freshen", func() {
			_, err := builder.Freshen(ctx, "alice", t0)
			So(err, ShouldBeNil)
			_, _ = agg.RecordUpvote(ctx, "carol", "p1", t0.Add(time.Minute))

			Convey("Then the cache goes stale and recomputes on next read", func() {
				u, _ := store.GetUser(ctx, "alice")
				So(u.Score.Stale, ShouldBeTrue)

				score, err := builder.Freshen(ctx, "alice", t0.Add(time.Minute))
				So(err, ShouldBeNil)
				So(score, ShouldBeGreaterThan, 15)
			})
		})
	})
}

func TestBuilder_Rank(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	Convey("Given a small board", t, func() {
		store := repository.NewMemStore()
		agg := activity.New(store)
		calc := scoring.New(scoring.WithWeights(10, 0.5), scoring.WithHalfLife(30))
		builder := leaderboard.New(store, calc)

		So(mustPublish(ctx, agg, "alice", "pa", t0), ShouldBeNil)
		So(mustPublish(ctx, agg, "bob", "pb", t0), ShouldBeNil)
		_, _ = agg.RecordUpvote(ctx, "v1", "pb", t0)

		Convey("When ranks are queried", func() {
			top, err := builder.Rank(ctx, "bob", t0)
			So(err, ShouldBeNil)
			So(top.Rank, ShouldEqual, 1)

			second, err := builder.Rank(ctx, "alice", t0)
			So(err, ShouldBeNil)
			So(second.Rank, ShouldEqual, 2)
		})

		Convey("When the user is unknown", func() {
			_, err := builder.Rank(ctx, "ghost", t0)
			So(err, ShouldEqual, repository.ErrUserNotFound)
		})
	})
}

func mustPublish(ctx context.Context, agg *activity.Aggregator, owner, project string, ts time.Time) error {
	_, err := agg.PublishProject(ctx, owner, project, ts)
	return err
}
