package activity_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/vitrinhq/vitrin/internal/adapters/repository"
	activity "github.com/vitrinhq/vitrin/internal/domain/activity"
	"github.com/vitrinhq/vitrin/internal/domain/model"
)

// gatedStore stalls the first user creation until released, holding open
// the window between two concurrent first publishes by one owner.
type gatedStore struct {
	*repository.MemStore
	arm     atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) CreateUser(ctx context.Context, u model.User) (bool, error) {
	if g.arm.CompareAndSwap(true, false) {
		close(g.entered)
		<-g.release
	}
	return g.MemStore.CreateUser(ctx, u)
}

func TestAggregator_PublishProject(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	Convey("Given an aggregator over an empty store", t, func() {
		store := repository.NewMemStore()
		agg := activity.New(store)

		Convey("When an owner publishes their first project", func() {
			counted, err := agg.PublishProject(ctx, "alice", "p1", t0)
			So(err, ShouldBeNil)
			So(counted, ShouldBeTrue)

			Convey("Then the project exists with the right owner", func() {
				p, err := store.GetProject(ctx, "p1")
				So(err, ShouldBeNil)
				So(p.OwnerID, ShouldEqual, "alice")
				So(p.CreatedAt, ShouldResemble, t0)
			})

			Convey("And the owner record was created at publish time", func() {
				u, err := store.GetUser(ctx, "alice")
				So(err, ShouldBeNil)
				So(u.JoinedAt, ShouldResemble, t0)
				So(u.Score.Stale, ShouldBeTrue)
			})

			Convey("When the same project id is published again", func() {
				counted, err := agg.PublishProject(ctx, "alice", "p1", t0.Add(time.Hour))
				So(err, ShouldBeNil)

				Convey("Then it is absorbed without error", func() {
					So(counted, ShouldBeFalse)
					p, _ := store.GetProject(ctx, "p1")
					So(p.CreatedAt, ShouldResemble, t0) // original survives
				})
			})
		})

		Convey("When the owner publishes a second project", func() {
			_, _ = agg.PublishProject(ctx, "alice", "p1", t0)
			counted, err := agg.PublishProject(ctx, "alice", "p2", t0.Add(time.Hour))
			So(err, ShouldBeNil)
			So(counted, ShouldBeTrue)

			Convey("Then the join time does not move", func() {
				u, _ := store.GetUser(ctx, "alice")
				So(u.JoinedAt, ShouldResemble, t0)
			})
		})
	})
}

func TestAggregator_ConcurrentFirstPublishes(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	Convey("Given two first publishes by the same owner racing", t, func() {
		store := &gatedStore{
			MemStore: repository.NewMemStore(),
			entered:  make(chan struct{}),
			release:  make(chan struct{}),
		}
		store.arm.Store(true)
		agg := activity.New(store)

		// The slow publish reads "no user" first and stalls. p1 and p2
		// hash to different lock stripes, so the fast publish proceeds.
		done := make(chan error, 1)
		go func() {
			_, err := agg.PublishProject(ctx, "alice", "p2", t0)
			done <- err
		}()
		<-store.entered

		counted, err := agg.PublishProject(ctx, "alice", "p1", t0)
		So(err, ShouldBeNil)
		So(counted, ShouldBeTrue)

		awarded, err := store.AwardBadge(ctx, "alice", "first-project", t0)
		So(err, ShouldBeNil)
		So(awarded, ShouldBeTrue)

		close(store.release)
		So(<-done, ShouldBeNil)

		Convey("Then the slow publish cannot erase the award", func() {
			u, err := store.GetUser(ctx, "alice")
			So(err, ShouldBeNil)
			So(u.HasBadge("first-project"), ShouldBeTrue)
			So(u.JoinedAt, ShouldResemble, t0)
		})

		Convey("And both projects exist under the owner", func() {
			for _, pid := range []string{"p1", "p2"} {
				p, err := store.GetProject(ctx, pid)
				So(err, ShouldBeNil)
				So(p.OwnerID, ShouldEqual, "alice")
			}
		})
	})
}

func TestAggregator_RecordUpvote(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	Convey("Given a published project", t, func() {
		store := repository.NewMemStore()
		agg := activity.New(store)
		_, err := agg.PublishProject(ctx, "alice", "p1", t0)
		So(err, ShouldBeNil)

		Convey("When a voter upvotes twice", func() {
			first, err := agg.RecordUpvote(ctx, "bob", "p1", t0.Add(time.Minute))
			So(err, ShouldBeNil)
			second, err := agg.RecordUpvote(ctx, "bob", "p1", t0.Add(2*time.Minute))
			So(err, ShouldBeNil)

			Convey("Then exactly one upvote is counted", func() {
				So(first, ShouldBeTrue)
				So(second, ShouldBeFalse)
				p, _ := store.GetProject(ctx, "p1")
				So(p.Upvotes, ShouldEqual, 1)
				So(p.UpvoteLog, ShouldHaveLength, 1)
			})
		})

		Convey("When distinct voters upvote", func() {
			for _, voter := range []string{"bob", "carol", "dave"} {
				counted, err := agg.RecordUpvote(ctx, voter, "p1", t0.Add(time.Minute))
				So(err, ShouldBeNil)
				So(counted, ShouldBeTrue)
			}

			Convey("Then every vote counts", func() {
				p, _ := store.GetProject(ctx, "p1")
				So(p.Upvotes, ShouldEqual, 3)
			})
		})

		Convey("When the project id is unknown", func() {
			_, err := agg.RecordUpvote(ctx, "bob", "ghost", t0)

			Convey("Then it is a validation error, not a silent drop", func() {
				So(err, ShouldEqual, repository.ErrProjectNotFound)
			})
		})
	})
}

func TestAggregator_RecordView(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	Convey("Given a published project and a 30-minute dedup window", t, func() {
		store := repository.NewMemStore()
		agg := activity.New(store, activity.WithDedupWindow(30*time.Minute))
		_, err := agg.PublishProject(ctx, "alice", "p1", t0)
		So(err, ShouldBeNil)

		Convey("When the same viewer views twice within the window", func() {
			first, err := agg.RecordView(ctx, "p1", "bob", t0)
			So(err, ShouldBeNil)
			second, err := agg.RecordView(ctx, "p1", "bob", t0.Add(29*time.Minute))
			So(err, ShouldBeNil)

			Convey("Then the second view is absorbed", func() {
				So(first, ShouldBeTrue)
				So(second, ShouldBeFalse)
				p, _ := store.GetProject(ctx, "p1")
				So(p.Views, ShouldEqual, 1)
			})
		})

		Convey("When the same viewer returns after the window", func() {
			_, _ = agg.RecordView(ctx, "p1", "bob", t0)
			counted, err := agg.RecordView(ctx, "p1", "bob", t0.Add(31*time.Minute))
			So(err, ShouldBeNil)

			Convey("Then the view counts again", func() {
				So(counted, ShouldBeTrue)
				p, _ := store.GetProject(ctx, "p1")
				So(p.Views, ShouldEqual, 2)
			})
		})

		Convey("When views are anonymous", func() {
			for i := 0; i < 5; i++ {
				counted, err := agg.RecordView(ctx, "p1", "", t0.Add(time.Duration(i)*time.Second))
				So(err, ShouldBeNil)
				So(counted, ShouldBeTrue)
			}

			Convey("Then no window applies", func() {
				p, _ := store.GetProject(ctx, "p1")
				So(p.Views, ShouldEqual, 5)
			})
		})

		Convey("When different viewers view within one window", func() {
			a, _ := agg.RecordView(ctx, "p1", "bob", t0)
			b, _ := agg.RecordView(ctx, "p1", "carol", t0.Add(time.Minute))

			Convey("Then both count", func() {
				So(a, ShouldBeTrue)
				So(b, ShouldBeTrue)
			})
		})
	})
}
