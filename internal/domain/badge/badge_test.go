package badge_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	badge "github.com/vitrinhq/vitrin/internal/domain/badge"
	"github.com/vitrinhq/vitrin/internal/domain/model"
)

func upvotes(n int) []time.Time {
	ts := make([]time.Time, n)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range ts {
		ts[i] = now
	}
	return ts
}

func TestRule_Holds(t *testing.T) {
	Convey("Given the counting rule kinds", t, func() {
		snap := model.Snapshot{
			UserID: "u1",
			Projects: []model.ProjectMetrics{
				{ProjectID: "p1", UpvoteTimes: upvotes(7), ViewTimes: upvotes(40)},
				{ProjectID: "p2", ViewTimes: upvotes(70)},
				{ProjectID: "p3", UpvoteTimes: upvotes(3)},
			},
		}

		Convey("total_upvotes compares against the cross-project sum", func() {
			So(badge.Rule{Kind: badge.TotalUpvotes, Threshold: 10}.Holds(snap), ShouldBeTrue)
			So(badge.Rule{Kind: badge.TotalUpvotes, Threshold: 11}.Holds(snap), ShouldBeFalse)
		})

		Convey("total_views compares against the cross-project sum", func() {
			So(badge.Rule{Kind: badge.TotalViews, Threshold: 110}.Holds(snap), ShouldBeTrue)
			So(badge.Rule{Kind: badge.TotalViews, Threshold: 111}.Holds(snap), ShouldBeFalse)
		})

		Convey("project_count counts published projects", func() {
			So(badge.Rule{Kind: badge.ProjectCount, Threshold: 3}.Holds(snap), ShouldBeTrue)
			So(badge.Rule{Kind: badge.ProjectCount, Threshold: 4}.Holds(snap), ShouldBeFalse)
		})

		Convey("projects_with_upvotes ignores unloved projects", func() {
			So(badge.Rule{Kind: badge.ProjectsWithUpvotes, Threshold: 2}.Holds(snap), ShouldBeTrue)
			So(badge.Rule{Kind: badge.ProjectsWithUpvotes, Threshold: 3}.Holds(snap), ShouldBeFalse)
		})

		Convey("first_project holds from the first publish", func() {
			So(badge.Rule{Kind: badge.FirstProject}.Holds(snap), ShouldBeTrue)
			So(badge.Rule{Kind: badge.FirstProject}.Holds(model.Snapshot{UserID: "u2"}), ShouldBeFalse)
		})

		Convey("composite requires every part", func() {
			rule := badge.Rule{Kind: badge.Composite, Parts: []badge.Rule{
				{Kind: badge.TotalUpvotes, Threshold: 5},
				{Kind: badge.TotalViews, Threshold: 100},
			}}
			So(rule.Holds(snap), ShouldBeTrue)

			rule.Parts[1].Threshold = 500
			So(rule.Holds(snap), ShouldBeFalse)
		})

		Convey("an empty composite never holds", func() {
			So(badge.Rule{Kind: badge.Composite}.Holds(snap), ShouldBeFalse)
		})
	})
}

func TestEvaluator_Evaluate(t *testing.T) {
	Convey("Given an evaluator with the built-in badge set", t, func() {
		ev := badge.NewEvaluator()

		Convey("When a user reaches exactly ten upvotes", func() {
			snap := model.Snapshot{
				UserID: "u1",
				Projects: []model.ProjectMetrics{
					{ProjectID: "p1", UpvoteTimes: upvotes(10)},
				},
			}
			earned := ev.Evaluate(snap)

			Convey("Then the threshold badge is earned on the crossing event", func() {
				ids := make([]string, 0, len(earned))
				for _, d := range earned {
					ids = append(ids, d.ID)
				}
				So(ids, ShouldContain, "ten-upvotes")
				So(ids, ShouldContain, "first-project")
				So(ids, ShouldNotContain, "crowd-favorite") // no views yet
			})
		})

		Convey("When the user sits one upvote below the threshold", func() {
			snap := model.Snapshot{
				UserID: "u1",
				Projects: []model.ProjectMetrics{
					{ProjectID: "p1", UpvoteTimes: upvotes(9)},
				},
			}

			Convey("Then ten-upvotes is not earned", func() {
				for _, d := range ev.Evaluate(snap) {
					So(d.ID, ShouldNotEqual, "ten-upvotes")
				}
			})
		})

		Convey("When the user already holds a badge", func() {
			snap := model.Snapshot{
				UserID: "u1",
				Projects: []model.ProjectMetrics{
					{ProjectID: "p1", UpvoteTimes: upvotes(10)},
				},
				Badges: []model.BadgeAward{
					{BadgeID: "first-project"},
					{BadgeID: "ten-upvotes"},
				},
			}

			Convey("Then re-evaluation never re-earns it", func() {
				for _, d := range ev.Evaluate(snap) {
					So(d.ID, ShouldNotEqual, "first-project")
					So(d.ID, ShouldNotEqual, "ten-upvotes")
				}
			})
		})

		Convey("When metrics regress below an earned threshold", func() {
			// Badges held in the snapshot stay held; Evaluate only adds.
			snap := model.Snapshot{
				UserID: "u1",
				Badges: []model.BadgeAward{{BadgeID: "ten-upvotes"}},
			}

			Convey("Then nothing is revoked and nothing new is earned", func() {
				So(ev.Evaluate(snap), ShouldBeEmpty)
			})
		})

		Convey("The crowd-favorite composite needs both legs", func() {
			snap := model.Snapshot{
				UserID: "u1",
				Projects: []model.ProjectMetrics{
					{ProjectID: "p1", UpvoteTimes: upvotes(5), ViewTimes: upvotes(99)},
				},
				Badges: []model.BadgeAward{{BadgeID: "first-project"}},
			}
			for _, d := range ev.Evaluate(snap) {
				So(d.ID, ShouldNotEqual, "crowd-favorite")
			}

			snap.Projects[0].ViewTimes = upvotes(100)
			ids := make([]string, 0)
			for _, d := range ev.Evaluate(snap) {
				ids = append(ids, d.ID)
			}
			So(ids, ShouldContain, "crowd-favorite")
		})
	})

	Convey("Given an evaluator with custom definitions", t, func() {
		ev := badge.NewEvaluator(badge.WithDefinitions([]badge.Definition{
			{ID: "century", Label: "Century", Rule: badge.Rule{Kind: badge.TotalViews, Threshold: 100}, Bonus: 42},
		}))

		Convey("Then Bonuses exposes the custom mapping", func() {
			So(ev.Bonuses(), ShouldResemble, map[string]float64{"century": 42})
		})

		Convey("And the default set is fully replaced", func() {
			So(ev.Definitions(), ShouldHaveLength, 1)
		})
	})
}
