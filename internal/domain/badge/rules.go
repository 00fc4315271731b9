package badge

import "github.com/vitrinhq/vitrin/internal/domain/model"

// RuleKind enumerates the closed set of rule variants. Badges are tagged
// rule variants over a fixed snapshot shape rather than arbitrary
// executable predicates, which keeps evaluation total and auditable.
type RuleKind string

// Recognized rule kinds.
const (
	TotalUpvotes        RuleKind = "total_upvotes"
	TotalViews          RuleKind = "total_views"
	ProjectCount        RuleKind = "project_count"
	ProjectsWithUpvotes RuleKind = "projects_with_upvotes"
	FirstProject        RuleKind = "first_project"
	Composite           RuleKind = "composite"
)

// Rule is a pure predicate over a user's metrics snapshot. Threshold is
// read by the counting kinds; Parts only by Composite, where every part
// must hold.
type Rule struct {
	Kind      RuleKind
	Threshold int
	Parts     []Rule
}

// Holds evaluates the rule against the snapshot.
func (r Rule) Holds(snap model.Snapshot) bool {
	switch r.Kind {
	case TotalUpvotes:
		return snap.TotalUpvotes() >= r.Threshold
	case TotalViews:
		return snap.TotalViews() >= r.Threshold
	case ProjectCount:
		return snap.ProjectCount() >= r.Threshold
	case ProjectsWithUpvotes:
		return snap.ProjectsWithUpvotes() >= r.Threshold
	case FirstProject:
		return snap.ProjectCount() >= 1
	case Composite:
		for _, p := range r.Parts {
			if !p.Holds(snap) {
				return false
			}
		}
		return len(r.Parts) > 0
	default:
		return false
	}
}
