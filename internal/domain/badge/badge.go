// Package badge evaluates achievement rules against metric snapshots and
// decides which badges a user has newly earned.
//
// Awarding is a monotonic, one-way transition: once held, a badge is
// never revoked even if the underlying metrics later regress, so
// user-visible achievements are never retroactively taken away.
// Definitions are immutable configuration; awards are per-user facts
// persisted by the caller.
package badge

import "github.com/vitrinhq/vitrin/internal/domain/model"

// Definition is one static badge: id, human label, rule, score bonus.
type Definition struct {
	ID    string
	Label string
	Rule  Rule
	Bonus float64
}

// Defaults returns the built-in badge set, in evaluation order.
func Defaults() []Definition {
	return []Definition{
		{
			ID:    "first-project",
			Label: "First Steps",
			Rule:  Rule{Kind: FirstProject},
			Bonus: 5,
		},
		{
			ID:    "ten-upvotes",
			Label: "Crowd Pleaser",
			Rule:  Rule{Kind: TotalUpvotes, Threshold: 10},
			Bonus: 10,
		},
		{
			ID:    "triple-threat",
			Label: "Triple Threat",
			Rule:  Rule{Kind: ProjectsWithUpvotes, Threshold: 3},
			Bonus: 15,
		},
		{
			ID:    "crowd-favorite",
			Label: "Crowd Favorite",
			Rule: Rule{Kind: Composite, Parts: []Rule{
				{Kind: TotalUpvotes, Threshold: 5},
				{Kind: TotalViews, Threshold: 100},
			}},
			Bonus: 20,
		},
	}
}

// Evaluator holds an ordered definition set and evaluates it against
// snapshots. Safe for concurrent use; it carries no mutable state.
type Evaluator struct {
	defs []Definition
}

// Option applies a configuration option to the Evaluator.
type Option func(*Evaluator)

// WithDefinitions replaces the default badge set.
func WithDefinitions(defs []Definition) Option {
	return func(e *Evaluator) {
		if len(defs) > 0 {
			e.defs = append([]Definition(nil), defs...)
		}
	}
}

// NewEvaluator constructs an Evaluator with the default badge set.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{defs: Defaults()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate returns the definitions newly earned by the snapshot: rules
// that hold for badges the user does not already have, in definition
// order. Re-evaluating an already-held badge is a no-op.
func (e *Evaluator) Evaluate(snap model.Snapshot) []Definition {
	var earned []Definition
	for _, def := range e.defs {
		if snap.HasBadge(def.ID) {
			continue
		}
		if def.Rule.Holds(snap) {
			earned = append(earned, def)
		}
	}
	return earned
}

// Definitions returns a copy of the configured badge set.
func (e *Evaluator) Definitions() []Definition {
	return append([]Definition(nil), e.defs...)
}

// Bonuses returns the badge id -> bonus mapping for the score calculator.
func (e *Evaluator) Bonuses() map[string]float64 {
	m := make(map[string]float64, len(e.defs))
	for _, def := range e.defs {
		m[def.ID] = def.Bonus
	}
	return m
}
