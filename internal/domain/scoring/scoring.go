// Package scoring computes a user's composite score from a metrics
// snapshot.
//
// The computation is a pure function of (snapshot, asOf): no wall-clock
// reads, no randomness. Two invocations with the same inputs yield
// bit-identical scores, and recomputation is idempotent.
package scoring

import (
	"math"
	"time"

	"github.com/vitrinhq/vitrin/internal/domain/model"
)

// Default scoring configuration constants.
const (
	defaultUpvoteWeight = 10.0
	defaultViewWeight   = 0.5
	defaultHalfLifeDays = 30.0

	hoursPerDay = 24
)

// Calculator derives composite scores. Weights and the decay half-life
// are configuration, not hardcoded constants; badge bonuses apply
// permanently once awarded.
type Calculator struct {
	upvoteWeight float64
	viewWeight   float64
	halfLifeDays float64
	bonuses      map[string]float64 // badge id -> score bonus
}

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithWeights sets the per-upvote and per-view weights.
func WithWeights(upvote, view float64) Option {
	return func(c *Calculator) {
		if upvote >= 0 {
			c.upvoteWeight = upvote
		}
		if view >= 0 {
			c.viewWeight = view
		}
	}
}

// WithHalfLife sets the decay half-life in days.
func WithHalfLife(days float64) Option {
	return func(c *Calculator) {
		if days > 0 {
			c.halfLifeDays = days
		}
	}
}

// WithBadgeBonuses sets the badge id -> bonus mapping.
func WithBadgeBonuses(bonuses map[string]float64) Option {
	return func(c *Calculator) {
		c.bonuses = make(map[string]float64, len(bonuses))
		for id, b := range bonuses {
			c.bonuses[id] = b
		}
	}
}

// New constructs a Calculator with default configuration.
func New(opts ...Option) *Calculator {
	c := &Calculator{
		upvoteWeight: defaultUpvoteWeight,
		viewWeight:   defaultViewWeight,
		halfLifeDays: defaultHalfLifeDays,
		bonuses:      make(map[string]float64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compute returns the composite score for the snapshot as of the given
// timestamp:
//
//	score = Σ upvoteWeight·decay(age) + Σ viewWeight·decay(age) + Σ bonus
//
// where decay is an exponential half-life so an event loses half its
// weight every halfLifeDays and asymptotically contributes near zero but
// never negative.
func (c *Calculator) Compute(snap model.Snapshot, asOf time.Time) float64 {
	var score float64
	for _, p := range snap.Projects {
		for _, ts := range p.UpvoteTimes {
			score += c.upvoteWeight * c.decay(asOf.Sub(ts))
		}
		for _, ts := range p.ViewTimes {
			score += c.viewWeight * c.decay(asOf.Sub(ts))
		}
	}
	for _, a := range snap.Badges {
		score += c.bonuses[a.BadgeID]
	}
	return score
}

// decay returns 2^(-age/halfLife). Events stamped after asOf contribute
// at full weight: the age clamps to zero rather than amplifying.
func (c *Calculator) decay(age time.Duration) float64 {
	days := age.Hours() / hoursPerDay
	if days < 0 {
		days = 0
	}
	return math.Exp2(-days / c.halfLifeDays)
}
