// Package notify fans out engine notifications to external consumers.
//
// The engine may emit the same logical event more than once, so
// consumers must deduplicate by (badge id, user id) or by
// (user id, timestamp). The engine only emits; it never sends
// user-facing notifications itself.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/vitrinhq/vitrin/pkg/logger"
	"github.com/vitrinhq/vitrin/pkg/metrics"
)

// Kind labels the notification union.
type Kind string

// Notification kinds.
const (
	KindBadgeAward Kind = "badge_award"
	KindRankChange Kind = "rank_change"
)

// Event is one notification. BadgeID is set for badge awards; OldRank
// and NewRank for rank changes.
type Event struct {
	Kind    Kind      `json:"kind"`
	UserID  string    `json:"user_id"`
	BadgeID string    `json:"badge_id,omitempty"`
	OldRank int       `json:"old_rank,omitempty"`
	NewRank int       `json:"new_rank,omitempty"`
	TS      time.Time `json:"ts"`
}

// Sink accepts notifications from the engine.
type Sink interface {
	// Emit delivers the event to all subscribers without blocking the
	// caller; events to saturated subscribers are dropped.
	Emit(ctx context.Context, e Event)
}

// Broadcaster is a channel-based Sink with multiple subscribers.
type Broadcaster struct {
	mu      sync.RWMutex
	subs    []chan Event
	closed  bool
	bufSize int
	logger  logger.Logger
}

// Option applies a configuration option to the Broadcaster.
type Option func(*Broadcaster)

// WithBufferSize sets each subscriber's channel buffer.
func WithBufferSize(n int) Option {
	return func(b *Broadcaster) {
		if n > 0 {
			b.bufSize = n
		}
	}
}

// NewBroadcaster constructs a Broadcaster.
func NewBroadcaster(opts ...Option) *Broadcaster {
	b := &Broadcaster{
		bufSize: 256,
		logger:  logger.Get().Named("notify"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe returns a channel receiving future notifications. After
// Close the returned channel is already closed.
func (b *Broadcaster) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, b.bufSize)
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Emit delivers the event to every subscriber. Saturated subscribers are
// skipped so notification fan-out can never stall event processing.
// Emits after Close are dropped; a worker finishing its shutdown window
// must not hit closed channels.
func (b *Broadcaster) Emit(ctx context.Context, e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	metrics.RecordNotification(string(e.Kind))
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.logger.Warn(ctx, "dropping notification for slow subscriber",
				logger.String("kind", string(e.Kind)),
				logger.String("userID", e.UserID),
			)
		}
	}
}

// Close closes all subscriber channels. Close is idempotent.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
