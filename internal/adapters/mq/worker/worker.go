// Package worker drains the activity queue and applies events: aggregate
// counts, evaluate badges, emit notifications. Score recomputation stays
// lazy; applying an event only marks the owner's cache stale.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/vitrinhq/vitrin/internal/adapters/notify"
	"github.com/vitrinhq/vitrin/internal/adapters/repository"
	"github.com/vitrinhq/vitrin/internal/domain/badge"
	"github.com/vitrinhq/vitrin/internal/domain/model"
	"github.com/vitrinhq/vitrin/internal/domain/types"
	"github.com/vitrinhq/vitrin/pkg/logger"
	"github.com/vitrinhq/vitrin/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
)

// Event is what workers read off the queue.
type Event = model.ActivityEvent

// Applier applies raw activity to the metrics aggregator.
type Applier interface {
	PublishProject(ctx context.Context, ownerID, projectID string, ts time.Time) (bool, error)
	RecordUpvote(ctx context.Context, voterID, projectID string, ts time.Time) (bool, error)
	RecordView(ctx context.Context, projectID, viewerID string, ts time.Time) (bool, error)
}

// Entities is the store subset workers read and award through.
type Entities interface {
	GetProject(ctx context.Context, id string) (model.Project, error)
	UserSnapshot(ctx context.Context, userID string) (model.Snapshot, error)
	AwardBadge(ctx context.Context, userID, badgeID string, ts time.Time) (bool, error)
}

// Evaluator decides which badges a snapshot newly earns.
type Evaluator interface {
	Evaluate(snap model.Snapshot) []badge.Definition
}

// Ranker resolves a user's current leaderboard entry. Optional: when
// set, workers emit rank-change notifications.
type Ranker interface {
	Rank(ctx context.Context, userID string, asOf time.Time) (types.Entry, error)
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// InMemoryWorker processes events from the queue.
type InMemoryWorker struct {
	queue     Queue
	applier   Applier
	entities  Entities
	evaluator Evaluator
	ranker    Ranker
	sink      notify.Sink
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(q Queue, applier Applier, entities Entities, evaluator Evaluator, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		applier:   applier,
		entities:  entities,
		evaluator: evaluator,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop until ctx is canceled.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	eventChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if err := w.processEvent(ctx, event); err != nil {
				w.logger.Error(ctx, "error processing event", logger.Error(err))
			}
		}
	}
}

// processEvent applies a single activity event end to end.
func (w *InMemoryWorker) processEvent(ctx context.Context, event Event) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	ownerID, counted, err := w.apply(ctx, event)
	if err != nil {
		metrics.RecordWorkerError()
		if errors.Is(err, repository.ErrProjectNotFound) || errors.Is(err, repository.ErrUserNotFound) {
			// Validation races past the API check are absorbed, not fatal.
			w.logger.Warn(ctx, "dropping event for unknown entity",
				logger.String("eventID", event.EventID),
				logger.String("projectID", event.ProjectID),
			)
			return nil
		}
		return fmt.Errorf("failed to apply event %s: %w", event.EventID, err)
	}
	if !counted {
		metrics.RecordEventDuplicate()
		return nil
	}
	metrics.RecordEventProcessed()

	var oldRank int
	if w.ranker != nil {
		if entry, err := w.ranker.Rank(ctx, ownerID, event.TS); err == nil {
			oldRank = entry.Rank
		}
	}

	if err := w.awardBadges(ctx, ownerID, event.TS); err != nil {
		metrics.RecordWorkerError()
		return fmt.Errorf("badge evaluation failed for event %s: %w", event.EventID, err)
	}

	w.notifyRankChange(ctx, ownerID, event.TS, oldRank)
	return nil
}

// apply dispatches on the event kind and returns the id of the user
// whose metrics changed.
func (w *InMemoryWorker) apply(ctx context.Context, event Event) (string, bool, error) {
	switch event.Kind {
	case model.KindPublish:
		counted, err := w.applier.PublishProject(ctx, event.ActorID, event.ProjectID, event.TS)
		return event.ActorID, counted, err
	case model.KindUpvote:
		counted, err := w.applier.RecordUpvote(ctx, event.ActorID, event.ProjectID, event.TS)
		if err != nil {
			return "", false, err
		}
		return w.projectOwner(ctx, event.ProjectID, counted)
	case model.KindView:
		counted, err := w.applier.RecordView(ctx, event.ProjectID, event.ActorID, event.TS)
		if err != nil {
			return "", false, err
		}
		return w.projectOwner(ctx, event.ProjectID, counted)
	default:
		return "", false, fmt.Errorf("unknown event kind %q", event.Kind)
	}
}

func (w *InMemoryWorker) projectOwner(ctx context.Context, projectID string, counted bool) (string, bool, error) {
	p, err := w.entities.GetProject(ctx, projectID)
	if err != nil {
		return "", false, err
	}
	return p.OwnerID, counted, nil
}

// awardBadges re-checks the rules against the owner's fresh snapshot and
// persists any newly earned awards. Awards are exactly-once: the store
// rejects duplicates, so redundant evaluation is harmless.
func (w *InMemoryWorker) awardBadges(ctx context.Context, ownerID string, ts time.Time) error {
	snap, err := w.entities.UserSnapshot(ctx, ownerID)
	if err != nil {
		return err
	}
	for _, def := range w.evaluator.Evaluate(snap) {
		awarded, err := w.entities.AwardBadge(ctx, ownerID, def.ID, ts)
		if err != nil {
			return err
		}
		if !awarded {
			continue
		}
		metrics.RecordBadgeAward(def.ID)
		w.logger.Info(ctx, "badge awarded",
			logger.String("userID", ownerID),
			logger.String("badgeID", def.ID),
		)
		if w.sink != nil {
			w.sink.Emit(ctx, notify.Event{
				Kind:    notify.KindBadgeAward,
				UserID:  ownerID,
				BadgeID: def.ID,
				TS:      ts,
			})
		}
	}
	return nil
}

// notifyRankChange emits a rank-change event when the applied activity
// moved the owner up the leaderboard.
func (w *InMemoryWorker) notifyRankChange(ctx context.Context, ownerID string, ts time.Time, oldRank int) {
	if w.ranker == nil || w.sink == nil {
		return
	}
	entry, err := w.ranker.Rank(ctx, ownerID, ts)
	if err != nil {
		return
	}
	if oldRank == 0 || entry.Rank >= oldRank {
		return
	}
	w.sink.Emit(ctx, notify.Event{
		Kind:    notify.KindRankChange,
		UserID:  ownerID,
		OldRank: oldRank,
		NewRank: entry.Rank,
		TS:      ts,
	})
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker

	shutdown chan struct{}
	logger   logger.Logger
}

// NewPool creates a worker pool. Per-worker options apply to every
// worker except the name, which is derived from the index.
func NewPool(workerCount int, q Queue, applier Applier, entities Entities, evaluator Evaluator, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, applier, entities, evaluator, workerOpts...)
	}

	metrics.UpdateWorkerActiveCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	close(p.shutdown)
	ctx, cancel := context.WithTimeout(context.Background(), workerShutdownTimeout)
	defer cancel()
	for _, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "worker did not stop cleanly", logger.Error(err))
		}
	}
}
