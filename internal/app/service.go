// Package app provides the core business service that implements
// the dependencies required by the HTTP API.
package app

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/vitrinhq/vitrin/internal/adapters/mq/queue"
	workerpool "github.com/vitrinhq/vitrin/internal/adapters/mq/worker"
	"github.com/vitrinhq/vitrin/internal/adapters/notify"
	"github.com/vitrinhq/vitrin/internal/adapters/repository"
	"github.com/vitrinhq/vitrin/internal/domain/activity"
	"github.com/vitrinhq/vitrin/internal/domain/badge"
	"github.com/vitrinhq/vitrin/internal/domain/dedupe"
	"github.com/vitrinhq/vitrin/internal/domain/leaderboard"
	"github.com/vitrinhq/vitrin/internal/domain/model"
	"github.com/vitrinhq/vitrin/internal/domain/scoring"
	"github.com/vitrinhq/vitrin/internal/domain/types"
	"github.com/vitrinhq/vitrin/pkg/logger"
	"github.com/vitrinhq/vitrin/pkg/metrics"
)

// Default service configuration.
const (
	defaultQueueSize  = 100_000
	defaultDedupeSize = 50_000
)

// Service implements the API dependencies for the achievement engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	store       *repository.MemStore
	deduper     dedupe.Deduper
	eventQueue  eventqueue.Queue
	aggregator  *activity.Aggregator
	evaluator   *badge.Evaluator
	calculator  *scoring.Calculator
	builder     *leaderboard.Builder
	broadcaster *notify.Broadcaster
	workerPool  *workerpool.Pool

	// Configuration
	workerCount       int
	queueSize         int
	dedupeSize        int
	upvoteWeight      float64
	viewWeight        float64
	halfLifeDays      float64
	viewDedupWindow   time.Duration
	definitions       []badge.Definition
	rankNotifications bool

	// State
	started bool
	stopCh  chan struct{}

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the event-id deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWeights sets the upvote and view scoring weights.
func WithWeights(upvote, view float64) Option {
	return func(s *Service) {
		s.upvoteWeight = upvote
		s.viewWeight = view
	}
}

// WithHalfLifeDays sets the score decay half-life.
func WithHalfLifeDays(days float64) Option {
	return func(s *Service) {
		if days > 0 {
			s.halfLifeDays = days
		}
	}
}

// WithViewDedupWindow sets the per-viewer view dedup window.
func WithViewDedupWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.viewDedupWindow = d
		}
	}
}

// WithBadgeDefinitions replaces the built-in badge set.
func WithBadgeDefinitions(defs []badge.Definition) Option {
	return func(s *Service) {
		if len(defs) > 0 {
			s.definitions = defs
		}
	}
}

// WithRankNotifications toggles rank-change notification emission.
func WithRankNotifications(enabled bool) Option {
	return func(s *Service) {
		s.rankNotifications = enabled
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:       runtime.NumCPU() * 4,
		queueSize:         defaultQueueSize,
		dedupeSize:        defaultDedupeSize,
		upvoteWeight:      10,
		viewWeight:        0.5,
		halfLifeDays:      30,
		viewDedupWindow:   30 * time.Minute,
		definitions:       badge.Defaults(),
		rankNotifications: true,
		stopCh:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("app")
	}

	s.logger.Info(ctx, "starting achievement engine...")

	s.store = repository.NewMemStore()
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.eventQueue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
	)
	s.aggregator = activity.New(s.store,
		activity.WithDedupWindow(s.viewDedupWindow),
	)
	s.evaluator = badge.NewEvaluator(
		badge.WithDefinitions(s.definitions),
	)
	s.calculator = scoring.New(
		scoring.WithWeights(s.upvoteWeight, s.viewWeight),
		scoring.WithHalfLife(s.halfLifeDays),
		scoring.WithBadgeBonuses(s.evaluator.Bonuses()),
	)
	s.builder = leaderboard.New(s.store, s.calculator)
	s.broadcaster = notify.NewBroadcaster()

	workerOpts := []workerpool.Option{
		workerpool.WithSink(s.broadcaster),
	}
	if s.rankNotifications {
		workerOpts = append(workerOpts, workerpool.WithRanker(s.builder))
	}
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.aggregator, s.store, s.evaluator, workerOpts...)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "achievement engine started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("badges", len(s.definitions)),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping achievement engine...")

	if s.workerPool != nil {
		s.workerPool.Stop()
	}
	if s.eventQueue != nil {
		_ = s.eventQueue.Close()
	}
	if s.broadcaster != nil {
		s.broadcaster.Close()
	}

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(ctx, "achievement engine stopped")
}

// SeenAndRecord atomically checks if an event id was seen and records it
// if not. Returns true if the event was already seen.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	return s.deduper.SeenAndRecord(ctx, id)
}

// Unrecord removes an event id from the seen set, allowing a retry.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Enqueue submits an activity event for asynchronous processing.
// Producers without an event id get a generated one; those events
// cannot be deduplicated across retries.
func (s *Service) Enqueue(ctx context.Context, e model.ActivityEvent) bool {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if !e.Valid() {
		s.logger.Warn(ctx, "rejecting malformed event",
			logger.String("eventID", e.EventID),
			logger.String("kind", string(e.Kind)),
		)
		return false
	}
	ok := s.eventQueue.Enqueue(ctx, e)
	if ok {
		metrics.UpdateQueueSize(s.eventQueue.Len(ctx))
	}
	return ok
}

// ProjectExists reports whether the project id is known to the store.
func (s *Service) ProjectExists(ctx context.Context, projectID string) bool {
	_, err := s.store.GetProject(ctx, projectID)
	return err == nil
}

// Leaderboard returns one page of ranked entries, freshening stale
// scores first.
func (s *Service) Leaderboard(ctx context.Context, page, pageSize int) ([]types.Entry, error) {
	return s.builder.Build(ctx, page, pageSize, time.Now())
}

// Rank returns the leaderboard entry for a given user id.
func (s *Service) Rank(ctx context.Context, userID string) (types.Entry, error) {
	return s.builder.Rank(ctx, userID, time.Now())
}

// Badges returns the badge awards held by a user, in award order.
func (s *Service) Badges(ctx context.Context, userID string) ([]model.BadgeAward, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Awards, nil
}

// Subscribe returns a channel of badge-award and rank-change
// notifications.
func (s *Service) Subscribe() <-chan notify.Event {
	return s.broadcaster.Subscribe()
}

// GetStats returns a snapshot of engine state for monitoring.
func (s *Service) GetStats() types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	st := types.Stats{
		Started:       s.started,
		Workers:       s.workerCount,
		QueueCapacity: s.queueSize,
	}

	if s.started {
		st.QueueLength = s.eventQueue.Len(ctx)
		st.DedupeEntries = s.deduper.Size()
		st.Users = s.store.UserCount(ctx)
		st.Projects = s.store.ProjectCount(ctx)

		metrics.UpdateQueueSize(st.QueueLength)
	}
	return st
}
