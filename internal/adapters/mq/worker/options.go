package worker

import "github.com/vitrinhq/vitrin/internal/adapters/notify"

// Option applies a configuration option to the worker.
type Option func(*InMemoryWorker)

// WithName sets the worker name used in logs.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithSink sets the notification sink for badge-award and rank-change
// events.
func WithSink(s notify.Sink) Option {
	return func(w *InMemoryWorker) {
		w.sink = s
	}
}

// WithRanker enables rank-change notifications.
func WithRanker(r Ranker) Option {
	return func(w *InMemoryWorker) {
		w.ranker = r
	}
}
