// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/vitrinhq/vitrin/internal/adapters/repository"
	"github.com/vitrinhq/vitrin/internal/domain/dedupe"
	"github.com/vitrinhq/vitrin/internal/domain/model"
	"github.com/vitrinhq/vitrin/internal/domain/types"
)

// Default paging applied when the query string omits page_size.
const defaultPageSize = 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Enqueue pushes an activity event for async processing. Returns
	// false on backpressure.
	Enqueue(ctx context.Context, e model.ActivityEvent) bool

	// ProjectExists reports whether a project id is known.
	ProjectExists(ctx context.Context, projectID string) bool

	// Read operations expose leaderboard and badge data.
	Leaderboard(ctx context.Context, page, pageSize int) ([]Entry, error)
	Rank(ctx context.Context, userID string) (Entry, error)
	Badges(ctx context.Context, userID string) ([]model.BadgeAward, error)
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	eventsHandler      *EventsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	badgesHandler      *BadgesHandler

	maxPageSize int
	authTokens  map[string]struct{}
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxPageSize caps the page_size query parameter.
func WithMaxPageSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxPageSize = n
		}
	}
}

// WithAuthTokens sets the bearer tokens accepted on read endpoints.
// Reads are always authenticated; with no tokens configured every read
// is denied.
func WithAuthTokens(tokens []string) Option {
	return func(s *Server) {
		for _, t := range tokens {
			if t = strings.TrimSpace(t); t != "" {
				s.authTokens[t] = struct{}{}
			}
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		eventsHandler: NewEventsHandler(deps),
		rankHandler:   NewRankHandler(deps),
		badgesHandler: NewBadgesHandler(deps),
		maxPageSize:   100,
		authTokens:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.leaderboardHandler = NewLeaderboardHandler(deps, s.maxPageSize)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	auth := func(next http.HandlerFunc) http.HandlerFunc {
		return AuthMiddleware(next, s.authTokens)
	}

	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(auth(s.statsHandler.HandleStats), "stats"))
	mux.HandleFunc("/upvotes", MetricsMiddleware(s.eventsHandler.HandlePostUpvote, "upvotes"))
	mux.HandleFunc("/views", MetricsMiddleware(s.eventsHandler.HandlePostView, "views"))
	mux.HandleFunc("/projects", MetricsMiddleware(s.eventsHandler.HandlePostProject, "projects"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(auth(s.leaderboardHandler.HandleGetLeaderboard), "leaderboard"))
	mux.HandleFunc("/rank/", MetricsMiddleware(auth(s.rankHandler.HandleGetRank), "rank"))
	mux.HandleFunc("/badges/", MetricsMiddleware(auth(s.badgesHandler.HandleGetBadges), "badges"))
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// parseTS accepts RFC3339 timestamps only.
func parseTS(raw string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New("invalid ts; must be RFC3339")
	}
	return ts, nil
}

// isNotFound translates upstream not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrUserNotFound) ||
		errors.Is(err, repository.ErrProjectNotFound)
}
