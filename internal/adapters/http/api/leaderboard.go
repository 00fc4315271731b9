// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
)

// LeaderboardDependencies defines the interface for leaderboard reads.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, page, pageSize int) ([]Entry, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps        LeaderboardDependencies
	maxPageSize int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxPageSize int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:        deps,
		maxPageSize: maxPageSize,
	}
}

// leaderboardResponse echoes the paging window alongside the entries.
// Entries is never null; a page past the end of the board is an empty
// list.
type leaderboardResponse struct {
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
	Entries  []Entry `json:"entries"`
}

// HandleGetLeaderboard handles GET /leaderboard?page=P&page_size=N requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	page := 0
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, errors.New("page must be a non-negative integer")))
			return
		}
		page = n
	}

	pageSize := defaultPageSize
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, errors.New("page_size must be a positive integer")))
			return
		}
		pageSize = n
	}
	if pageSize > h.maxPageSize {
		writeError(w, http.StatusBadRequest, "page_size_exceeded", badRequest(op, errors.New("page_size exceeds maximum")))
		return
	}

	entries, err := h.deps.Leaderboard(r.Context(), page, pageSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", wrapOp(op, err))
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{
		Page:     page,
		PageSize: pageSize,
		Entries:  entries,
	})
}
