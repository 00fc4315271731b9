// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/vitrinhq/vitrin/internal/domain/types"
)

// Stats mirrors the monitoring shape served by GET /stats.
type Stats = types.Stats

// StatsProvider reports a snapshot of engine state.
type StatsProvider interface {
	GetStats() Stats
}

// StatsHandler serves the engine state snapshot.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.provider.GetStats())
}
