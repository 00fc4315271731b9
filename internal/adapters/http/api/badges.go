// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/vitrinhq/vitrin/internal/domain/model"
)

// BadgesDependencies defines the interface for badge reads.
type BadgesDependencies interface {
	Badges(ctx context.Context, userID string) ([]model.BadgeAward, error)
}

// BadgesHandler handles badge listing requests.
type BadgesHandler struct {
	deps BadgesDependencies
}

// NewBadgesHandler creates a new badges handler.
func NewBadgesHandler(deps BadgesDependencies) *BadgesHandler {
	return &BadgesHandler{deps: deps}
}

type badgesResponse struct {
	UserID string             `json:"user_id"`
	Badges []model.BadgeAward `json:"badges"`
}

// HandleGetBadges handles GET /badges/{user_id} requests.
func (h *BadgesHandler) HandleGetBadges(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_badges"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID := strings.TrimPrefix(r.URL.Path, "/badges/")
	if userID == "" || strings.Contains(userID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", wrapOp(op, ErrBadRequest))
		return
	}
	awards, err := h.deps.Badges(r.Context(), userID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", wrapOp(op, err))
		return
	}
	if awards == nil {
		awards = []model.BadgeAward{}
	}
	writeJSON(w, http.StatusOK, badgesResponse{UserID: userID, Badges: awards})
}
