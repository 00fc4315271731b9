// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vitrinhq/vitrin/internal/domain/model"
)

// EventsHandler handles activity ingestion requests.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// upvoteRequest mirrors the schema for POST /upvotes. event_id is
// optional; omitted ids are generated server-side.
type upvoteRequest struct {
	EventID   string `json:"event_id"`
	VoterID   string `json:"voter_id"`
	ProjectID string `json:"project_id"`
	TS        string `json:"ts"`
}

func (e upvoteRequest) validate() error {
	switch {
	case strings.TrimSpace(e.VoterID) == "":
		return errors.New("missing voter_id")
	case strings.TrimSpace(e.ProjectID) == "":
		return errors.New("missing project_id")
	case strings.TrimSpace(e.TS) == "":
		return errors.New("missing ts")
	}
	_, err := parseTS(e.TS)
	return err
}

// viewRequest mirrors the schema for POST /views. viewer_id is optional;
// anonymous views are counted without the dedup window.
type viewRequest struct {
	EventID   string `json:"event_id"`
	ViewerID  string `json:"viewer_id"`
	ProjectID string `json:"project_id"`
	TS        string `json:"ts"`
}

func (e viewRequest) validate() error {
	switch {
	case strings.TrimSpace(e.ProjectID) == "":
		return errors.New("missing project_id")
	case strings.TrimSpace(e.TS) == "":
		return errors.New("missing ts")
	}
	_, err := parseTS(e.TS)
	return err
}

// publishRequest mirrors the schema for POST /projects.
type publishRequest struct {
	EventID   string `json:"event_id"`
	OwnerID   string `json:"owner_id"`
	ProjectID string `json:"project_id"`
	TS        string `json:"ts"`
}

func (e publishRequest) validate() error {
	switch {
	case strings.TrimSpace(e.OwnerID) == "":
		return errors.New("missing owner_id")
	case strings.TrimSpace(e.ProjectID) == "":
		return errors.New("missing project_id")
	case strings.TrimSpace(e.TS) == "":
		return errors.New("missing ts")
	}
	_, err := parseTS(e.TS)
	return err
}

// HandlePostUpvote handles POST /upvotes requests.
func (h *EventsHandler) HandlePostUpvote(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_upvote"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req upvoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, err))
		return
	}
	if !h.deps.ProjectExists(r.Context(), req.ProjectID) {
		writeError(w, http.StatusNotFound, "not_found", wrapOp(op, errors.New("unknown project_id")))
		return
	}
	ts, _ := parseTS(req.TS)
	h.accept(w, r, op, model.ActivityEvent{
		EventID:   req.EventID,
		Kind:      model.KindUpvote,
		ActorID:   req.VoterID,
		ProjectID: req.ProjectID,
		TS:        ts,
	})
}

// HandlePostView handles POST /views requests.
func (h *EventsHandler) HandlePostView(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_view"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req viewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, err))
		return
	}
	if !h.deps.ProjectExists(r.Context(), req.ProjectID) {
		writeError(w, http.StatusNotFound, "not_found", wrapOp(op, errors.New("unknown project_id")))
		return
	}
	ts, _ := parseTS(req.TS)
	h.accept(w, r, op, model.ActivityEvent{
		EventID:   req.EventID,
		Kind:      model.KindView,
		ActorID:   strings.TrimSpace(req.ViewerID),
		ProjectID: req.ProjectID,
		TS:        ts,
	})
}

// HandlePostProject handles POST /projects requests.
func (h *EventsHandler) HandlePostProject(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_project"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", badRequest(op, err))
		return
	}
	ts, _ := parseTS(req.TS)
	h.accept(w, r, op, model.ActivityEvent{
		EventID:   req.EventID,
		Kind:      model.KindPublish,
		ActorID:   req.OwnerID,
		ProjectID: req.ProjectID,
		TS:        ts,
	})
}

// accept runs the shared idempotency-then-enqueue tail of every ingest
// handler.
func (h *EventsHandler) accept(w http.ResponseWriter, r *http.Request, op string, e model.ActivityEvent) {
	// Generated ids carry no idempotency; only client-supplied ids go
	// through the dedup cache. Mark as seen before enqueueing so a
	// concurrent retry of the same event id observes the duplicate.
	if strings.TrimSpace(e.EventID) == "" {
		e.EventID = uuid.NewString()
	} else if h.deps.SeenAndRecord(r.Context(), e.EventID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	if ok := h.deps.Enqueue(r.Context(), e); !ok {
		// Roll back the seen status since enqueue failed. For generated
		// ids this is a no-op.
		h.deps.Unrecord(r.Context(), e.EventID)
		writeError(w, http.StatusTooManyRequests, "backpressure", wrapOp(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}
