package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/NylonDiamond/wrist-assistant-hacs/internal/deltalog"
	"github.com/NylonDiamond/wrist-assistant-hacs/internal/runtime"
	deltasvc "github.com/NylonDiamond/wrist-assistant-hacs/internal/services/delta"
	logpkg "github.com/NylonDiamond/wrist-assistant-hacs/pkg/log"
)

// UpdatesController serves the watch long-poll endpoint.
type UpdatesController struct {
	rt     *runtime.Runtime
	svc    *deltasvc.Service
	authed middleware
}

// NewUpdatesController creates a new updates controller.
func NewUpdatesController(rt *runtime.Runtime, authed middleware) *UpdatesController {
	return &UpdatesController{rt: rt, svc: rt.Delta(), authed: authed}
}

// RegisterRoutes registers the long-poll route with the given mux.
func (c *UpdatesController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/watch/updates", c.authed(c.handleUpdates))
}

type updatesRequest struct {
	WatchID    string   `json:"watch_id"`
	Since      *string  `json:"since"`
	ConfigHash string   `json:"config_hash"`
	Entities   []string `json:"entities"`
	Filter     string   `json:"filter"`
	Timeout    *int     `json:"timeout"`
}

type updatesResponse struct {
	Events         []deltalog.Event `json:"events"`
	NextCursor     string           `json:"next_cursor"`
	NeedEntities   bool             `json:"need_entities"`
	ResyncRequired bool             `json:"resync_required"`
}

// handleUpdates runs one long-poll cycle.
//
// Status mapping: 200 carries events or a need_entities handshake, 204
// means the deadline passed with nothing to deliver (the advanced cursor
// travels in X-Next-Cursor), 410 tells the watch its cursor references
// evicted history and it must refresh from scratch.
func (c *UpdatesController) handleUpdates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req updatesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.WatchID == "" {
		writeError(w, http.StatusBadRequest, "watch_id is required")
		return
	}
	if req.ConfigHash == "" {
		writeError(w, http.StatusBadRequest, "config_hash is required")
		return
	}

	poll := deltasvc.PollRequest{
		WatchID:    req.WatchID,
		ConfigHash: req.ConfigHash,
		Entities:   req.Entities,
		Filter:     req.Filter,
	}
	if req.Timeout != nil {
		poll.Timeout = time.Duration(*req.Timeout) * time.Second
	}
	if req.Since != nil && *req.Since != "" {
		cursor, err := strconv.ParseUint(*req.Since, 10, 64)
		if err != nil {
			// A cursor we cannot read came from some other lifetime; make the
			// watch start over.
			c.writeResync(w)
			return
		}
		poll.Since = cursor
		poll.SinceSupplied = true
	}

	res, err := c.svc.Poll(r.Context(), poll)
	switch {
	case err == nil:
	case errors.Is(err, deltasvc.ErrBadFilter):
		writeError(w, http.StatusBadRequest, "Invalid filter expression")
		return
	case r.Context().Err() != nil:
		// Client went away mid-poll; nothing useful to write.
		return
	default:
		c.rt.Logger().Error("poll failed", logpkg.Err(err), logpkg.Str("watch_id", req.WatchID))
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	switch res.Outcome {
	case deltasvc.OutcomeEvents:
		writeJSON(w, updatesResponse{
			Events:     res.Events,
			NextCursor: formatCursor(res.NextCursor),
		})
	case deltasvc.OutcomeNeedEntities:
		writeJSON(w, updatesResponse{
			Events:       []deltalog.Event{},
			NextCursor:   formatCursor(res.NextCursor),
			NeedEntities: true,
		})
	case deltasvc.OutcomeStale:
		c.writeResync(w)
	case deltasvc.OutcomeTimeout:
		w.Header().Set("X-Next-Cursor", formatCursor(res.NextCursor))
		w.WriteHeader(http.StatusNoContent)
	}
}

func (c *UpdatesController) writeResync(w http.ResponseWriter) {
	writeJSONStatus(w, http.StatusGone, updatesResponse{
		Events:         []deltalog.Event{},
		NextCursor:     formatCursor(c.rt.Log().HighWater()),
		ResyncRequired: true,
	})
}
