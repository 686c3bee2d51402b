package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/NylonDiamond/wrist-assistant-hacs/internal/runtime"
)

// IngestController accepts change events from an external hub process, the
// HTTP counterpart of the websocket source.
type IngestController struct {
	rt     *runtime.Runtime
	authed middleware
}

// NewIngestController creates a new ingest controller.
func NewIngestController(rt *runtime.Runtime, authed middleware) *IngestController {
	return &IngestController{rt: rt, authed: authed}
}

// RegisterRoutes registers the ingest route with the given mux.
func (c *IngestController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/ingest", c.authed(c.handleIngest))
}

type ingestRequest struct {
	EntityID  string          `json:"entity_id"`
	NewState  json.RawMessage `json:"new_state"`
	ContextID string          `json:"context_id"`
	Timestamp *time.Time      `json:"timestamp"`
}

func (c *IngestController) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req ingestRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.EntityID == "" {
		writeError(w, http.StatusBadRequest, "entity_id is required")
		return
	}
	if len(req.NewState) == 0 || string(req.NewState) == "null" {
		writeError(w, http.StatusBadRequest, "new_state is required")
		return
	}

	ts := time.Now()
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}
	cursor := c.rt.Ingest(req.EntityID, req.NewState, req.ContextID, ts)
	writeJSONStatus(w, http.StatusAccepted, map[string]string{"cursor": formatCursor(cursor)})
}
