package controllers

import (
	"net/http"

	"github.com/NylonDiamond/wrist-assistant-hacs/internal/runtime"
)

// GeneralController handles the operational endpoints: health, Prometheus
// metrics, diagnostics, and the admin force-resync.
type GeneralController struct {
	rt     *runtime.Runtime
	authed middleware
}

// NewGeneralController creates a new general controller.
func NewGeneralController(rt *runtime.Runtime, authed middleware) *GeneralController {
	return &GeneralController{rt: rt, authed: authed}
}

// RegisterRoutes registers general routes with the given mux.
//
// Health and metrics are unauthenticated so probes and scrapers need no
// credentials; diagnostics and resync require a bearer token.
func (c *GeneralController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/healthz", c.handleHealth)
	mux.Handle("/metrics", c.rt.Metrics().Handler())
	mux.HandleFunc("/v1/diagnostics", c.authed(c.handleDiagnostics))
	mux.HandleFunc("/v1/admin/resync", c.authed(c.handleResync))
}

// handleHealth returns the health status of the service.
//
// Returns 200 OK with {"status": "ok"} if healthy, 503 Service Unavailable
// otherwise.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_serving")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleDiagnostics returns a point-in-time operational snapshot: active
// watches, monitored entities, buffer usage and water marks, and
// per-session detail.
func (c *GeneralController) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, c.rt.Diagnose())
}

// handleResync clears every watch session. Each watch's next poll answers
// need_entities=true, forcing a full subscription handshake and state
// refresh.
func (c *GeneralController) handleResync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	cleared := c.rt.Sessions().Count()
	c.rt.Sessions().ForceResync()
	c.rt.Logger().Info("force resync requested")
	writeJSON(w, map[string]any{"status": "ok", "cleared_sessions": cleared})
}
