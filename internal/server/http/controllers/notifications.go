package controllers

import (
	"net/http"

	"github.com/NylonDiamond/wrist-assistant-hacs/internal/notify"
	"github.com/NylonDiamond/wrist-assistant-hacs/internal/runtime"
	logpkg "github.com/NylonDiamond/wrist-assistant-hacs/pkg/log"
)

// NotificationsController serves push token registration.
type NotificationsController struct {
	rt     *runtime.Runtime
	store  *notify.TokenStore
	authed middleware
}

// NewNotificationsController creates a new notifications controller.
func NewNotificationsController(rt *runtime.Runtime, authed middleware) *NotificationsController {
	return &NotificationsController{rt: rt, store: rt.Tokens(), authed: authed}
}

// RegisterRoutes registers notification routes with the given mux. The path
// matches what shipped watch clients already call.
func (c *NotificationsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/wrist_assistant/notifications/register", c.authed(c.handleRegister))
}

type registerTokenRequest struct {
	WatchID     string `json:"watch_id"`
	DeviceToken string `json:"device_token"`
	Platform    string `json:"platform"`
	Environment string `json:"environment"`
}

func (c *NotificationsController) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req registerTokenRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.WatchID == "" {
		writeError(w, http.StatusBadRequest, "watch_id is required")
		return
	}
	if req.DeviceToken == "" {
		writeError(w, http.StatusBadRequest, "device_token is required")
		return
	}

	if err := c.store.Register(req.WatchID, req.DeviceToken, req.Platform, req.Environment); err != nil {
		c.rt.Logger().Error("register push token", logpkg.Err(err), logpkg.Str("watch_id", req.WatchID))
		writeError(w, http.StatusInternalServerError, "Failed to store token")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}
