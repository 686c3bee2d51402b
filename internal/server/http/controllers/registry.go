package controllers

import (
	"net/http"

	"github.com/NylonDiamond/wrist-assistant-hacs/internal/runtime"
)

// ControllerRegistry manages all HTTP controllers.
//
// It provides a centralized way to register all controller routes
// and manages the lifecycle of individual controllers.
type ControllerRegistry struct {
	general       *GeneralController
	updates       *UpdatesController
	pairing       *PairingController
	notifications *NotificationsController
	camera        *CameraController
	ingest        *IngestController
}

// NewControllerRegistry creates a new controller registry.
//
// It initializes all controllers with the provided runtime.
func NewControllerRegistry(rt *runtime.Runtime) *ControllerRegistry {
	authed := requireAuth(rt.Verifier(), rt.Logger())
	return &ControllerRegistry{
		general:       NewGeneralController(rt, authed),
		updates:       NewUpdatesController(rt, authed),
		pairing:       NewPairingController(rt, authed),
		notifications: NewNotificationsController(rt, authed),
		camera:        NewCameraController(rt, authed),
		ingest:        NewIngestController(rt, authed),
	}
}

// RegisterAllRoutes registers all controller routes with the given mux.
//
// This sets up the watch sync surface (long-poll updates, pairing,
// notification registration, camera devices and streams), the ingest
// endpoint, and the operational endpoints (health, metrics, diagnostics,
// admin resync).
func (r *ControllerRegistry) RegisterAllRoutes(mux *http.ServeMux) {
	r.general.RegisterRoutes(mux)
	r.updates.RegisterRoutes(mux)
	r.pairing.RegisterRoutes(mux)
	r.notifications.RegisterRoutes(mux)
	r.camera.RegisterRoutes(mux)
	r.ingest.RegisterRoutes(mux)
}
