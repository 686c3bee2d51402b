package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/NylonDiamond/wrist-assistant-hacs/internal/runtime"
	pairingsvc "github.com/NylonDiamond/wrist-assistant-hacs/internal/services/pairing"
	logpkg "github.com/NylonDiamond/wrist-assistant-hacs/pkg/log"
)

// PairingController serves pairing code creation and redemption.
type PairingController struct {
	rt     *runtime.Runtime
	svc    *pairingsvc.Service
	authed middleware
}

// NewPairingController creates a new pairing controller.
func NewPairingController(rt *runtime.Runtime, authed middleware) *PairingController {
	return &PairingController{rt: rt, svc: rt.Pairing(), authed: authed}
}

// RegisterRoutes registers pairing routes with the given mux.
//
// Redemption is deliberately unauthenticated: the pairing code itself is
// the single-use credential a not-yet-paired watch holds.
func (c *PairingController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/pairing/create", c.authed(c.handleCreate))
	mux.HandleFunc("/v1/pairing/redeem", c.handleRedeem)
}

type pairingCreateRequest struct {
	LocalURL     string `json:"local_url"`
	RemoteURL    string `json:"remote_url"`
	LifespanDays int    `json:"lifespan_days"`
}

type pairingCreateResponse struct {
	PairingCode      string    `json:"pairing_code"`
	PairingURI       string    `json:"pairing_uri"`
	ExpiresAt        time.Time `json:"expires_at"`
	LifespanDays     int       `json:"lifespan_days"`
	HomeAssistantURL string    `json:"home_assistant_url"`
	LocalURL         string    `json:"local_url"`
	RemoteURL        string    `json:"remote_url"`
}

func (c *PairingController) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req pairingCreateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	created, err := c.svc.Create(r.Context(), req.LocalURL, req.RemoteURL, req.LifespanDays)
	if err != nil {
		c.rt.Logger().Error("create pairing code", logpkg.Err(err))
		writeError(w, http.StatusInternalServerError, "Failed to create pairing code")
		return
	}
	writeJSONStatus(w, http.StatusCreated, pairingCreateResponse{
		PairingCode:      created.Code,
		PairingURI:       created.URI,
		ExpiresAt:        created.ExpiresAt,
		LifespanDays:     created.LifespanDays,
		HomeAssistantURL: created.Payload.HomeAssistantURL,
		LocalURL:         created.Payload.LocalURL,
		RemoteURL:        created.Payload.RemoteURL,
	})
}

type pairingRedeemRequest struct {
	PairingCode string `json:"pairing_code"`
}

func (c *PairingController) handleRedeem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req pairingRedeemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.PairingCode == "" {
		writeError(w, http.StatusBadRequest, "pairing_code is required")
		return
	}

	res, err := c.svc.Redeem(r.Context(), req.PairingCode)
	switch {
	case err == nil:
		writeJSON(w, res)
	case errors.Is(err, pairingsvc.ErrNotFound):
		writeError(w, http.StatusNotFound, "Unknown pairing code")
	case errors.Is(err, pairingsvc.ErrExpired):
		writeError(w, http.StatusGone, "Pairing code expired")
	case errors.Is(err, pairingsvc.ErrAlreadyRedeemed):
		writeError(w, http.StatusConflict, "Pairing code already redeemed")
	default:
		c.rt.Logger().Error("redeem pairing code", logpkg.Err(err))
		writeError(w, http.StatusInternalServerError, "Failed to issue token")
	}
}
