package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/NylonDiamond/wrist-assistant-hacs/internal/camera"
	"github.com/NylonDiamond/wrist-assistant-hacs/internal/runtime"
	logpkg "github.com/NylonDiamond/wrist-assistant-hacs/pkg/log"
)

const streamPathPrefix = "/api/wrist_assistant/camera/stream/"

// CameraController serves the camera surface: device grouping, the smart
// MJPEG stream, and viewport updates for active streams. Frames come from
// the hub's camera proxy and are cropped/resized here so the watch never
// downloads more pixels than it can show.
type CameraController struct {
	rt     *runtime.Runtime
	authed middleware
}

// NewCameraController creates a new camera controller.
func NewCameraController(rt *runtime.Runtime, authed middleware) *CameraController {
	return &CameraController{rt: rt, authed: authed}
}

// RegisterRoutes registers camera routes with the given mux.
func (c *CameraController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/wrist_assistant/camera/devices", c.authed(c.handleDevices))
	mux.HandleFunc(streamPathPrefix, c.authed(c.handleStream))
	mux.HandleFunc("/api/wrist_assistant/camera/viewport", c.authed(c.handleViewport))
}

func (c *CameraController) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	hub := c.rt.Hub()
	if hub == nil {
		writeError(w, http.StatusServiceUnavailable, "No upstream configured")
		return
	}
	states, err := hub.States(r.Context())
	if err != nil {
		c.rt.Logger().Error("list upstream states", logpkg.Err(err))
		writeError(w, http.StatusBadGateway, "Upstream unavailable")
		return
	}
	infos := make([]camera.EntityInfo, 0, len(states))
	for _, s := range states {
		infos = append(infos, camera.EntityInfo{
			EntityID:     s.EntityID,
			FriendlyName: s.Attributes.FriendlyName,
		})
	}
	writeJSON(w, map[string]any{"devices": camera.BuildDevices(infos)})
}

func (c *CameraController) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	hub := c.rt.Hub()
	if hub == nil {
		writeError(w, http.StatusServiceUnavailable, "No upstream configured")
		return
	}
	entityID := strings.TrimPrefix(r.URL.Path, streamPathPrefix)
	if entityID == "" || !strings.HasPrefix(entityID, "camera.") || strings.Contains(entityID, "/") {
		writeError(w, http.StatusNotFound, "Invalid camera entity")
		return
	}

	q := r.URL.Query()
	width := camera.ClampWidth(intParam(q.Get("width"), camera.DefaultWidth))
	quality := camera.ClampQuality(intParam(q.Get("quality"), camera.DefaultQuality))
	fps := camera.ClampFPS(floatParam(q.Get("fps"), camera.DefaultFPS))
	watchID := q.Get("watch_id")
	if watchID == "" {
		watchID = "unknown"
	}

	viewport := camera.FullFrame()
	if q.Has("x") {
		viewport = camera.Viewport{
			X: floatParam(q.Get("x"), 0),
			Y: floatParam(q.Get("y"), 0),
			W: floatParam(q.Get("w"), 1),
			H: floatParam(q.Get("h"), 1),
		}.Clamp()
	}

	streams := c.rt.Streams()
	session := streams.GetOrCreate(watchID, entityID, width, quality, fps, viewport)
	defer streams.Remove(watchID, entityID)

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}
	h := w.Header()
	h.Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Set("Pragma", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	interval := time.Duration(float64(time.Second) / session.FPS())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := c.writeFrame(r.Context(), w, hub, session, entityID); err != nil {
			c.rt.Logger().Debug("stream ended",
				logpkg.Str("entity_id", entityID),
				logpkg.Str("watch_id", watchID),
				logpkg.Err(err))
			return
		}
		flusher.Flush()
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// writeFrame fetches, processes, and writes one MJPEG part. Upstream frame
// errors are skipped so a briefly unavailable camera does not tear down the
// stream; write errors end it.
func (c *CameraController) writeFrame(ctx context.Context, w http.ResponseWriter, hub hubClient, session *camera.StreamSession, entityID string) error {
	frame, _, err := hub.CameraSnapshot(ctx, entityID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.rt.Logger().Debug("frame fetch failed", logpkg.Str("entity_id", entityID), logpkg.Err(err))
		return nil
	}
	viewport, width, quality := session.Params()
	processed, err := camera.ProcessFrame(frame, viewport, width, quality)
	if err != nil {
		c.rt.Logger().Debug("frame process failed", logpkg.Str("entity_id", entityID), logpkg.Err(err))
		return nil
	}
	_, err = fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(processed))
	if err != nil {
		return err
	}
	if _, err = w.Write(processed); err != nil {
		return err
	}
	_, err = w.Write([]byte("\r\n"))
	return err
}

// hubClient is the slice of the upstream client the stream loop needs.
type hubClient interface {
	CameraSnapshot(ctx context.Context, entityID string) ([]byte, string, error)
}

type viewportRequest struct {
	WatchID  string   `json:"watch_id"`
	EntityID string   `json:"entity_id"`
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
	W        *float64 `json:"w"`
	H        *float64 `json:"h"`
	Width    *int     `json:"width"`
}

func (c *CameraController) handleViewport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req viewportRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.WatchID == "" || req.EntityID == "" {
		writeError(w, http.StatusBadRequest, "entity_id and watch_id required")
		return
	}

	var viewport *camera.Viewport
	if req.X != nil || req.Y != nil || req.W != nil || req.H != nil {
		vp := camera.Viewport{
			X: floatOrDefault(req.X, 0),
			Y: floatOrDefault(req.Y, 0),
			W: floatOrDefault(req.W, 1),
			H: floatOrDefault(req.H, 1),
		}.Clamp()
		viewport = &vp
	}

	if !c.rt.Streams().Update(req.WatchID, req.EntityID, viewport, req.Width) {
		writeError(w, http.StatusNotFound, "No active stream for this session")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func intParam(s string, def int) int {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return int(f)
}

func floatParam(s string, def float64) float64 {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func floatOrDefault(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
