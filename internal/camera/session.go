package camera

import "sync"

// Stream parameter bounds.
const (
	MinWidth       = 50
	MaxWidth       = 2000
	MinQuality     = 10
	MaxQuality     = 95
	DefaultWidth   = 400
	DefaultQuality = 75
)

const (
	MinFPS     = 0.5
	MaxFPS     = 10.0
	DefaultFPS = 2.0
)

// Viewport is a normalized crop region in [0,1] coordinates.
type Viewport struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// FullFrame is the identity viewport.
func FullFrame() Viewport {
	return Viewport{X: 0, Y: 0, W: 1, H: 1}
}

// full reports whether the viewport covers (essentially) the whole frame.
func (v Viewport) full() bool {
	return v.X <= 0.001 && v.Y <= 0.001 && v.W >= 0.999 && v.H >= 0.999
}

// Clamp bounds the viewport to legal crop coordinates.
func (v Viewport) Clamp() Viewport {
	return Viewport{
		X: clampF(v.X, 0, 1),
		Y: clampF(v.Y, 0, 1),
		W: clampF(v.W, 0.01, 1),
		H: clampF(v.H, 0.01, 1),
	}
}

// ClampWidth bounds a requested frame width.
func ClampWidth(w int) int { return int(clampF(float64(w), MinWidth, MaxWidth)) }

// ClampQuality bounds a requested JPEG quality.
func ClampQuality(q int) int { return int(clampF(float64(q), MinQuality, MaxQuality)) }

// ClampFPS bounds a requested frame rate.
func ClampFPS(fps float64) float64 { return clampF(fps, MinFPS, MaxFPS) }

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// StreamSession holds the live parameters of one active stream. The
// viewport endpoint mutates them while the stream loop reads them, so
// access goes through the mutex.
type StreamSession struct {
	mu       sync.Mutex
	viewport Viewport
	width    int
	quality  int
	fps      float64
}

// Params returns the current viewport, width, and quality.
func (s *StreamSession) Params() (Viewport, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport, s.width, s.quality
}

// FPS returns the session frame rate.
func (s *StreamSession) FPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fps
}

func (s *StreamSession) update(viewport *Viewport, width *int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if viewport != nil {
		s.viewport = viewport.Clamp()
	}
	if width != nil {
		s.width = ClampWidth(*width)
	}
}

type sessionKey struct {
	watchID  string
	entityID string
}

// StreamCoordinator tracks active stream sessions keyed by
// (watch_id, entity_id).
type StreamCoordinator struct {
	mu       sync.Mutex
	sessions map[sessionKey]*StreamSession
}

// NewStreamCoordinator returns an empty coordinator.
func NewStreamCoordinator() *StreamCoordinator {
	return &StreamCoordinator{sessions: map[sessionKey]*StreamSession{}}
}

// GetOrCreate returns the session for (watchID, entityID), creating it with
// the given parameters. An existing session keeps its viewport but adopts
// the new width, quality, and fps.
func (c *StreamCoordinator) GetOrCreate(watchID, entityID string, width, quality int, fps float64, viewport Viewport) *StreamSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := sessionKey{watchID, entityID}
	s := c.sessions[key]
	if s == nil {
		s = &StreamSession{viewport: viewport.Clamp(), width: ClampWidth(width), quality: ClampQuality(quality), fps: ClampFPS(fps)}
		c.sessions[key] = s
		return s
	}
	s.mu.Lock()
	s.width = ClampWidth(width)
	s.quality = ClampQuality(quality)
	s.fps = ClampFPS(fps)
	s.mu.Unlock()
	return s
}

// Update changes the viewport and/or width of an active session. It reports
// whether the session exists.
func (c *StreamCoordinator) Update(watchID, entityID string, viewport *Viewport, width *int) bool {
	c.mu.Lock()
	s := c.sessions[sessionKey{watchID, entityID}]
	c.mu.Unlock()
	if s == nil {
		return false
	}
	s.update(viewport, width)
	return true
}

// Remove drops a session when its stream ends.
func (c *StreamCoordinator) Remove(watchID, entityID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, sessionKey{watchID, entityID})
}

// Count returns the number of active sessions.
func (c *StreamCoordinator) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// Shutdown clears all sessions.
func (c *StreamCoordinator) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions = map[sessionKey]*StreamSession{}
}
