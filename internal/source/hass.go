package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/NylonDiamond/wrist-assistant-hacs/internal/metrics"
	"github.com/NylonDiamond/wrist-assistant-hacs/pkg/id"
	logpkg "github.com/NylonDiamond/wrist-assistant-hacs/pkg/log"
)

const (
	defaultMinBackoff = time.Second
	defaultMaxBackoff = 30 * time.Second

	subscribeID = 1
)

// HomeAssistantOptions configures the websocket subscriber.
type HomeAssistantOptions struct {
	// URL is the Home Assistant base URL (http:// or https://); the
	// websocket path is derived from it.
	URL string
	// Token is the long-lived access token used in the auth handshake.
	Token string
	// MinBackoff and MaxBackoff bound the reconnect delay.
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// HomeAssistant subscribes to state_changed events over the Home Assistant
// websocket API and forwards them to a Sink.
type HomeAssistant struct {
	sink    Sink
	opts    HomeAssistantOptions
	logger  logpkg.Logger
	metrics *metrics.Metrics
	ids     *id.Generator
}

// NewHomeAssistant returns a subscriber. logger and m may be nil.
func NewHomeAssistant(sink Sink, opts HomeAssistantOptions, logger logpkg.Logger, m *metrics.Metrics) (*HomeAssistant, error) {
	if sink == nil {
		return nil, errors.New("source: nil sink")
	}
	if opts.URL == "" {
		return nil, errors.New("source: HomeAssistantOptions.URL is required")
	}
	if opts.MinBackoff <= 0 {
		opts.MinBackoff = defaultMinBackoff
	}
	if opts.MaxBackoff < opts.MinBackoff {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("source"))
	}
	return &HomeAssistant{
		sink:    sink,
		opts:    opts,
		logger:  logger,
		metrics: m,
		ids:     id.NewGenerator(),
	}, nil
}

// Run connects and consumes events until ctx is done, reconnecting with
// jittered exponential backoff. It only returns ctx.Err().
func (h *HomeAssistant) Run(ctx context.Context) error {
	wsURL, err := websocketURL(h.opts.URL)
	if err != nil {
		return err
	}

	backoff := h.opts.MinBackoff
	for {
		err := h.consume(ctx, wsURL)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		h.logger.Warn("upstream connection lost, reconnecting",
			logpkg.Err(err), logpkg.Duration("backoff", backoff))
		if h.metrics != nil {
			h.metrics.SourceReconnects.Inc()
		}

		delay := backoff + time.Duration(rand.Int63n(int64(backoff)/4+1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		backoff *= 2
		if backoff > h.opts.MaxBackoff {
			backoff = h.opts.MaxBackoff
		}
	}
}

// consume runs one connection: handshake, subscribe, then the read loop.
func (h *HomeAssistant) consume(ctx context.Context, wsURL string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	// Unblock the read loop when ctx is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if err := h.handshake(conn); err != nil {
		return err
	}
	if err := h.subscribe(conn); err != nil {
		return err
	}
	h.logger.Info("subscribed to state_changed events", logpkg.Str("url", wsURL))

	for {
		var msg serverMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if msg.Type != "event" || msg.Event == nil || msg.Event.EventType != "state_changed" {
			continue
		}
		h.forward(msg.Event)
	}
}

func (h *HomeAssistant) handshake(conn *websocket.Conn) error {
	var hello serverMessage
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("read auth_required: %w", err)
	}
	if hello.Type != "auth_required" {
		return fmt.Errorf("unexpected greeting %q", hello.Type)
	}
	if err := conn.WriteJSON(authMessage{Type: "auth", AccessToken: h.opts.Token}); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}
	var result serverMessage
	if err := conn.ReadJSON(&result); err != nil {
		return fmt.Errorf("read auth result: %w", err)
	}
	if result.Type != "auth_ok" {
		return fmt.Errorf("auth rejected: %s", result.Type)
	}
	return nil
}

func (h *HomeAssistant) subscribe(conn *websocket.Conn) error {
	sub := subscribeMessage{ID: subscribeID, Type: "subscribe_events", EventType: "state_changed"}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("send subscribe: %w", err)
	}
	var result serverMessage
	if err := conn.ReadJSON(&result); err != nil {
		return fmt.Errorf("read subscribe result: %w", err)
	}
	if result.Type != "result" || result.Success == nil || !*result.Success {
		return fmt.Errorf("subscribe rejected: type=%s", result.Type)
	}
	return nil
}

func (h *HomeAssistant) forward(ev *stateChangedEvent) {
	// Deleted entities arrive with a null new_state; nothing to deliver.
	if len(ev.Data.NewState) == 0 || string(ev.Data.NewState) == "null" {
		return
	}
	contextID := ev.Context.ID
	if contextID == "" {
		contextID = h.ids.Next().String()
	}
	ts := ev.TimeFired
	if ts.IsZero() {
		ts = time.Now()
	}
	h.sink.OnChange(ev.Data.EntityID, ev.Data.NewState, contextID, ts)
}

type authMessage struct {
	Type        string `json:"type"`
	AccessToken string `json:"access_token"`
}

type subscribeMessage struct {
	ID        int    `json:"id"`
	Type      string `json:"type"`
	EventType string `json:"event_type"`
}

type serverMessage struct {
	ID      int                `json:"id,omitempty"`
	Type    string             `json:"type"`
	Success *bool              `json:"success,omitempty"`
	Event   *stateChangedEvent `json:"event,omitempty"`
}

type stateChangedEvent struct {
	EventType string `json:"event_type"`
	Data      struct {
		EntityID string          `json:"entity_id"`
		NewState json.RawMessage `json:"new_state"`
	} `json:"data"`
	Context struct {
		ID string `json:"id"`
	} `json:"context"`
	TimeFired time.Time `json:"time_fired"`
}

// websocketURL derives the ws endpoint from a Home Assistant base URL.
func websocketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse upstream url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported upstream scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/websocket"
	return u.String(), nil
}
