package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type recordingSink struct {
	mu     sync.Mutex
	events []recordedEvent
	ch     chan struct{}
}

type recordedEvent struct {
	entityID  string
	state     string
	contextID string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{ch: make(chan struct{}, 16)}
}

func (s *recordingSink) OnChange(entityID string, newState json.RawMessage, contextID string, _ time.Time) {
	s.mu.Lock()
	s.events = append(s.events, recordedEvent{entityID: entityID, state: string(newState), contextID: contextID})
	s.mu.Unlock()
	s.ch <- struct{}{}
}

func (s *recordingSink) snapshot() []recordedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedEvent(nil), s.events...)
}

var testUpgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// fakeHub speaks just enough of the Home Assistant websocket protocol for
// the subscriber: auth handshake, subscribe ack, then scripted events.
func fakeHub(t *testing.T, wantToken string, script func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/websocket" {
			http.NotFound(w, r)
			return
		}
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteJSON(map[string]any{"type": "auth_required"})
		var auth struct {
			Type        string `json:"type"`
			AccessToken string `json:"access_token"`
		}
		if err := conn.ReadJSON(&auth); err != nil {
			return
		}
		if auth.AccessToken != wantToken {
			conn.WriteJSON(map[string]any{"type": "auth_invalid"})
			return
		}
		conn.WriteJSON(map[string]any{"type": "auth_ok"})

		var sub struct {
			ID        int    `json:"id"`
			Type      string `json:"type"`
			EventType string `json:"event_type"`
		}
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		if sub.Type != "subscribe_events" || sub.EventType != "state_changed" {
			t.Errorf("unexpected subscribe message: %+v", sub)
			return
		}
		conn.WriteJSON(map[string]any{"id": sub.ID, "type": "result", "success": true})

		script(conn)
	}))
}

func stateChanged(entityID, state, contextID string) map[string]any {
	var newState any = map[string]any{"entity_id": entityID, "state": state}
	if state == "" {
		newState = nil
	}
	return map[string]any{
		"id":   1,
		"type": "event",
		"event": map[string]any{
			"event_type": "state_changed",
			"data":       map[string]any{"entity_id": entityID, "new_state": newState},
			"context":    map[string]any{"id": contextID},
			"time_fired": time.Now().Format(time.RFC3339Nano),
		},
	}
}

func TestSubscriberForwardsEvents(t *testing.T) {
	hold := make(chan struct{})
	srv := fakeHub(t, "tok", func(conn *websocket.Conn) {
		conn.WriteJSON(stateChanged("light.kitchen", "on", "ctx-1"))
		conn.WriteJSON(stateChanged("light.kitchen", "", "ctx-2")) // removal, skipped
		conn.WriteJSON(stateChanged("sensor.door", "open", ""))    // missing context id
		<-hold
	})
	defer srv.Close()
	defer close(hold)

	sink := newRecordingSink()
	sub, err := NewHomeAssistant(sink, HomeAssistantOptions{URL: srv.URL, Token: "tok"}, nil, nil)
	if err != nil {
		t.Fatalf("new subscriber: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sub.Run(ctx)

	for i := 0; i < 2; i++ {
		select {
		case <-sink.ch:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}

	events := sink.snapshot()
	if len(events) != 2 {
		t.Fatalf("events = %+v", events)
	}
	if events[0].entityID != "light.kitchen" || events[0].contextID != "ctx-1" {
		t.Fatalf("first event = %+v", events[0])
	}
	if events[1].entityID != "sensor.door" || events[1].contextID == "" {
		t.Fatalf("missing context id was not filled: %+v", events[1])
	}
}

func TestSubscriberReconnects(t *testing.T) {
	var mu sync.Mutex
	connects := 0
	srv := fakeHub(t, "tok", func(conn *websocket.Conn) {
		mu.Lock()
		connects++
		n := connects
		mu.Unlock()
		if n == 1 {
			return // drop the first connection right after subscribe
		}
		conn.WriteJSON(stateChanged("light.a", "on", "ctx"))
		time.Sleep(100 * time.Millisecond)
	})
	defer srv.Close()

	sink := newRecordingSink()
	sub, err := NewHomeAssistant(sink, HomeAssistantOptions{
		URL: srv.URL, Token: "tok",
		MinBackoff: 10 * time.Millisecond, MaxBackoff: 50 * time.Millisecond,
	}, nil, nil)
	if err != nil {
		t.Fatalf("new subscriber: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sub.Run(ctx)

	select {
	case <-sink.ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("no event after reconnect")
	}
	mu.Lock()
	if connects < 2 {
		t.Fatalf("connects = %d, want >= 2", connects)
	}
	mu.Unlock()
}

func TestRunStopsOnCancel(t *testing.T) {
	hold := make(chan struct{})
	defer close(hold)
	srv := fakeHub(t, "tok", func(*websocket.Conn) { <-hold })
	defer srv.Close()

	sub, err := NewHomeAssistant(newRecordingSink(), HomeAssistantOptions{URL: srv.URL, Token: "tok"}, nil, nil)
	if err != nil {
		t.Fatalf("new subscriber: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestWebsocketURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"http://ha.local:8123", "ws://ha.local:8123/api/websocket"},
		{"https://example.ui.nabu.casa", "wss://example.ui.nabu.casa/api/websocket"},
		{"http://ha.local:8123/", "ws://ha.local:8123/api/websocket"},
	}
	for _, c := range cases {
		got, err := websocketURL(c.in)
		if err != nil {
			t.Fatalf("websocketURL(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("websocketURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}
	if _, err := websocketURL("ftp://nope"); err == nil {
		t.Fatalf("ftp scheme accepted")
	}
}
