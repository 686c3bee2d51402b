package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func newBufLogger(level Level, f Formatter) (*bytes.Buffer, Logger) {
	var buf bytes.Buffer
	l := NewLogger(WithLevel(level), WithFormatter(f), WithOutput(NewWriterOutput(&buf)))
	return &buf, l
}

func TestLevelFiltering(t *testing.T) {
	buf, l := newBufLogger(WarnLevel, &TextFormatter{DisableTimestamp: true})
	l.Debug("nope")
	l.Info("nope")
	l.Warn("kept")
	if got := buf.String(); !strings.Contains(got, "kept") || strings.Contains(got, "nope") {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestTextFormatterFields(t *testing.T) {
	buf, l := newBufLogger(InfoLevel, &TextFormatter{DisableTimestamp: true})
	l.Info("poll done", Str("watch_id", "w1"), Uint64("cursor", 42))
	got := buf.String()
	if !strings.Contains(got, "watch_id=w1") || !strings.Contains(got, "cursor=42") {
		t.Fatalf("fields missing: %q", got)
	}
}

func TestJSONFormatter(t *testing.T) {
	buf, l := newBufLogger(InfoLevel, &JSONFormatter{})
	l.With(Component("delta")).Info("appended", Int("count", 3))
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("invalid json: %v (%q)", err, buf.String())
	}
	if m["msg"] != "appended" || m["component"] != "delta" {
		t.Fatalf("unexpected entry: %v", m)
	}
}

func TestErrField(t *testing.T) {
	buf, l := newBufLogger(InfoLevel, &TextFormatter{DisableTimestamp: true})
	l.Error("redeem failed", Err(errors.New("boom")))
	if !strings.Contains(buf.String(), `error="boom"`) {
		t.Fatalf("error field missing: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if lvl, err := ParseLevel("debug"); err != nil || lvl != DebugLevel {
		t.Fatalf("debug parse: %v %v", lvl, err)
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestApplyConfig(t *testing.T) {
	l, err := ApplyConfig(&Config{Level: "error", Format: "json"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if l.GetLevel() != ErrorLevel {
		t.Fatalf("level = %v", l.GetLevel())
	}
	if _, err := ApplyConfig(&Config{Format: "xml"}); err == nil {
		t.Fatalf("expected format error")
	}
}
