package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Delta.BufferCapacity != 5000 {
		t.Fatalf("buffer capacity = %d", cfg.Delta.BufferCapacity)
	}
	if cfg.Delta.DefaultTimeoutSeconds != 45 || cfg.Delta.MinTimeoutSeconds != 5 || cfg.Delta.MaxTimeoutSeconds != 55 {
		t.Fatalf("unexpected timeout defaults: %+v", cfg.Delta)
	}
	if cfg.PairingTTL() != 10*time.Minute {
		t.Fatalf("pairing ttl = %v", cfg.PairingTTL())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wristd.yaml")
	body := []byte("homeAssistantUrl: https://hub.example\ndelta:\n  bufferCapacity: 64\nsessions:\n  ttlSeconds: 60\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HomeAssistantURL != "https://hub.example" {
		t.Fatalf("url = %q", cfg.HomeAssistantURL)
	}
	if cfg.Delta.BufferCapacity != 64 {
		t.Fatalf("capacity = %d", cfg.Delta.BufferCapacity)
	}
	// untouched sections keep defaults
	if cfg.Pairing.CodeTTLMinutes != 10 {
		t.Fatalf("pairing ttl = %d", cfg.Pairing.CodeTTLMinutes)
	}
	if cfg.SessionTTL() != time.Minute {
		t.Fatalf("session ttl = %v", cfg.SessionTTL())
	}
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wristd.json")
	body := []byte(`{"delta":{"bufferCapacity":10,"maxEventsPerResponse":3,"defaultTimeoutSeconds":45,"minTimeoutSeconds":5,"maxTimeoutSeconds":55}}`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Delta.MaxEventsPerResponse != 3 {
		t.Fatalf("max events = %d", cfg.Delta.MaxEventsPerResponse)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("WRISTD_BUFFER_CAPACITY", "128")
	t.Setenv("WRISTD_STATIC_TOKENS", "alpha, beta,")
	t.Setenv("WRISTD_UPSTREAM_URL", "ws://hub.local:8123/api/websocket")
	cfg := Default()
	FromEnv(&cfg)
	if cfg.Delta.BufferCapacity != 128 {
		t.Fatalf("capacity = %d", cfg.Delta.BufferCapacity)
	}
	if len(cfg.Auth.StaticTokens) != 2 || cfg.Auth.StaticTokens[1] != "beta" {
		t.Fatalf("tokens = %v", cfg.Auth.StaticTokens)
	}
	if cfg.Upstream.URL == "" {
		t.Fatalf("upstream url not applied")
	}
}

func TestValidateRejectsBadTimeouts(t *testing.T) {
	cfg := Default()
	cfg.Delta.DefaultTimeoutSeconds = 90
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
	cfg = Default()
	cfg.Delta.BufferCapacity = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for capacity")
	}
}
