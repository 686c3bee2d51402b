package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// HomeAssistantURL is the externally advertised base URL of the hub,
	// returned to watches in pairing payloads.
	HomeAssistantURL string `json:"homeAssistantUrl" yaml:"homeAssistantUrl"`

	Delta    DeltaConfig    `json:"delta" yaml:"delta"`
	Sessions SessionConfig  `json:"sessions" yaml:"sessions"`
	Pairing  PairingConfig  `json:"pairing" yaml:"pairing"`
	Auth     AuthConfig     `json:"auth" yaml:"auth"`
	Upstream UpstreamConfig `json:"upstream" yaml:"upstream"`
}

// DeltaConfig tunes the in-memory event log and long-poll behavior.
type DeltaConfig struct {
	// BufferCapacity is the fixed event log size; appending beyond it evicts
	// the oldest event.
	BufferCapacity int `json:"bufferCapacity" yaml:"bufferCapacity"`
	// MaxEventsPerResponse caps one long-poll response.
	MaxEventsPerResponse int `json:"maxEventsPerResponse" yaml:"maxEventsPerResponse"`
	// Timeout bounds for a single long-poll, in seconds.
	DefaultTimeoutSeconds int `json:"defaultTimeoutSeconds" yaml:"defaultTimeoutSeconds"`
	MinTimeoutSeconds     int `json:"minTimeoutSeconds" yaml:"minTimeoutSeconds"`
	MaxTimeoutSeconds     int `json:"maxTimeoutSeconds" yaml:"maxTimeoutSeconds"`
}

// SessionConfig tunes watch session retention.
type SessionConfig struct {
	// TTLSeconds is how long an idle watch session is kept before pruning.
	TTLSeconds int `json:"ttlSeconds" yaml:"ttlSeconds"`
}

// PairingConfig tunes one-time pairing codes.
type PairingConfig struct {
	// CodeTTLMinutes is the pairing code validity window.
	CodeTTLMinutes int `json:"codeTtlMinutes" yaml:"codeTtlMinutes"`
	// DefaultLifespanDays is the token lifespan when a create request omits it.
	DefaultLifespanDays int `json:"defaultLifespanDays" yaml:"defaultLifespanDays"`
}

// AuthConfig configures request verification.
type AuthConfig struct {
	// StaticTokens are always-valid bearer tokens (bootstrap/admin use).
	StaticTokens []string `json:"staticTokens" yaml:"staticTokens"`
}

// UpstreamConfig points at the Home Assistant websocket API used as the
// change-event source. Empty URL disables the websocket source; events can
// still arrive via the ingest endpoint.
type UpstreamConfig struct {
	URL   string `json:"url" yaml:"url"`
	Token string `json:"token" yaml:"token"`
	// ReconnectMinMs / ReconnectMaxMs bound the reconnect backoff.
	ReconnectMinMs int `json:"reconnectMinMs" yaml:"reconnectMinMs"`
	ReconnectMaxMs int `json:"reconnectMaxMs" yaml:"reconnectMaxMs"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Delta: DeltaConfig{
			BufferCapacity:        5000,
			MaxEventsPerResponse:  250,
			DefaultTimeoutSeconds: 45,
			MinTimeoutSeconds:     5,
			MaxTimeoutSeconds:     55,
		},
		Sessions: SessionConfig{TTLSeconds: 300},
		Pairing: PairingConfig{
			CodeTTLMinutes:      10,
			DefaultLifespanDays: 30,
		},
		Upstream: UpstreamConfig{
			ReconnectMinMs: 500,
			ReconnectMaxMs: 30000,
		},
	}
}

// SessionTTL returns the session TTL as a duration.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.Sessions.TTLSeconds) * time.Second
}

// PairingTTL returns the pairing code validity window as a duration.
func (c Config) PairingTTL() time.Duration {
	return time.Duration(c.Pairing.CodeTTLMinutes) * time.Minute
}

// Load reads configuration from a JSON or YAML file (by extension).
// If path is empty, returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	if c.Delta.BufferCapacity <= 0 {
		return fmt.Errorf("config: delta.bufferCapacity must be positive")
	}
	if c.Delta.MinTimeoutSeconds <= 0 || c.Delta.MaxTimeoutSeconds < c.Delta.MinTimeoutSeconds {
		return fmt.Errorf("config: invalid long-poll timeout bounds [%d, %d]",
			c.Delta.MinTimeoutSeconds, c.Delta.MaxTimeoutSeconds)
	}
	if c.Delta.DefaultTimeoutSeconds < c.Delta.MinTimeoutSeconds ||
		c.Delta.DefaultTimeoutSeconds > c.Delta.MaxTimeoutSeconds {
		return fmt.Errorf("config: delta.defaultTimeoutSeconds outside [%d, %d]",
			c.Delta.MinTimeoutSeconds, c.Delta.MaxTimeoutSeconds)
	}
	if c.Pairing.CodeTTLMinutes <= 0 {
		return fmt.Errorf("config: pairing.codeTtlMinutes must be positive")
	}
	return nil
}
