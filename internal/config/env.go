package config

import (
	"os"
	"strconv"
	"strings"
)

// FromEnv overlays WRISTD_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("WRISTD_HOME_ASSISTANT_URL"); v != "" {
		cfg.HomeAssistantURL = v
	}
	if v := os.Getenv("WRISTD_BUFFER_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Delta.BufferCapacity = n
		}
	}
	if v := os.Getenv("WRISTD_MAX_EVENTS_PER_RESPONSE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Delta.MaxEventsPerResponse = n
		}
	}
	if v := os.Getenv("WRISTD_DEFAULT_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Delta.DefaultTimeoutSeconds = n
		}
	}
	if v := os.Getenv("WRISTD_SESSION_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Sessions.TTLSeconds = n
		}
	}
	if v := os.Getenv("WRISTD_PAIRING_TTL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Pairing.CodeTTLMinutes = n
		}
	}
	if v := os.Getenv("WRISTD_PAIRING_LIFESPAN_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Pairing.DefaultLifespanDays = n
		}
	}
	if v := os.Getenv("WRISTD_STATIC_TOKENS"); v != "" {
		parts := strings.Split(v, ",")
		cfg.Auth.StaticTokens = nil
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cfg.Auth.StaticTokens = append(cfg.Auth.StaticTokens, p)
			}
		}
	}
	if v := os.Getenv("WRISTD_UPSTREAM_URL"); v != "" {
		cfg.Upstream.URL = v
	}
	if v := os.Getenv("WRISTD_UPSTREAM_TOKEN"); v != "" {
		cfg.Upstream.Token = v
	}
}
