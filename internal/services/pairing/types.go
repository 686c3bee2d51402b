package pairingsvc

import (
	"errors"
	"time"
)

var (
	// ErrNotFound reports an unknown pairing code.
	ErrNotFound = errors.New("pairing: code not found")
	// ErrExpired reports a code past its expiry, never redeemed.
	ErrExpired = errors.New("pairing: code expired")
	// ErrAlreadyRedeemed reports a code that was already exchanged.
	ErrAlreadyRedeemed = errors.New("pairing: code already redeemed")
)

// DefaultCodeTTL is how long a freshly created code stays redeemable.
const DefaultCodeTTL = 10 * time.Minute

// Payload is the connection material a code carries to the watch.
type Payload struct {
	HomeAssistantURL string `json:"home_assistant_url"`
	LocalURL         string `json:"local_url"`
	RemoteURL        string `json:"remote_url"`
	LifespanDays     int    `json:"lifespan_days"`
}

// CreateResult describes a newly issued code.
type CreateResult struct {
	Code         string    `json:"pairing_code"`
	URI          string    `json:"pairing_uri"`
	ExpiresAt    time.Time `json:"expires_at"`
	LifespanDays int       `json:"lifespan_days"`
	Payload      Payload   `json:"-"`
}

// RedeemResult is the credential handed back for a winning redemption.
type RedeemResult struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	AuthMode         string `json:"auth_mode"`
	ExpiresIn        int64  `json:"expires_in"`
	HomeAssistantURL string `json:"home_assistant_url"`
	LocalURL         string `json:"local_url"`
	RemoteURL        string `json:"remote_url"`
}
