package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	pebblestore "github.com/NylonDiamond/wrist-assistant-hacs/internal/storage/pebble"
	logpkg "github.com/NylonDiamond/wrist-assistant-hacs/pkg/log"
)

const (
	tokenKeyPrefix = "auth/token/"

	// AuthModePaired marks credentials minted through the pairing exchange.
	AuthModePaired = "paired"

	// DefaultLifespanDays applies when Issue is called with lifespan <= 0.
	DefaultLifespanDays = 30
)

type tokenRecord struct {
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LocalIssuer mints random bearer tokens and persists their SHA-256 hashes.
type LocalIssuer struct {
	db     *pebblestore.DB
	logger logpkg.Logger
	now    func() time.Time
}

// NewLocalIssuer returns an issuer backed by the given store.
func NewLocalIssuer(db *pebblestore.DB, logger logpkg.Logger) *LocalIssuer {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("auth"))
	}
	return &LocalIssuer{db: db, logger: logger, now: time.Now}
}

// Issue mints a new token valid for lifespanDays.
func (i *LocalIssuer) Issue(_ context.Context, lifespanDays int) (IssuedToken, error) {
	if lifespanDays <= 0 {
		lifespanDays = DefaultLifespanDays
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return IssuedToken{}, fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(raw)

	now := i.now()
	expires := now.Add(time.Duration(lifespanDays) * 24 * time.Hour)
	rec, err := json.Marshal(tokenRecord{IssuedAt: now, ExpiresAt: expires})
	if err != nil {
		return IssuedToken{}, err
	}
	if err := i.db.Set(tokenKey(token), rec); err != nil {
		return IssuedToken{}, fmt.Errorf("store token: %w", err)
	}

	i.logger.Info("issued access token",
		logpkg.Str("subject", hashHex(token)[:12]),
		logpkg.Int("lifespan_days", lifespanDays))

	return IssuedToken{
		AccessToken: token,
		TokenType:   TokenTypeBearer,
		AuthMode:    AuthModePaired,
		ExpiresAt:   expires,
		ExpiresIn:   int64(expires.Sub(now) / time.Second),
	}, nil
}

// Revoke removes an issued token. Unknown tokens are a no-op.
func (i *LocalIssuer) Revoke(token string) error {
	return i.db.Delete(tokenKey(token))
}

func hashHex(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func tokenKey(token string) []byte {
	return []byte(tokenKeyPrefix + hashHex(token))
}
