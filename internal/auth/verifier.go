package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	pebblestore "github.com/NylonDiamond/wrist-assistant-hacs/internal/storage/pebble"
)

// LocalVerifier accepts configured static tokens and tokens minted by a
// LocalIssuer sharing the same store.
type LocalVerifier struct {
	db     *pebblestore.DB
	static []string
	now    func() time.Time
}

// NewLocalVerifier returns a verifier for the given store and static token
// list. db may be nil when only static tokens are configured.
func NewLocalVerifier(db *pebblestore.DB, staticTokens []string) *LocalVerifier {
	return &LocalVerifier{
		db:     db,
		static: append([]string(nil), staticTokens...),
		now:    time.Now,
	}
}

// Verify authenticates the request's bearer token.
func (v *LocalVerifier) Verify(r *http.Request) (Principal, error) {
	token := BearerToken(r)
	if token == "" {
		return Principal{}, ErrUnauthorized
	}

	for _, s := range v.static {
		if subtle.ConstantTimeCompare([]byte(token), []byte(s)) == 1 {
			return Principal{Subject: "static", Static: true}, nil
		}
	}

	if v.db == nil {
		return Principal{}, ErrUnauthorized
	}

	key := tokenKey(token)
	raw, err := v.db.Get(key)
	if errors.Is(err, pebblestore.ErrNotFound) {
		return Principal{}, ErrUnauthorized
	}
	if err != nil {
		return Principal{}, err
	}

	var rec tokenRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Principal{}, err
	}
	if v.now().After(rec.ExpiresAt) {
		// Expired credential; drop it so the store does not accumulate.
		_ = v.db.Delete(key)
		return Principal{}, ErrUnauthorized
	}
	return Principal{Subject: hashHex(token)[:12]}, nil
}
