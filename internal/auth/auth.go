package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// ErrUnauthorized is returned by Verify when the request carries no valid
// credential.
var ErrUnauthorized = errors.New("auth: unauthorized")

// TokenTypeBearer is the token_type reported for issued credentials.
const TokenTypeBearer = "Bearer"

// Principal identifies the authenticated caller of a request.
type Principal struct {
	// Subject is a stable identifier: "static" for configured tokens, or the
	// token hash prefix for issued tokens.
	Subject string
	// Static reports whether the credential came from configuration rather
	// than pairing.
	Static bool
}

// IssuedToken is a freshly minted long-lived credential.
type IssuedToken struct {
	AccessToken string
	TokenType   string
	AuthMode    string
	ExpiresAt   time.Time
	ExpiresIn   int64 // seconds until ExpiresAt
}

// TokenIssuer mints long-lived access tokens, typically at the end of a
// pairing exchange.
type TokenIssuer interface {
	Issue(ctx context.Context, lifespanDays int) (IssuedToken, error)
}

// Verifier authenticates an incoming request.
type Verifier interface {
	Verify(r *http.Request) (Principal, error)
}

// BearerToken extracts the credential from an Authorization header.
// Returns "" when the header is absent or not a bearer scheme.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
