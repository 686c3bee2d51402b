package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pebblestore "github.com/NylonDiamond/wrist-assistant-hacs/internal/storage/pebble"
)

func openTestDB(t *testing.T) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func authedRequest(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/v1/diagnostics", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func TestBearerToken(t *testing.T) {
	if got := BearerToken(authedRequest("abc")); got != "abc" {
		t.Fatalf("token = %q", got)
	}
	if got := BearerToken(authedRequest("")); got != "" {
		t.Fatalf("token = %q, want empty", got)
	}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic abc")
	if got := BearerToken(r); got != "" {
		t.Fatalf("token = %q, want empty for non-bearer scheme", got)
	}
}

func TestIssueAndVerify(t *testing.T) {
	db := openTestDB(t)
	issuer := NewLocalIssuer(db, nil)

	tok, err := issuer.Issue(context.Background(), 30)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tok.TokenType != TokenTypeBearer || tok.AuthMode != AuthModePaired {
		t.Fatalf("token = %+v", tok)
	}
	if tok.ExpiresIn <= 0 {
		t.Fatalf("expires_in = %d", tok.ExpiresIn)
	}

	v := NewLocalVerifier(db, nil)
	p, err := v.Verify(authedRequest(tok.AccessToken))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if p.Static {
		t.Fatalf("issued token verified as static")
	}

	if _, err := v.Verify(authedRequest("bogus")); err != ErrUnauthorized {
		t.Fatalf("bogus token err = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyStaticToken(t *testing.T) {
	v := NewLocalVerifier(nil, []string{"s3cret"})
	p, err := v.Verify(authedRequest("s3cret"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !p.Static || p.Subject != "static" {
		t.Fatalf("principal = %+v", p)
	}
	if _, err := v.Verify(authedRequest("other")); err != ErrUnauthorized {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if _, err := v.Verify(authedRequest("")); err != ErrUnauthorized {
		t.Fatalf("missing header err = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	db := openTestDB(t)
	issuer := NewLocalIssuer(db, nil)
	issuer.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }

	tok, err := issuer.Issue(context.Background(), 1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	v := NewLocalVerifier(db, nil)
	if _, err := v.Verify(authedRequest(tok.AccessToken)); err != ErrUnauthorized {
		t.Fatalf("expired token err = %v, want ErrUnauthorized", err)
	}
	// expired record is pruned on first sight
	if _, err := db.Get(tokenKey(tok.AccessToken)); err != pebblestore.ErrNotFound {
		t.Fatalf("expired record not pruned: %v", err)
	}
}

func TestRevoke(t *testing.T) {
	db := openTestDB(t)
	issuer := NewLocalIssuer(db, nil)
	tok, err := issuer.Issue(context.Background(), 30)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := issuer.Revoke(tok.AccessToken); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	v := NewLocalVerifier(db, nil)
	if _, err := v.Verify(authedRequest(tok.AccessToken)); err != ErrUnauthorized {
		t.Fatalf("revoked token err = %v, want ErrUnauthorized", err)
	}
}
