package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

// tokenFromEnv returns the bearer token from WRISTD_TOKEN.
func tokenFromEnv() string {
	return os.Getenv("WRISTD_TOKEN")
}

// apiError is the JSON error body the server writes.
type apiError struct {
	Error string `json:"error"`
}

// doJSON performs one JSON request and decodes the response into out when
// out is non-nil. Non-2xx responses other than allowed become errors
// carrying the server's message.
func doJSON(ctx context.Context, method, url, token string, body any, out any, allowed ...int) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	for _, a := range allowed {
		if resp.StatusCode == a {
			ok = true
		}
	}
	if !ok {
		raw, _ := io.ReadAll(resp.Body)
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil && ae.Error != "" {
			return resp.StatusCode, fmt.Errorf("%s: %s", resp.Status, ae.Error)
		}
		return resp.StatusCode, fmt.Errorf("%s", resp.Status)
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

// printJSON pretty-prints v to w.
func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
