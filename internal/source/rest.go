package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	logpkg "github.com/NylonDiamond/wrist-assistant-hacs/pkg/log"
)

// EntityState is one entry from the hub's state list.
type EntityState struct {
	EntityID   string `json:"entity_id"`
	State      string `json:"state"`
	Attributes struct {
		FriendlyName string `json:"friendly_name"`
	} `json:"attributes"`
}

// RESTOptions configures the hub REST client.
type RESTOptions struct {
	// URL is the hub base URL, e.g. http://homeassistant.local:8123.
	URL   string
	Token string
	// Client overrides the default HTTP client.
	Client *http.Client
}

// REST is a client for the hub's HTTP API. It serves the camera surface:
// state listing for device grouping and the camera proxy for frames.
type REST struct {
	base   string
	token  string
	client *http.Client
	logger logpkg.Logger
}

// NewREST validates the base URL and returns a client.
func NewREST(opts RESTOptions, logger logpkg.Logger) (*REST, error) {
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported upstream scheme %q", u.Scheme)
	}
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("source.rest"))
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &REST{
		base:   u.Scheme + "://" + u.Host,
		token:  opts.Token,
		client: client,
		logger: logger,
	}, nil
}

// States fetches the full entity state list.
func (r *REST) States(ctx context.Context) ([]EntityState, error) {
	body, _, err := r.getWithType(ctx, "/api/states")
	if err != nil {
		return nil, err
	}
	var states []EntityState
	if err := json.Unmarshal(body, &states); err != nil {
		return nil, fmt.Errorf("decode states: %w", err)
	}
	return states, nil
}

// CameraSnapshot fetches one still frame for a camera entity through the
// hub's camera proxy. It returns the frame bytes and content type.
func (r *REST) CameraSnapshot(ctx context.Context, entityID string) ([]byte, string, error) {
	return r.getWithType(ctx, "/api/camera_proxy/"+url.PathEscape(entityID))
}

func (r *REST) getWithType(ctx context.Context, path string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+path, nil)
	if err != nil {
		return nil, "", err
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, "", fmt.Errorf("upstream %s: %s", path, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return body, resp.Header.Get("Content-Type"), nil
}
