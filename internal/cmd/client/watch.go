package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

// NewWatchCommand constructs the `watch` command group and subcommands.
func NewWatchCommand(baseURL BaseURLFunc) *cobra.Command {
	watchCmd := &cobra.Command{Use: "watch", Short: "Watch sync operations"}
	watchCmd.AddCommand(
		newWatchTailCommand(baseURL),
		newWatchStatusCommand(baseURL),
		newWatchResyncCommand(baseURL),
	)
	return watchCmd
}

type pollResponse struct {
	Events         []json.RawMessage `json:"events"`
	NextCursor     string            `json:"next_cursor"`
	NeedEntities   bool              `json:"need_entities"`
	ResyncRequired bool              `json:"resync_required"`
}

// newWatchTailCommand constructs the `watch tail` subcommand. It runs the
// same loop a real watch does: handshake, then poll with an advancing
// cursor, restarting from scratch on 410.
func newWatchTailCommand(baseURL BaseURLFunc) *cobra.Command {
	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow delta events like a watch client",
		RunE: func(cmd *cobra.Command, _ []string) error {
			watchID, _ := cmd.Flags().GetString("watch-id")
			entitiesCSV, _ := cmd.Flags().GetString("entities")
			filter, _ := cmd.Flags().GetString("filter")
			timeout, _ := cmd.Flags().GetInt("timeout")
			limit, _ := cmd.Flags().GetInt("limit")
			token, _ := cmd.Flags().GetString("token")
			if token == "" {
				token = tokenFromEnv()
			}
			if entitiesCSV == "" {
				return fmt.Errorf("--entities is required")
			}
			entities := strings.Split(entitiesCSV, ",")
			for i := range entities {
				entities[i] = strings.TrimSpace(entities[i])
			}
			// A cheap stand-in for the real client's config fingerprint.
			configHash := fmt.Sprintf("cli-%d", len(entitiesCSV))

			enc := json.NewEncoder(cmd.OutOrStdout())
			since := ""
			sendEntities := true
			printed := 0
			for {
				body := map[string]any{
					"watch_id":    watchID,
					"config_hash": configHash,
					"filter":      filter,
				}
				if timeout > 0 {
					body["timeout"] = timeout
				}
				if since != "" {
					body["since"] = since
				}
				if sendEntities {
					body["entities"] = entities
				}

				status, resp, next, err := pollOnce(cmd.Context(), baseURL()+"/api/watch/updates", token, body)
				if err != nil {
					return err
				}
				switch status {
				case http.StatusNoContent:
					if next != "" {
						since = next
					}
				case http.StatusGone:
					// History we were tracking is gone; start over live.
					since = ""
					sendEntities = true
					fmt.Fprintln(cmd.ErrOrStderr(), "cursor stale, resyncing")
				case http.StatusOK:
					if resp.NeedEntities {
						sendEntities = true
						continue
					}
					sendEntities = false
					for _, ev := range resp.Events {
						_ = enc.Encode(json.RawMessage(ev))
						printed++
						if limit > 0 && printed >= limit {
							return nil
						}
					}
					since = resp.NextCursor
				}
			}
		},
	}
	tailCmd.Flags().String("watch-id", "cli", "Watch identifier")
	tailCmd.Flags().String("entities", "", "Comma-separated entity IDs to follow")
	tailCmd.Flags().String("filter", "", "CEL filter (server-side)")
	tailCmd.Flags().Int("timeout", 0, "Long-poll timeout seconds (0 = server default)")
	tailCmd.Flags().Int("limit", 0, "Stop after N events (0 = infinite)")
	tailCmd.Flags().String("token", "", "Bearer token (default WRISTD_TOKEN)")
	return tailCmd
}

// pollOnce performs one long-poll request. It returns the status, the
// decoded body for 200/410, and the X-Next-Cursor header for 204.
func pollOnce(ctx context.Context, url, token string, body map[string]any) (int, pollResponse, string, error) {
	var out pollResponse
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, out, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return 0, out, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, out, "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusGone:
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return resp.StatusCode, out, "", err
		}
		return resp.StatusCode, out, "", nil
	case http.StatusNoContent:
		return resp.StatusCode, out, resp.Header.Get("X-Next-Cursor"), nil
	default:
		var ae apiError
		if json.NewDecoder(resp.Body).Decode(&ae) == nil && ae.Error != "" {
			return resp.StatusCode, out, "", fmt.Errorf("%s: %s", resp.Status, ae.Error)
		}
		return resp.StatusCode, out, "", fmt.Errorf("%s", resp.Status)
	}
}

// newWatchStatusCommand constructs the `watch status` subcommand.
func newWatchStatusCommand(baseURL BaseURLFunc) *cobra.Command {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon diagnostics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, _ := cmd.Flags().GetString("token")
			if token == "" {
				token = tokenFromEnv()
			}
			var out map[string]any
			if _, err := doJSON(cmd.Context(), http.MethodGet, baseURL()+"/v1/diagnostics", token, nil, &out); err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), out)
			return nil
		},
	}
	statusCmd.Flags().String("token", "", "Bearer token (default WRISTD_TOKEN)")
	return statusCmd
}

// newWatchResyncCommand constructs the `watch resync` subcommand.
func newWatchResyncCommand(baseURL BaseURLFunc) *cobra.Command {
	resyncCmd := &cobra.Command{
		Use:   "resync",
		Short: "Force every watch to re-handshake and refresh",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, _ := cmd.Flags().GetString("token")
			if token == "" {
				token = tokenFromEnv()
			}
			var out map[string]any
			if _, err := doJSON(cmd.Context(), http.MethodPost, baseURL()+"/v1/admin/resync", token, nil, &out); err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), out)
			return nil
		},
	}
	resyncCmd.Flags().String("token", "", "Bearer token (default WRISTD_TOKEN)")
	return resyncCmd
}

// NewIngestCommand constructs the `ingest` subcommand for pushing synthetic
// change events into a running daemon.
func NewIngestCommand(baseURL BaseURLFunc) *cobra.Command {
	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Push a synthetic change event",
		RunE: func(cmd *cobra.Command, _ []string) error {
			entityID, _ := cmd.Flags().GetString("entity-id")
			state, _ := cmd.Flags().GetString("state")
			contextID, _ := cmd.Flags().GetString("context-id")
			token, _ := cmd.Flags().GetString("token")
			if token == "" {
				token = tokenFromEnv()
			}
			if entityID == "" || state == "" {
				return fmt.Errorf("--entity-id and --state are required")
			}
			if !json.Valid([]byte(state)) {
				return fmt.Errorf("--state must be valid JSON")
			}

			var out map[string]any
			_, err := doJSON(cmd.Context(), http.MethodPost, baseURL()+"/v1/ingest", token, map[string]any{
				"entity_id":  entityID,
				"new_state":  json.RawMessage(state),
				"context_id": contextID,
			}, &out)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), out)
			return nil
		},
	}
	ingestCmd.Flags().String("entity-id", "", "Entity ID")
	ingestCmd.Flags().String("state", "", "New state JSON object")
	ingestCmd.Flags().String("context-id", "", "Optional context ID")
	ingestCmd.Flags().String("token", "", "Bearer token (default WRISTD_TOKEN)")
	return ingestCmd
}
