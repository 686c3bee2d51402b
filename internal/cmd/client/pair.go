package client

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

// NewPairCommand constructs the `pair` command group and subcommands.
func NewPairCommand(baseURL BaseURLFunc) *cobra.Command {
	pairCmd := &cobra.Command{Use: "pair", Short: "Pairing operations"}
	pairCmd.AddCommand(
		newPairCreateCommand(baseURL),
		newPairRedeemCommand(baseURL),
	)
	return pairCmd
}

// newPairCreateCommand constructs the `pair create` subcommand.
func newPairCreateCommand(baseURL BaseURLFunc) *cobra.Command {
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a single-use pairing code",
		RunE: func(cmd *cobra.Command, _ []string) error {
			localURL, _ := cmd.Flags().GetString("local-url")
			remoteURL, _ := cmd.Flags().GetString("remote-url")
			lifespan, _ := cmd.Flags().GetInt("lifespan-days")
			token, _ := cmd.Flags().GetString("token")
			if token == "" {
				token = tokenFromEnv()
			}

			var out map[string]any
			_, err := doJSON(cmd.Context(), http.MethodPost, baseURL()+"/v1/pairing/create", token, map[string]any{
				"local_url":     localURL,
				"remote_url":    remoteURL,
				"lifespan_days": lifespan,
			}, &out)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), out)
			return nil
		},
	}
	createCmd.Flags().String("local-url", "", "LAN URL the watch should use")
	createCmd.Flags().String("remote-url", "", "Remote URL the watch should use")
	createCmd.Flags().Int("lifespan-days", 0, "Issued token lifespan in days (0 = server default)")
	createCmd.Flags().String("token", "", "Bearer token (default WRISTD_TOKEN)")
	return createCmd
}

// newPairRedeemCommand constructs the `pair redeem` subcommand.
func newPairRedeemCommand(baseURL BaseURLFunc) *cobra.Command {
	redeemCmd := &cobra.Command{
		Use:   "redeem",
		Short: "Redeem a pairing code for an access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			code, _ := cmd.Flags().GetString("code")
			if code == "" {
				return fmt.Errorf("--code is required")
			}

			var out map[string]any
			_, err := doJSON(cmd.Context(), http.MethodPost, baseURL()+"/v1/pairing/redeem", "", map[string]any{
				"pairing_code": code,
			}, &out)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), out)
			return nil
		},
	}
	redeemCmd.Flags().String("code", "", "Pairing code")
	return redeemCmd
}
