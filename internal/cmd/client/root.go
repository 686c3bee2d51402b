package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the wristd client.
// It registers the pair, watch, and ingest command groups.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "wristd",
		Short: "wristd client commands",
	}
	root.AddCommand(NewPairCommand(baseURL))
	root.AddCommand(NewWatchCommand(baseURL))
	root.AddCommand(NewIngestCommand(baseURL))
	return root
}
