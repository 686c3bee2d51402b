package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	clientcmd "github.com/NylonDiamond/wrist-assistant-hacs/internal/cmd/client"
	serverrun "github.com/NylonDiamond/wrist-assistant-hacs/internal/cmd/server"
	cfgpkg "github.com/NylonDiamond/wrist-assistant-hacs/internal/config"
	pebblestore "github.com/NylonDiamond/wrist-assistant-hacs/internal/storage/pebble"
	logpkg "github.com/NylonDiamond/wrist-assistant-hacs/pkg/log"
	"github.com/spf13/cobra"
)

func main() {
	// Respect WRISTD_LOG_LEVEL for both CLI and server start output.
	level := os.Getenv("WRISTD_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)

	// Redirect standard library logs (used by Pebble) to our logger.
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "wristd",
		Short: "Wrist Assistant sync daemon CLI",
		Long:  "wristd is a single-binary delta sync server for watch clients. This CLI manages the server, pairing, and basic sync operations.",
	}

	// server start
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the wristd server",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			httpAddr, _ := cmd.Flags().GetString("http")
			fsyncMode, _ := cmd.Flags().GetString("fsync")
			configPath, _ := cmd.Flags().GetString("config")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")

			mode := pebblestore.FsyncModeAlways
			switch fsyncMode {
			case "never":
				mode = pebblestore.FsyncModeNever
			case "interval":
				mode = pebblestore.FsyncModeInterval
			case "always":
				mode = pebblestore.FsyncModeAlways
			default:
				return fmt.Errorf("invalid --fsync; use always|interval|never")
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfg := cfgpkg.Default()
			if configPath != "" {
				cfg, err = cfgpkg.Load(configPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
			}
			cfgpkg.FromEnv(&cfg)

			if logLevel != "" {
				_ = os.Setenv("WRISTD_LOG_LEVEL", logLevel)
			}
			if logFormat != "" {
				_ = os.Setenv("WRISTD_LOG_FORMAT", logFormat)
			}
			if err := serverrun.Run(ctx, serverrun.Options{
				DataDir:  dataDir,
				HTTPAddr: httpAddr,
				Fsync:    mode,
				Config:   cfg,
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			// brief delay to allow logs flush
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	}
	serverStartCmd.Flags().String("data-dir", "", "Data directory (if not specified, uses OS-specific application data directory)")
	serverStartCmd.Flags().String("http", ":8099", "HTTP listen address")
	serverStartCmd.Flags().String("fsync", "always", "Fsync mode: always|interval|never")
	serverStartCmd.Flags().String("config", os.Getenv("WRISTD_CONFIG"), "Config file path (JSON or YAML)")
	serverStartCmd.Flags().String("log-level", os.Getenv("WRISTD_LOG_LEVEL"), "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", os.Getenv("WRISTD_LOG_FORMAT"), "Log format: text|json (default text)")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	// pair / watch / ingest commands (implemented in internal/cmd/client)
	rootCmd.AddCommand(clientcmd.NewPairCommand(apiURL))
	rootCmd.AddCommand(clientcmd.NewWatchCommand(apiURL))
	rootCmd.AddCommand(clientcmd.NewIngestCommand(apiURL))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func apiURL() string {
	if v := os.Getenv("WRISTD_API"); v != "" {
		return v
	}
	return "http://127.0.0.1:8099"
}
