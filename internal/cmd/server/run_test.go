package serverrun

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	cfgpkg "github.com/NylonDiamond/wrist-assistant-hacs/internal/config"
	pebblestore "github.com/NylonDiamond/wrist-assistant-hacs/internal/storage/pebble"
)

func TestGetenvDefault(t *testing.T) {
	os.Setenv("WRISTD_TEST_VAR", "env_value")
	t.Cleanup(func() { os.Unsetenv("WRISTD_TEST_VAR") })

	if got := getenvDefault("WRISTD_TEST_VAR", "default"); got != "env_value" {
		t.Errorf("set var = %q, want env_value", got)
	}
	if got := getenvDefault("WRISTD_TEST_VAR_NOT_SET", "default"); got != "default" {
		t.Errorf("unset var = %q, want default", got)
	}
}

func TestOptionsDataDirFallback(t *testing.T) {
	opts := Options{DataDir: ""}
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}
	if opts.DataDir == "" {
		t.Fatal("DataDir empty after fallback")
	}

	opts = Options{DataDir: "/custom/data"}
	if opts.DataDir != "/custom/data" {
		t.Fatalf("provided DataDir not preserved: %s", opts.DataDir)
	}
}

func TestDataDirStoreSubdirectory(t *testing.T) {
	want := filepath.Join("/tmp/wristd", "store")
	if got := filepath.Join("/tmp/wristd", "store"); got != want {
		t.Fatalf("store dir = %s, want %s", got, want)
	}
}

// TestRunIntegration verifies Run starts and shuts down cleanly. Minimal by
// design since it starts a real listener.
func TestRunIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	opts := Options{
		DataDir:  t.TempDir(),
		HTTPAddr: ":0",
		Fsync:    pebblestore.FsyncModeNever,
		Config:   cfgpkg.Default(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := Run(ctx, opts); err != nil && err != context.DeadlineExceeded && err != context.Canceled {
		t.Errorf("expected clean shutdown, got %v", err)
	}
}
