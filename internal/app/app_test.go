package app

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"ravensperch/internal/config"
)

func testConfig(t *testing.T, port int) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         port,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		Reconcile: config.ReconcileConfig{
			TickInterval:   time.Hour,
			TickBudget:     5 * time.Second,
			CallTimeout:    500 * time.Millisecond,
			DebounceWindow: 50 * time.Millisecond,
			PollInterval:   time.Hour,
		},
		MediaMTX: config.MediaMTXConfig{
			APIBase:    "http://127.0.0.1:19997",
			RTSPPort:   18554,
			HLSPort:    18888,
			WebRTCPort: 18889,
		},
		Moonraker: config.MoonrakerConfig{
			URL:          "http://127.0.0.1:1", // unreachable, exercises detection failure path
			FallbackURLs: nil,
		},
		Store: config.StoreConfig{
			DataDir: dir,
			DBPath:  filepath.Join(dir, "test.db"),
		},
		LogLevel: "error",
		BaseHost: "127.0.0.1",
	}
}

func TestApp_RunStopsOnContextCancel(t *testing.T) {
	cfg := testConfig(t, 18586)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(4 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}

func TestApp_HealthEndpointReachable(t *testing.T) {
	cfg := testConfig(t, 18587)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	go a.Run(ctx)
	defer cancel()

	time.Sleep(300 * time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://%s/health", cfg.ServerAddress()))
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
