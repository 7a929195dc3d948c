package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8585 {
		t.Errorf("Server.Port = %d, want 8585", cfg.Server.Port)
	}
	if cfg.Reconcile.TickInterval != 10*time.Second {
		t.Errorf("Reconcile.TickInterval = %v, want 10s", cfg.Reconcile.TickInterval)
	}
	if cfg.MediaMTX.APIBase != "http://127.0.0.1:9997" {
		t.Errorf("MediaMTX.APIBase = %q, want http://127.0.0.1:9997", cfg.MediaMTX.APIBase)
	}
	if cfg.Moonraker.URL != "http://127.0.0.1:7125" {
		t.Errorf("Moonraker.URL = %q, want http://127.0.0.1:7125", cfg.Moonraker.URL)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RAVENS_PERCH_PORT", "9090")
	t.Setenv("RAVENS_PERCH_TICK_INTERVAL", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Reconcile.TickInterval != 5*time.Second {
		t.Errorf("Reconcile.TickInterval = %v, want 5s", cfg.Reconcile.TickInterval)
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := &Config{
		Server:    ServerConfig{Port: 0},
		Reconcile: ReconcileConfig{TickInterval: time.Second},
		MediaMTX:  MediaMTXConfig{APIBase: "http://127.0.0.1:9997"},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() error = nil, want error for port 0")
	}
}

func TestServerAddress(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Host: "0.0.0.0", Port: 8585}}
	if got := cfg.ServerAddress(); got != "0.0.0.0:8585" {
		t.Errorf("ServerAddress() = %q, want 0.0.0.0:8585", got)
	}
}
