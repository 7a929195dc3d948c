// Package config assembles the single configuration record the process is
// started with. Everything here is read once, at startup, from environment
// variables with defaults; nothing in this package holds mutable state.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ServerConfig controls the administrative HTTP surface (§6).
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ReconcileConfig controls the Reconciler's control loop (§4.8, §5).
type ReconcileConfig struct {
	TickInterval   time.Duration
	TickBudget     time.Duration
	CallTimeout    time.Duration
	DebounceWindow time.Duration
	PollInterval   time.Duration
}

// MediaMTXConfig points at the streaming server's control API (§6).
type MediaMTXConfig struct {
	APIBase   string
	RTSPPort  int
	HLSPort   int
	WebRTCPort int
}

// MoonrakerConfig points at the orchestration API, with a fallback list used
// by endpoint auto-detection (supplemented feature, grounded in
// moonraker_client.py: detect_moonraker_url).
type MoonrakerConfig struct {
	URL          string
	FallbackURLs []string
}

// StoreConfig controls the Settings Store's on-disk location.
type StoreConfig struct {
	DataDir string
	DBPath  string
}

// Config is the single record assembled once at process start.
type Config struct {
	Server    ServerConfig
	Reconcile ReconcileConfig
	MediaMTX  MediaMTXConfig
	Moonraker MoonrakerConfig
	Store     StoreConfig

	LogLevel string
	BaseHost string
}

// Load builds a Config from environment variables with defaults, then
// validates it.
func Load() (*Config, error) {
	baseDir := getEnvOrDefault("RAVENS_PERCH_DIR", defaultBaseDir())

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnvOrDefault("RAVENS_PERCH_HOST", "0.0.0.0"),
			Port:         getEnvAsIntOrDefault("RAVENS_PERCH_PORT", 8585),
			ReadTimeout:  getEnvAsDurationOrDefault("RAVENS_PERCH_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDurationOrDefault("RAVENS_PERCH_WRITE_TIMEOUT", 15*time.Second),
		},
		Reconcile: ReconcileConfig{
			TickInterval:   getEnvAsDurationOrDefault("RAVENS_PERCH_TICK_INTERVAL", 10*time.Second),
			TickBudget:     getEnvAsDurationOrDefault("RAVENS_PERCH_TICK_BUDGET", 30*time.Second),
			CallTimeout:    getEnvAsDurationOrDefault("RAVENS_PERCH_CALL_TIMEOUT", 5*time.Second),
			DebounceWindow: getEnvAsDurationOrDefault("RAVENS_PERCH_DEBOUNCE", 500*time.Millisecond),
			PollInterval:   getEnvAsDurationOrDefault("RAVENS_PERCH_POLL_INTERVAL", 2*time.Second),
		},
		MediaMTX: MediaMTXConfig{
			APIBase:    getEnvOrDefault("MEDIAMTX_API_BASE", "http://127.0.0.1:9997"),
			RTSPPort:   getEnvAsIntOrDefault("MEDIAMTX_RTSP_PORT", 8554),
			HLSPort:    getEnvAsIntOrDefault("MEDIAMTX_HLS_PORT", 8888),
			WebRTCPort: getEnvAsIntOrDefault("MEDIAMTX_WEBRTC_PORT", 8889),
		},
		Moonraker: MoonrakerConfig{
			URL: getEnvOrDefault("MOONRAKER_URL", "http://127.0.0.1:7125"),
			FallbackURLs: []string{
				"http://localhost:7125",
				"http://127.0.0.1:7125",
			},
		},
		Store: StoreConfig{
			DataDir: baseDir + "/data",
			DBPath:  baseDir + "/data/ravens-perch.db",
		},
		LogLevel: getEnvOrDefault("RAVENS_PERCH_LOG_LEVEL", "info"),
		BaseHost: getEnvOrDefault("RAVENS_PERCH_BASE_HOST", "127.0.0.1"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks structural invariants a hand-edited environment could violate.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}
	if c.Reconcile.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive")
	}
	if c.MediaMTX.APIBase == "" {
		return fmt.Errorf("mediamtx API base must not be empty")
	}
	return nil
}

// ServerAddress returns the host:port the administrative surface listens on.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/var/lib/ravens-perch"
	}
	return home + "/ravens-perch"
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsDurationOrDefault(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
