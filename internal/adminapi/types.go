package adminapi

import "time"

// cameraResponse is the JSON shape for a Camera record on the admin surface
// (§6), named fields matching §3's table rather than model.Camera's Go
// naming so the wire contract stays stable if the internal type changes.
type cameraResponse struct {
	UID              string            `json:"uid"`
	DevicePath       string            `json:"device_path"`
	HardwareName     string            `json:"hardware_name"`
	FriendlyName     string            `json:"friendly_name"`
	Capabilities     map[string]any    `json:"capabilities"`
	Format           string            `json:"format"`
	Resolution       string            `json:"resolution"`
	Framerate        int               `json:"framerate"`
	BitrateBps       int64             `json:"bitrate_bps"`
	Rotation         int               `json:"rotation"`
	Encoder          string            `json:"encoder"`
	InputFormat      string            `json:"input_format"`
	Controls         map[string]int    `json:"controls"`
	OverlayPath      string            `json:"overlay_path"`
	OverlayFontSize  int               `json:"overlay_font_size"`
	OverlayPosition  string            `json:"overlay_position"`
	OverlayColor     string            `json:"overlay_color"`
	MoonrakerEnabled bool              `json:"moonraker_enabled"`
	Enabled          bool              `json:"enabled"`
	Connected        bool              `json:"connected"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// updateCameraRequest is a partial update; nil fields are left unchanged.
type updateCameraRequest struct {
	FriendlyName     *string `json:"friendly_name"`
	Format           *string `json:"format"`
	Resolution       *string `json:"resolution"`
	Framerate        *int    `json:"framerate"`
	BitrateBps       *int64  `json:"bitrate_bps"`
	Rotation         *int    `json:"rotation"`
	Encoder          *string `json:"encoder"`
	OverlayPath      *string `json:"overlay_path"`
	OverlayFontSize  *int    `json:"overlay_font_size"`
	OverlayPosition  *string `json:"overlay_position"`
	OverlayColor     *string `json:"overlay_color"`
	MoonrakerEnabled *bool   `json:"moonraker_enabled"`
	Enabled          *bool   `json:"enabled"`
	Controls         map[string]int `json:"controls"`
}

// addDeviceRequest is the body of §6's "add device". The handler only
// requests a reconcile tick: it does not register DevicePath with the
// Device Tracker, and Overrides are decoded but not applied.
type addDeviceRequest struct {
	DevicePath string          `json:"device_path"`
	Overrides  *updateCameraRequest `json:"overrides"`
}

// errorResponse is the {error, message, timestamp} shape used for every
// non-2xx response.
type errorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// tickResponse is the `{ok, sync_errors}` shape §7 specifies for
// administrative operations that trigger a reconcile tick.
type tickResponse struct {
	OK            bool              `json:"ok"`
	CorrelationID string            `json:"correlation_id"`
	StreamErrors  map[string]string `json:"stream_errors"`
	SyncErrors    map[string]string `json:"sync_errors"`
	ControlErrors map[string]string `json:"control_errors"`
	StreamSkipped bool              `json:"stream_skipped"`
	SyncSkipped   bool              `json:"sync_skipped"`
}

// statusResponse reports process and host diagnostics (§6, plus the
// Raspberry-Pi/platform-info supplement).
type statusResponse struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	Cameras      int       `json:"cameras"`
	CPUScore     int       `json:"cpu_score"`
	Encoders     []string  `json:"available_encoders"`
	IsRaspberryPi bool     `json:"is_raspberry_pi"`
	PlatformModel string   `json:"platform_model"`
	FFmpegOK     bool      `json:"ffmpeg_ok"`
	V4L2UtilsOK  bool      `json:"v4l2_utils_ok"`
}
