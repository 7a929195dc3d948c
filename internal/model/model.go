// Package model holds the domain types shared across the reconciliation
// engine: camera records, fingerprints, capability maps, and the sum-typed
// device events. Nothing in this package talks to a database, the network,
// or a subprocess — it is pure data plus a handful of pure functions.
package model

import "time"

// Encoder identifies a transcoder backend.
type Encoder string

const (
	EncoderSoftware Encoder = "software"
	EncoderVAAPI    Encoder = "vaapi"
	EncoderV4L2M2M  Encoder = "v4l2m2m"
	EncoderRKMPP    Encoder = "rkmpp"
)

// Rotation is a clockwise rotation applied by the transcoder's video filter.
type Rotation int

const (
	RotationNone Rotation = 0
	Rotation90   Rotation = 90
	Rotation180  Rotation = 180
	Rotation270  Rotation = 270
)

// Fingerprint is the tuple of hardware attributes a UID is derived from.
// When Serial is empty, BusPath participates so that identical VID/PID
// devices on different ports still get distinct UIDs (see §9 open question
// on fingerprint stability without a serial).
type Fingerprint struct {
	VendorID  string
	ProductID string
	Serial    string
	BusPath   string
}

// HasSerial reports whether the device advertises a serial number.
func (f Fingerprint) HasSerial() bool {
	return f.Serial != ""
}

// Resolution is a capture frame size.
type Resolution struct {
	Width  int
	Height int
}

// Pixels returns the area, used to scale bitrate proportionally to frame size.
func (r Resolution) Pixels() int {
	return r.Width * r.Height
}

// ResolutionSet maps a WIDTHxHEIGHT string to its descending-by-frame-count
// framerate list, as advertised by the kernel.
type ResolutionSet map[string][]int

// Capabilities is the nested capability map: format -> resolution -> framerates.
type Capabilities map[string]ResolutionSet

// Controls is a V4L2 control-name to integer-value mapping.
type Controls map[string]int

// Profile is the chosen (format, resolution, framerate, bitrate, encoder, rotation).
type Profile struct {
	Format     string
	Resolution string
	Framerate  int
	BitrateBps int64
	Encoder    Encoder
	Rotation   Rotation
	Warning    string // non-empty when a fallback path was taken
}

// Camera is the authoritative per-camera row, mirrored by internal/store.
type Camera struct {
	UID          string // primary key, stable, derived via internal/fingerprint
	DevicePath   string // empty when detached
	HardwareName string
	FriendlyName string
	Fingerprint Fingerprint

	Capabilities Capabilities

	Format     string
	Resolution string
	Framerate  int
	BitrateBps int64
	Rotation   Rotation
	Encoder    Encoder
	InputFormat string
	Controls    Controls

	OverlayPath      string
	OverlayFontSize  int
	OverlayPosition  string
	OverlayColor     string

	MoonrakerEnabled bool
	Enabled          bool
	Connected        bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep-enough copy so callers can mutate a working copy
// without the Reconciler observing a torn update mid-tick.
func (c Camera) Clone() Camera {
	cp := c
	if c.Capabilities != nil {
		cp.Capabilities = make(Capabilities, len(c.Capabilities))
		for format, rs := range c.Capabilities {
			cpRS := make(ResolutionSet, len(rs))
			for res, fps := range rs {
				cpFPS := make([]int, len(fps))
				copy(cpFPS, fps)
				cpRS[res] = cpFPS
			}
			cp.Capabilities[format] = cpRS
		}
	}
	if c.Controls != nil {
		cp.Controls = make(Controls, len(c.Controls))
		for k, v := range c.Controls {
			cp.Controls[k] = v
		}
	}
	return cp
}

// SystemSettings is the singleton row of process-wide tunables.
type SystemSettings struct {
	CPUThreshold      int
	OrchestrationURL  string
	LogLevel          string
	BaseHost          string
}

// EventAction distinguishes the three device-lifecycle transitions a single
// consumer (the Reconciler) is driven by.
type EventAction int

const (
	Appeared EventAction = iota
	Disappeared
	Changed
)

func (a EventAction) String() string {
	switch a {
	case Appeared:
		return "appeared"
	case Disappeared:
		return "disappeared"
	case Changed:
		return "changed"
	default:
		return "unknown"
	}
}

// DeviceEvent is the sum-typed message the Device Tracker posts to the
// Reconciler. Exactly one of the optional fields is meaningful depending on
// Action: Appeared and Changed carry Fingerprint/Capabilities, Disappeared
// carries only the UID.
type DeviceEvent struct {
	Action       EventAction
	UID          string
	DevicePath   string
	Fingerprint  Fingerprint
	Capabilities Capabilities
}
