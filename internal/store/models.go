package store

import (
	"encoding/json"
	"time"

	"ravensperch/internal/model"
)

// cameraRow is the GORM row mapping for the cameras table (§3, §6). Nested
// structures that have no natural relational shape (capabilities, controls)
// are persisted as JSON columns, the same TEXT-column JSON encoding db.py
// uses for its capabilities/v4l2_controls columns.
type cameraRow struct {
	UID          string `gorm:"column:uid;primaryKey"`
	DevicePath   string `gorm:"column:device_path"`
	HardwareName string `gorm:"column:hardware_name"`
	FriendlyName string `gorm:"column:friendly_name"`

	VendorID  string `gorm:"column:vendor_id"`
	ProductID string `gorm:"column:product_id"`
	Serial    string `gorm:"column:serial"`
	BusPath   string `gorm:"column:bus_path"`

	CapabilitiesJSON string `gorm:"column:capabilities"`

	Format     string `gorm:"column:format"`
	Resolution string `gorm:"column:resolution"`
	Framerate  int    `gorm:"column:framerate"`
	BitrateBps int64  `gorm:"column:bitrate_bps"`
	Rotation   int    `gorm:"column:rotation"`
	Encoder    string `gorm:"column:encoder"`
	InputFormat string `gorm:"column:input_format"`

	ControlsJSON string `gorm:"column:controls"`

	OverlayPath     string `gorm:"column:overlay_path"`
	OverlayFontSize int    `gorm:"column:overlay_font_size"`
	OverlayPosition string `gorm:"column:overlay_position"`
	OverlayColor    string `gorm:"column:overlay_color"`

	MoonrakerEnabled bool `gorm:"column:moonraker_enabled"`
	Enabled          bool `gorm:"column:enabled;default:true"`
	Connected        bool `gorm:"column:connected"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (cameraRow) TableName() string {
	return "cameras"
}

func toRow(c model.Camera) (cameraRow, error) {
	capsJSON, err := json.Marshal(c.Capabilities)
	if err != nil {
		return cameraRow{}, err
	}
	controlsJSON, err := json.Marshal(c.Controls)
	if err != nil {
		return cameraRow{}, err
	}
	return cameraRow{
		UID:              c.UID,
		DevicePath:       c.DevicePath,
		HardwareName:     c.HardwareName,
		FriendlyName:     c.FriendlyName,
		VendorID:         c.Fingerprint.VendorID,
		ProductID:        c.Fingerprint.ProductID,
		Serial:           c.Fingerprint.Serial,
		BusPath:          c.Fingerprint.BusPath,
		CapabilitiesJSON: string(capsJSON),
		Format:           c.Format,
		Resolution:       c.Resolution,
		Framerate:        c.Framerate,
		BitrateBps:       c.BitrateBps,
		Rotation:         int(c.Rotation),
		Encoder:          string(c.Encoder),
		InputFormat:      c.InputFormat,
		ControlsJSON:     string(controlsJSON),
		OverlayPath:      c.OverlayPath,
		OverlayFontSize:  c.OverlayFontSize,
		OverlayPosition:  c.OverlayPosition,
		OverlayColor:     c.OverlayColor,
		MoonrakerEnabled: c.MoonrakerEnabled,
		Enabled:          c.Enabled,
		Connected:        c.Connected,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}, nil
}

func fromRow(r cameraRow) (model.Camera, error) {
	var caps model.Capabilities
	if r.CapabilitiesJSON != "" {
		if err := json.Unmarshal([]byte(r.CapabilitiesJSON), &caps); err != nil {
			return model.Camera{}, err
		}
	}
	var controls model.Controls
	if r.ControlsJSON != "" {
		if err := json.Unmarshal([]byte(r.ControlsJSON), &controls); err != nil {
			return model.Camera{}, err
		}
	}
	return model.Camera{
		UID:          r.UID,
		DevicePath:   r.DevicePath,
		HardwareName: r.HardwareName,
		FriendlyName: r.FriendlyName,
		Fingerprint: model.Fingerprint{
			VendorID:  r.VendorID,
			ProductID: r.ProductID,
			Serial:    r.Serial,
			BusPath:   r.BusPath,
		},
		Capabilities:     caps,
		Format:           r.Format,
		Resolution:       r.Resolution,
		Framerate:        r.Framerate,
		BitrateBps:       r.BitrateBps,
		Rotation:         model.Rotation(r.Rotation),
		Encoder:          model.Encoder(r.Encoder),
		InputFormat:      r.InputFormat,
		Controls:         controls,
		OverlayPath:      r.OverlayPath,
		OverlayFontSize:  r.OverlayFontSize,
		OverlayPosition:  r.OverlayPosition,
		OverlayColor:     r.OverlayColor,
		MoonrakerEnabled: r.MoonrakerEnabled,
		Enabled:          r.Enabled,
		Connected:        r.Connected,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}, nil
}

// settingRow is the GORM row mapping for the settings table, a plain
// key/value scalar store (§6).
type settingRow struct {
	Key   string `gorm:"column:key;primaryKey"`
	Value string `gorm:"column:value"`
}

func (settingRow) TableName() string {
	return "settings"
}

// logRow is the GORM row mapping for the append-only logs table (§6).
type logRow struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Timestamp time.Time `gorm:"column:ts"`
	Level     string    `gorm:"column:level"`
	CameraUID *string   `gorm:"column:camera_uid"`
	Message   string    `gorm:"column:message"`
}

func (logRow) TableName() string {
	return "logs"
}
