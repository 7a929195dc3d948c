package adminapi

import "ravensperch/internal/model"

func toCameraResponse(c model.Camera) cameraResponse {
	return cameraResponse{
		UID:              c.UID,
		DevicePath:       c.DevicePath,
		HardwareName:     c.HardwareName,
		FriendlyName:     c.FriendlyName,
		Capabilities:     capabilitiesToJSON(c.Capabilities),
		Format:           c.Format,
		Resolution:       c.Resolution,
		Framerate:        c.Framerate,
		BitrateBps:       c.BitrateBps,
		Rotation:         int(c.Rotation),
		Encoder:          string(c.Encoder),
		InputFormat:      c.InputFormat,
		Controls:         map[string]int(c.Controls),
		OverlayPath:      c.OverlayPath,
		OverlayFontSize:  c.OverlayFontSize,
		OverlayPosition:  c.OverlayPosition,
		OverlayColor:     c.OverlayColor,
		MoonrakerEnabled: c.MoonrakerEnabled,
		Enabled:          c.Enabled,
		Connected:        c.Connected,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

func capabilitiesToJSON(caps model.Capabilities) map[string]any {
	if caps == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(caps))
	for format, resolutions := range caps {
		resOut := make(map[string]any, len(resolutions))
		for res, fps := range resolutions {
			resOut[res] = fps
		}
		out[format] = resOut
	}
	return out
}

// applyUpdate mutates cam in place with every non-nil field of req.
func applyUpdate(cam *model.Camera, req updateCameraRequest) {
	if req.FriendlyName != nil {
		cam.FriendlyName = *req.FriendlyName
	}
	if req.Format != nil {
		cam.Format = *req.Format
	}
	if req.Resolution != nil {
		cam.Resolution = *req.Resolution
	}
	if req.Framerate != nil {
		cam.Framerate = *req.Framerate
	}
	if req.BitrateBps != nil {
		cam.BitrateBps = *req.BitrateBps
	}
	if req.Rotation != nil {
		cam.Rotation = model.Rotation(*req.Rotation)
	}
	if req.Encoder != nil {
		cam.Encoder = model.Encoder(*req.Encoder)
	}
	if req.OverlayPath != nil {
		cam.OverlayPath = *req.OverlayPath
	}
	if req.OverlayFontSize != nil {
		cam.OverlayFontSize = *req.OverlayFontSize
	}
	if req.OverlayPosition != nil {
		cam.OverlayPosition = *req.OverlayPosition
	}
	if req.OverlayColor != nil {
		cam.OverlayColor = *req.OverlayColor
	}
	if req.MoonrakerEnabled != nil {
		cam.MoonrakerEnabled = *req.MoonrakerEnabled
	}
	if req.Enabled != nil {
		cam.Enabled = *req.Enabled
	}
	if req.Controls != nil {
		cam.Controls = model.Controls(req.Controls)
	}
}

func errorsToStrings(errs map[string]error) map[string]string {
	if errs == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(errs))
	for k, v := range errs {
		out[k] = v.Error()
	}
	return out
}
