// Package synth implements the Command Synthesizer: a pure, deterministic
// function from a camera record to the transcoder invocation string that
// realizes its profile (§4.5).
package synth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"ravensperch/internal/model"
)

// ffmpegInputFormats maps this system's normalized format names onto the
// -input_format value ffmpeg expects, grounded in stream_manager.py:
// FFMPEG_INPUT_FORMATS (falls through to the name itself when not listed).
var ffmpegInputFormats = map[string]string{
	"mjpeg": "mjpeg",
	"h264":  "h264",
	"yuyv":  "yuyv422",
	"nv12":  "nv12",
}

func ffmpegInputFormat(format string) string {
	if v, ok := ffmpegInputFormats[format]; ok {
		return v
	}
	return format
}

var overlayPositions = map[string][2]string{
	"top_left":      {"20", "20"},
	"top_center":    {"(w-text_w)/2", "20"},
	"top_right":     {"w-text_w-20", "20"},
	"bottom_left":   {"20", "h-th-20"},
	"bottom_center": {"(w-text_w)/2", "h-th-20"},
	"bottom_right":  {"w-text_w-20", "h-th-20"},
}

// Synthesize builds the ffmpeg invocation string for record, directed at
// rtspEndpoint (the streaming server's loopback RTSP ingest, typically
// rtsp://127.0.0.1:8554). The output is byte-identical for byte-identical
// inputs (§8.8); callers hash it with Hash to detect configuration drift.
func Synthesize(record model.Camera, rtspEndpoint string) string {
	inputFormat := record.InputFormat
	if inputFormat == "" {
		inputFormat = record.Format
	}
	resolution := record.Resolution
	if resolution == "" {
		resolution = "1280x720"
	}
	framerate := record.Framerate
	if framerate == 0 {
		framerate = 30
	}

	parts := []string{"ffmpeg", "-hide_banner", "-loglevel", "warning"}

	if record.Encoder == model.EncoderVAAPI {
		parts = append(parts, "-vaapi_device", "/dev/dri/renderD128")
	}

	parts = append(parts,
		"-f", "v4l2",
		"-input_format", ffmpegInputFormat(inputFormat),
		"-video_size", resolution,
		"-framerate", strconv.Itoa(framerate),
		"-i", record.DevicePath,
	)

	filters := buildFilters(record)
	if len(filters) > 0 {
		parts = append(parts, "-vf", strings.Join(filters, ","))
	}

	parts = append(parts, encoderFlags(record.Encoder, record.BitrateBps)...)

	parts = append(parts,
		"-g", strconv.Itoa(framerate*2),
		"-f", "rtsp",
		"-rtsp_transport", "tcp",
		fmt.Sprintf("%s/%s", strings.TrimRight(rtspEndpoint, "/"), record.UID),
	)

	return strings.Join(parts, " ")
}

// buildFilters composes the -vf filter chain in the fixed order §4.5
// requires: pixel-format conversion first (also debayers raw sensor data),
// then rotation, then the print-status overlay, then hardware upload last.
func buildFilters(record model.Camera) []string {
	var filters []string

	if record.Encoder == model.EncoderVAAPI {
		filters = append(filters, "format=nv12")
	} else {
		filters = append(filters, "format=yuv420p")
	}

	switch record.Rotation {
	case model.Rotation90:
		filters = append(filters, "transpose=1")
	case model.Rotation180:
		filters = append(filters, "transpose=1,transpose=1")
	case model.Rotation270:
		filters = append(filters, "transpose=2")
	}

	if record.OverlayPath != "" {
		filters = append(filters, drawtextFilter(record))
	}

	if record.Encoder == model.EncoderVAAPI {
		filters = append(filters, "hwupload")
	}

	return filters
}

func drawtextFilter(record model.Camera) string {
	fontSize := record.OverlayFontSize
	if fontSize == 0 {
		fontSize = 24
	}
	position := record.OverlayPosition
	if position == "" {
		position = "bottom_center"
	}
	color := record.OverlayColor
	if color == "" {
		color = "white"
	}

	coords, ok := overlayPositions[position]
	if !ok {
		coords = overlayPositions["bottom_center"]
	}

	borderColor := "white"
	switch color {
	case "white", "yellow", "cyan":
		borderColor = "black"
	}

	escapedPath := strings.ReplaceAll(record.OverlayPath, `\`, "/")
	escapedPath = strings.ReplaceAll(escapedPath, ":", `\:`)

	return fmt.Sprintf(
		"drawtext=textfile='%s':reload=1:expansion=none:fontcolor=%s:fontsize=%d:borderw=2:bordercolor=%s:x=%s:y=%s",
		escapedPath, color, fontSize, borderColor, coords[0], coords[1],
	)
}

// encoderFlags returns the codec/bitrate flag set for the given encoder,
// grounded in stream_manager.py: build_ffmpeg_command's per-encoder branch.
func encoderFlags(encoder model.Encoder, bitrateBps int64) []string {
	bitrate := formatBitrate(bitrateBps)

	switch encoder {
	case model.EncoderVAAPI:
		return []string{
			"-c:v", "h264_vaapi",
			"-profile:v", "constrained_baseline",
			"-level", "31",
			"-b:v", bitrate,
		}
	case model.EncoderRKMPP:
		return []string{
			"-c:v", "h264_rkmpp",
			"-profile:v", "baseline",
			"-level", "31",
			"-b:v", bitrate,
		}
	case model.EncoderV4L2M2M:
		return []string{
			"-c:v", "h264_v4l2m2m",
			"-profile:v", "baseline",
			"-level", "31",
			"-b:v", bitrate,
		}
	default: // software
		return []string{
			"-c:v", "libx264",
			"-preset", "ultrafast",
			"-tune", "zerolatency",
			"-profile:v", "baseline",
			"-level", "3.1",
			"-bf", "0",
			"-b:v", bitrate,
			"-maxrate", bitrate,
			"-bufsize", bitrate,
		}
	}
}

func formatBitrate(bps int64) string {
	if bps <= 0 {
		return "4M"
	}
	if bps%1_000_000 == 0 {
		return fmt.Sprintf("%dM", bps/1_000_000)
	}
	return fmt.Sprintf("%dk", bps/1000)
}

// Hash returns the content hash of a synthesized command, used by the
// Stream Supervisor to detect drift against the streaming server's current
// configuration without storing the full command string remotely.
func Hash(command string) string {
	sum := sha256.Sum256([]byte(command))
	return hex.EncodeToString(sum[:])
}
