package hardware

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"ravensperch/internal/errs"
	"ravensperch/internal/model"
)

// formatLineRe matches a `v4l2-ctl --list-formats-ext` format header line,
// e.g. "[0]: 'MJPG' (Motion-JPEG, compressed)". Grounded in
// camera_manager.py: probe_capabilities and discovery.go's
// GetSupportedFormats line scanning (lines starting with "[").
var formatLineRe = regexp.MustCompile(`^\s*\[\d+\]:\s*'(\w+)'`)

// sizeLineRe matches a resolution line, e.g. "Size: Discrete 1280x720".
var sizeLineRe = regexp.MustCompile(`Size:\s+Discrete\s+(\d+)x(\d+)`)

// fpsLineRe matches a framerate line, e.g. "Interval: Discrete 0.033s (30.000 fps)".
var fpsLineRe = regexp.MustCompile(`\(([\d.]+)\s*fps\)`)

// formatAliases normalizes v4l2-ctl's four-character-code / human names onto
// the lowercase names used throughout this system, grounded in config.py:
// FORMAT_ALIASES.
var formatAliases = map[string]string{
	"MJPG":   "mjpeg",
	"H264":   "h264",
	"YUYV":   "yuyv",
	"NV12":   "nv12",
	"RGB3":   "rgb24",
}

func normalizeFormat(raw string) string {
	if alias, ok := formatAliases[raw]; ok {
		return alias
	}
	return strings.ToLower(raw)
}

// ProbeCapabilities runs `v4l2-ctl --list-formats-ext` against devicePath
// and parses it into the capability map defined in §3. Returns a typed
// errs.Busy when the device is held open elsewhere, errs.Unreachable when
// the node does not exist or isn't openable, and errs.ProtocolError when
// v4l2-ctl's output cannot be parsed into any format entries.
func (p *Probe) ProbeCapabilities(ctx context.Context, devicePath string) (model.Capabilities, error) {
	out, err := p.runner.Run(ctx, "v4l2-ctl", "--device", devicePath, "--list-formats-ext")
	if err != nil {
		var exitErr *exec.ExitError
		busy := strings.Contains(err.Error(), "Device or resource busy") ||
			(errors.As(err, &exitErr) && strings.Contains(string(exitErr.Stderr), "Device or resource busy"))
		if busy {
			return nil, errs.Wrap(errs.Busy, err, "device busy: "+devicePath)
		}
		return nil, errs.Wrap(errs.Unreachable, err, "v4l2-ctl failed for "+devicePath)
	}
	caps := parseFormatsExt(out)
	if len(caps) == 0 {
		return nil, errs.New(errs.ProtocolError, "no formats advertised by "+devicePath)
	}
	return caps, nil
}

func parseFormatsExt(out string) model.Capabilities {
	caps := model.Capabilities{}

	var currentFormat string
	scanner := bufio.NewScanner(strings.NewReader(out))
	var currentResolution string

	for scanner.Scan() {
		line := scanner.Text()

		if m := formatLineRe.FindStringSubmatch(line); m != nil {
			currentFormat = normalizeFormat(m[1])
			if _, ok := caps[currentFormat]; !ok {
				caps[currentFormat] = model.ResolutionSet{}
			}
			currentResolution = ""
			continue
		}

		if currentFormat == "" {
			continue
		}

		if m := sizeLineRe.FindStringSubmatch(line); m != nil {
			currentResolution = fmt.Sprintf("%sx%s", m[1], m[2])
			if _, ok := caps[currentFormat][currentResolution]; !ok {
				caps[currentFormat][currentResolution] = nil
			}
			continue
		}

		if currentResolution == "" {
			continue
		}

		if m := fpsLineRe.FindStringSubmatch(line); m != nil {
			if fps, err := strconv.ParseFloat(m[1], 64); err == nil {
				caps[currentFormat][currentResolution] = appendDescending(caps[currentFormat][currentResolution], int(fps))
			}
		}
	}

	return caps
}

// appendDescending inserts fps into a descending-order, duplicate-free list.
func appendDescending(list []int, fps int) []int {
	for _, existing := range list {
		if existing == fps {
			return list
		}
	}
	list = append(list, fps)
	for i := len(list) - 1; i > 0 && list[i] > list[i-1]; i-- {
		list[i], list[i-1] = list[i-1], list[i]
	}
	return list
}

// DeviceName runs `v4l2-ctl --info` and extracts the "Card type" line,
// grounded in discovery.go: getV4L2DeviceName.
func (p *Probe) DeviceName(ctx context.Context, devicePath string) (string, error) {
	out, err := p.runner.Run(ctx, "v4l2-ctl", "--device", devicePath, "--info")
	if err != nil {
		return "", errs.Wrap(errs.Unreachable, err, "v4l2-ctl --info failed for "+devicePath)
	}
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "Card type") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				return strings.TrimSpace(parts[1]), nil
			}
		}
	}
	return "", errs.New(errs.ProtocolError, "no Card type line in v4l2-ctl --info output")
}
