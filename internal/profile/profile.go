// Package profile implements the Profile Selector: a pure function from
// capabilities, effective CPU score, and operator overrides to a chosen
// streaming profile (§4.4).
package profile

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"ravensperch/internal/hardware"
	"ravensperch/internal/model"
)

// formatPreference is consulted when no override names a present format,
// grounded in config.py: FORMAT_PRIORITY and §4.4 step 1.
var formatPreference = []string{"mjpeg", "h264", "yuyv"}

// tier is one row of the quality-tier table in §4.4.
type tier struct {
	minScore, maxScore int
	ceiling            string
	targetFPS          int
	bitrateBps         int64
}

var tiers = []tier{
	{1, 3, "640x480", 10, 500_000},
	{4, 5, "640x480", 15, 1_000_000},
	{6, 7, "1280x720", 15, 2_000_000},
	{8, 9, "1280x720", 15, 2_000_000},
	{10, 10, "1280x720", 30, 4_000_000},
}

func tierFor(score int) tier {
	for _, t := range tiers {
		if score >= t.minScore && score <= t.maxScore {
			return t
		}
	}
	if score < tiers[0].minScore {
		return tiers[0]
	}
	return tiers[len(tiers)-1]
}

// Overrides is the operator-supplied partial profile; a zero value field
// means "no override" for that dimension.
type Overrides struct {
	Format     string
	Resolution string
	Framerate  int
	BitrateBps int64
}

// Select implements the algorithm in §4.4. capabilities must not be empty;
// callers are expected to have already handled the "capabilities never
// empty for a connected device" invariant in §3 before calling Select.
func Select(capabilities model.Capabilities, effectiveScore int, overrides Overrides, encoders hardware.Encoders) model.Profile {
	format, formatWarning := chooseFormat(capabilities, overrides.Format)
	resolutions := capabilities[format]

	t := tierFor(effectiveScore)

	resolution, resWarning := chooseResolution(resolutions, t.ceiling, overrides.Resolution, format, capabilities)
	framerate := chooseFramerate(resolutions[resolution], t.targetFPS, overrides.Framerate)

	bitrate := t.bitrateBps
	if overrides.BitrateBps > 0 {
		bitrate = overrides.BitrateBps
	} else {
		bitrate = scaleBitrate(resolution, t.ceiling, t.bitrateBps)
	}

	encoder := model.EncoderSoftware
	if encoders.Available() {
		encoder = encoders.Best()
	}

	warning := firstNonEmpty(formatWarning, resWarning)

	return model.Profile{
		Format:     format,
		Resolution: resolution,
		Framerate:  framerate,
		BitrateBps: bitrate,
		Encoder:    encoder,
		Warning:    warning,
	}
}

func firstNonEmpty(parts ...string) string {
	for _, p := range parts {
		if p != "" {
			return p
		}
	}
	return ""
}

// chooseFormat implements §4.4 step 1.
func chooseFormat(capabilities model.Capabilities, overrideFormat string) (format string, warning string) {
	if overrideFormat != "" {
		if _, ok := capabilities[overrideFormat]; ok {
			return overrideFormat, ""
		}
		warning = fmt.Sprintf("override format %q not advertised, falling back", overrideFormat)
	}

	for _, f := range formatPreference {
		if _, ok := capabilities[f]; ok {
			return f, warning
		}
	}

	// Fall back to any advertised format, deterministically: lowest name.
	var names []string
	for f := range capabilities {
		names = append(names, f)
	}
	sort.Strings(names)
	if len(names) > 0 {
		return names[0], warning
	}
	return "", warning
}

// chooseResolution implements §4.4 step 2: largest resolution <= ceiling,
// tie-broken by exact match to the tier target.
func chooseResolution(resolutions model.ResolutionSet, ceiling string, overrideResolution string, format string, capabilities model.Capabilities) (resolution string, warning string) {
	if overrideResolution != "" {
		if _, ok := resolutions[overrideResolution]; ok {
			return overrideResolution, ""
		}
		warning = fmt.Sprintf("override resolution %q not advertised for format %q, falling back", overrideResolution, format)
	}

	ceilPixels := pixelsOf(ceiling)

	var best string
	var bestPixels int
	for res := range resolutions {
		p := pixelsOf(res)
		if p > ceilPixels {
			continue
		}
		if res == ceiling {
			return ceiling, warning
		}
		if p > bestPixels {
			best = res
			bestPixels = p
		}
	}
	if best != "" {
		return best, warning
	}

	// Nothing advertised is <= ceiling; pick the smallest available instead.
	var smallest string
	smallestPixels := int(^uint(0) >> 1)
	for res := range resolutions {
		p := pixelsOf(res)
		if p < smallestPixels {
			smallest = res
			smallestPixels = p
		}
	}
	return smallest, warning
}

func pixelsOf(resolution string) int {
	w, h, ok := parseResolution(resolution)
	if !ok {
		return 0
	}
	return w * h
}

func parseResolution(resolution string) (w, h int, ok bool) {
	parts := strings.SplitN(resolution, "x", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	wi, err1 := strconv.Atoi(parts[0])
	hi, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return wi, hi, true
}

// chooseFramerate implements §4.4 step 3: the largest advertised FPS <=
// target; if none, the smallest advertised.
func chooseFramerate(available []int, target int, overrideFramerate int) int {
	if overrideFramerate > 0 {
		for _, fps := range available {
			if fps == overrideFramerate {
				return fps
			}
		}
	}
	if len(available) == 0 {
		return target
	}

	best := -1
	for _, fps := range available {
		if fps <= target && fps > best {
			best = fps
		}
	}
	if best >= 0 {
		return best
	}

	smallest := available[0]
	for _, fps := range available {
		if fps < smallest {
			smallest = fps
		}
	}
	return smallest
}

// scaleBitrate scales the tier's calibrated bitrate up when the chosen
// resolution exceeds the tier's own ceiling, grounded in stream_manager.py:
// scale_bitrate. bitrateBps in the tier table is already the calibrated
// value at ceiling, so at or below it the tier's bitrate applies unchanged;
// the ceiling is exceeded by a resolution override, or when the device
// offers nothing at or below the ceiling and its smallest mode is chosen.
func scaleBitrate(resolution, ceiling string, baseBitrateBps int64) int64 {
	pixels := pixelsOf(resolution)
	ceilPixels := pixelsOf(ceiling)
	if ceilPixels <= 0 || pixels <= ceilPixels {
		return baseBitrateBps
	}
	scaled := float64(baseBitrateBps) * float64(pixels) / float64(ceilPixels)
	return int64(scaled)
}
