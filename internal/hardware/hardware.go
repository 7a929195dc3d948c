// Package hardware answers pure queries about the host: CPU capability,
// hardware-encoder availability, platform identity, and per-device capability
// enumeration. Nothing is cached: every call queries the host again, and
// nothing here mutates shared state.
package hardware

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"ravensperch/internal/logging"
	"ravensperch/internal/model"
)

// Encoders reports, for each hardware-encoder family, whether it is usable
// on this host.
type Encoders struct {
	VAAPI    bool
	V4L2M2M  bool
	RKMPP    bool
	Software bool // always true
}

// Available reports whether any hardware encoder is usable.
func (e Encoders) Available() bool {
	return e.VAAPI || e.V4L2M2M || e.RKMPP
}

// Best returns the highest-priority usable encoder: vaapi > rkmpp > v4l2m2m > software.
func (e Encoders) Best() model.Encoder {
	switch {
	case e.VAAPI:
		return model.EncoderVAAPI
	case e.RKMPP:
		return model.EncoderRKMPP
	case e.V4L2M2M:
		return model.EncoderV4L2M2M
	default:
		return model.EncoderSoftware
	}
}

// PlatformInfo is diagnostic information surfaced on the status administrative
// operation (supplemented feature, grounded in hardware.py: get_platform_info).
type PlatformInfo struct {
	IsRaspberryPi bool
	Model         string
	FFmpegOK      bool
	V4L2UtilsOK   bool
}

// Probe is the Hardware Probe component. It shells out to ffmpeg/v4l2-ctl
// and reads gopsutil counters; every exported method is safe to call
// concurrently.
type Probe struct {
	runner commandRunner
	log    zerolog.Logger
}

// commandRunner abstracts subprocess execution so tests can substitute a
// fake without invoking real binaries, keeping OS interaction behind a
// narrow seam.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout string, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	return string(out), err
}

// NewProbe constructs a Probe that shells out to real binaries.
func NewProbe() *Probe {
	return &Probe{runner: execRunner{}, log: logging.Component("hardware")}
}

// DetectEncoders checks for VAAPI and V4L2M2M/RKMPP hardware encoders by
// device-node presence plus `ffmpeg -encoders` output, grounded in
// hardware.py: detect_encoders.
func (p *Probe) DetectEncoders(ctx context.Context) Encoders {
	enc := Encoders{Software: true}

	ffmpegEncoders := ""
	if _, err := os.Stat("/dev/dri/renderD128"); err == nil {
		out, err := p.runner.Run(ctx, "ffmpeg", "-hide_banner", "-encoders")
		if err != nil {
			p.log.Debug().Err(err).Msg("vaapi detection failed")
		} else {
			ffmpegEncoders = out
			if strings.Contains(out, "h264_vaapi") {
				enc.VAAPI = true
			}
		}
	}

	hasV4L2M2MNode := false
	if matches, _ := filepath.Glob("/dev/video1*"); len(matches) > 0 {
		hasV4L2M2MNode = true
	}
	if hasV4L2M2MNode || p.IsRaspberryPi() {
		if ffmpegEncoders == "" {
			out, err := p.runner.Run(ctx, "ffmpeg", "-hide_banner", "-encoders")
			if err == nil {
				ffmpegEncoders = out
			}
		}
		if strings.Contains(ffmpegEncoders, "h264_v4l2m2m") {
			enc.V4L2M2M = true
		}
	}

	if p.isRockchip() {
		if ffmpegEncoders == "" {
			if out, err := p.runner.Run(ctx, "ffmpeg", "-hide_banner", "-encoders"); err == nil {
				ffmpegEncoders = out
			}
		}
		if strings.Contains(ffmpegEncoders, "h264_rkmpp") {
			enc.RKMPP = true
		}
	}

	return enc
}

// IsRaspberryPi checks /proc/cpuinfo and the device-tree model, grounded in
// hardware.py: is_raspberry_pi.
func (p *Probe) IsRaspberryPi() bool {
	if content, err := os.ReadFile("/proc/cpuinfo"); err == nil {
		s := string(content)
		if strings.Contains(s, "Raspberry Pi") || strings.Contains(s, "BCM") {
			return true
		}
	}
	if content, err := os.ReadFile("/proc/device-tree/model"); err == nil {
		if strings.Contains(string(content), "Raspberry Pi") {
			return true
		}
	}
	return false
}

func (p *Probe) isRockchip() bool {
	content, err := os.ReadFile("/proc/device-tree/compatible")
	if err != nil {
		return false
	}
	return strings.Contains(string(content), "rockchip")
}

// PlatformInfo gathers the diagnostic platform summary.
func (p *Probe) PlatformInfo(ctx context.Context) PlatformInfo {
	info := PlatformInfo{IsRaspberryPi: p.IsRaspberryPi()}
	if info.IsRaspberryPi {
		if content, err := os.ReadFile("/proc/device-tree/model"); err == nil {
			info.Model = strings.Trim(string(content), "\x00\n ")
		}
	}
	info.FFmpegOK = p.CheckFFmpegAvailable(ctx)
	info.V4L2UtilsOK = p.CheckV4L2UtilsAvailable(ctx)
	return info
}

// CheckFFmpegAvailable reports whether ffmpeg is runnable on this host.
func (p *Probe) CheckFFmpegAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := p.runner.Run(ctx, "ffmpeg", "-version")
	return err == nil
}

// CheckV4L2UtilsAvailable reports whether v4l2-ctl is runnable on this host.
func (p *Probe) CheckV4L2UtilsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := p.runner.Run(ctx, "v4l2-ctl", "--version")
	return err == nil
}

// CPUScore computes the 1-10 capability score from core count, current load,
// and hardware-encoder availability (§4.2, §8). Deterministic given its
// inputs; the non-determinism of live CPU load is the only reason two calls
// may differ.
func (p *Probe) CPUScore(ctx context.Context) int {
	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil || cores <= 0 {
		cores = 1
	}
	percent, err := cpu.PercentWithContext(ctx, 500*time.Millisecond, false)
	load := 0.0
	if err == nil && len(percent) > 0 {
		load = percent[0]
	}
	return Score(cores, load, p.DetectEncoders(ctx).Available())
}

// Score is the pure scoring function, separated from CPUScore so the
// property in §8 ("the mapping is deterministic") is directly testable
// without touching gopsutil or subprocesses.
func Score(cores int, loadPercent float64, hwEncoderAvailable bool) int {
	var base int
	switch {
	case cores >= 8:
		base = 8
	case cores >= 4:
		base = 6
	case cores >= 2:
		base = 4
	default:
		base = 2
	}

	var loadPenalty int
	switch {
	case loadPercent > 80:
		loadPenalty = 3
	case loadPercent > 60:
		loadPenalty = 2
	case loadPercent > 40:
		loadPenalty = 1
	default:
		loadPenalty = 0
	}

	encoderBonus := 0
	if hwEncoderAvailable {
		encoderBonus = 2
	}

	score := base - loadPenalty + encoderBonus
	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}
	return score
}

// MemoryInfo returns host memory stats in MB, for diagnostics.
func (p *Probe) MemoryInfo(ctx context.Context) (totalMB, availableMB uint64, usedPercent float64) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, 0
	}
	return vm.Total / (1024 * 1024), vm.Available / (1024 * 1024), vm.UsedPercent
}

