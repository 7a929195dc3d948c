package hardware

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"ravensperch/internal/errs"
	"ravensperch/internal/model"
)

// ApplyControls pushes the desired V4L2 controls to the device one at a
// time via `v4l2-ctl --set-ctrl`, grounded in camera_manager.py:
// apply_v4l2_controls / set_v4l2_control. Best-effort: a control the driver
// rejects is logged and skipped rather than aborting the remaining controls.
func (p *Probe) ApplyControls(ctx context.Context, devicePath string, controls model.Controls) error {
	if len(controls) == 0 {
		return nil
	}
	var failures []string
	for name, value := range controls {
		arg := fmt.Sprintf("%s=%d", name, value)
		if _, err := p.runner.Run(ctx, "v4l2-ctl", "--device", devicePath, "--set-ctrl", arg); err != nil {
			p.log.Debug().Str("control", name).Int("value", value).Err(err).Msg("set-ctrl failed")
			failures = append(failures, name)
		}
	}
	if len(failures) > 0 {
		return errs.Newf(errs.Transient, "failed to set controls: %s", strings.Join(failures, ", "))
	}
	return nil
}

// CurrentControls reads the device's control values via `v4l2-ctl --list-ctrls`,
// grounded in camera_manager.py: get_v4l2_controls.
func (p *Probe) CurrentControls(ctx context.Context, devicePath string) (model.Controls, error) {
	out, err := p.runner.Run(ctx, "v4l2-ctl", "--device", devicePath, "--list-ctrls")
	if err != nil {
		return nil, errs.Wrap(errs.Unreachable, err, "v4l2-ctl --list-ctrls failed for "+devicePath)
	}

	controls := model.Controls{}
	for _, line := range strings.Split(out, "\n") {
		name, value, ok := parseControlLine(line)
		if ok {
			controls[name] = value
		}
	}
	return controls, nil
}

// parseControlLine parses one line of `v4l2-ctl --list-ctrls` output, e.g.:
//
//	brightness 0x00980900 (int)    : min=-64 max=64 step=1 default=0 value=0
func parseControlLine(line string) (name string, value int, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", 0, false
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", 0, false
	}
	name = fields[0]
	idx := strings.Index(line, "value=")
	if idx < 0 {
		return "", 0, false
	}
	rest := line[idx+len("value="):]
	end := strings.IndexAny(rest, " \t")
	if end >= 0 {
		rest = rest[:end]
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return "", 0, false
	}
	return name, n, true
}
