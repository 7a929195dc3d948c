// Package device implements the Device Tracker (§4.3): it turns raw
// {path, action} observations from the Event Ingress into the sum-typed
// Appeared/Disappeared/Changed events the Reconciler consumes, applying
// debounce and the lowest-index-node-per-fingerprint collapsing rule.
package device

import (
	"context"
	"strconv"
	"sync"
	"time"

	"ravensperch/internal/fingerprint"
	"ravensperch/internal/hardware"
	"ravensperch/internal/logging"
	"ravensperch/internal/model"
)

// state is the per-device-path lifecycle state (§4.3).
type state int

const (
	stateUnknown state = iota
	statePresent
	stateAbsent
)

// Prober is the capability/fingerprint-source seam the Tracker probes
// through; production code uses hardware.Probe plus sysfs fingerprint
// extraction, tests substitute fakeProber.
type Prober interface {
	Fingerprint(ctx context.Context, devicePath string) (model.Fingerprint, error)
	Capabilities(ctx context.Context, devicePath string) (model.Capabilities, error)
}

// deviceState tracks one /dev/videoN node across observations.
type deviceState struct {
	state        state
	fingerprint  model.Fingerprint
	uid          string
	capabilities model.Capabilities
	lastEventAt  time.Time
	debounceTimer *time.Timer
}

// Tracker is the Device Tracker. A single instance has a single consumer:
// call Events() once and drain it from the Reconciler.
type Tracker struct {
	prober Prober
	debounceWindow time.Duration

	mu      sync.Mutex
	devices map[string]*deviceState // device_path -> state
	uidOwner map[string]string      // uid -> owning device_path (lowest-index node)
	closed  bool

	events chan model.DeviceEvent
}

// New constructs a Tracker. debounceWindow is the §4.3 collapse window
// (500ms recommended).
func New(prober Prober, debounceWindow time.Duration) *Tracker {
	return &Tracker{
		prober:         prober,
		debounceWindow: debounceWindow,
		devices:        make(map[string]*deviceState),
		uidOwner:       make(map[string]string),
		events:         make(chan model.DeviceEvent, 64),
	}
}

// Events returns the channel the Reconciler drains. Closed only by Close.
func (t *Tracker) Events() <-chan model.DeviceEvent {
	return t.events
}

// Close stops accepting observations and closes the event channel. A
// debounce timer that already fired before Stop could still be blocked on
// t.mu when this runs; the closed flag (checked under the same lock by
// handlePresent/handleAbsent) keeps it from emitting onto a closed channel.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ds := range t.devices {
		if ds.debounceTimer != nil {
			ds.debounceTimer.Stop()
		}
	}
	t.closed = true
	close(t.events)
}

// Observe records a raw observation for devicePath: present=true means the
// node exists and is (believed) openable, present=false means it vanished.
// Debounce collapses repeated calls for the same path within the debounce
// window into a single emission (§4.3, §8.5).
func (t *Tracker) Observe(ctx context.Context, devicePath string, present bool) {
	t.mu.Lock()
	ds, ok := t.devices[devicePath]
	if !ok {
		ds = &deviceState{state: stateUnknown}
		t.devices[devicePath] = ds
	}
	ds.lastEventAt = time.Now()

	if ds.debounceTimer != nil {
		ds.debounceTimer.Stop()
	}
	ds.debounceTimer = time.AfterFunc(t.debounceWindow, func() {
		t.settle(ctx, devicePath, present)
	})
	t.mu.Unlock()
}

// settle runs once per debounce window per path: it performs the actual
// probing and state transition, then emits at most one event.
func (t *Tracker) settle(ctx context.Context, devicePath string, present bool) {
	if !present {
		t.handleAbsent(devicePath)
		return
	}

	fp, err := t.prober.Fingerprint(ctx, devicePath)
	if err != nil {
		log := logging.Component("device")
		log.Debug().Str("device_path", devicePath).Err(err).Msg("fingerprint probe failed")
		return
	}
	caps, err := t.prober.Capabilities(ctx, devicePath)
	if err != nil {
		log := logging.Component("device")
		log.Warn().Str("device_path", devicePath).Err(err).Msg("capability probe failed")
	}

	t.handlePresent(devicePath, fp, caps)
}

func (t *Tracker) handlePresent(devicePath string, fp model.Fingerprint, caps model.Capabilities) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	uid := fingerprint.UID(fp)

	// Lowest-index-node-per-fingerprint collapsing: if another path already
	// owns this UID and has a lower videoN index, this path is a sibling
	// capture node of the same physical device and is ignored (§4.3).
	nodeIndex := func(path string) int {
		if m := videoNumRe.FindStringSubmatch(path); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
		return -1
	}
	if owner, owned := t.uidOwner[uid]; owned && owner != devicePath {
		oi, pi := nodeIndex(owner), nodeIndex(devicePath)
		if oi < pi || (oi == pi && owner < devicePath) {
			return
		}
		// This path is the new lowest-index node; release the old one.
		delete(t.devices, owner)
	}
	t.uidOwner[uid] = devicePath

	ds, ok := t.devices[devicePath]
	if !ok {
		ds = &deviceState{state: stateUnknown}
		t.devices[devicePath] = ds
	}

	switch ds.state {
	case stateUnknown, stateAbsent:
		ds.state = statePresent
		ds.fingerprint = fp
		ds.uid = uid
		ds.capabilities = caps
		t.emit(model.DeviceEvent{
			Action:       model.Appeared,
			UID:          uid,
			DevicePath:   devicePath,
			Fingerprint:  fp,
			Capabilities: caps,
		})
	case statePresent:
		if capabilitiesEqual(ds.capabilities, caps) {
			return
		}
		ds.capabilities = caps
		t.emit(model.DeviceEvent{
			Action:       model.Changed,
			UID:          uid,
			DevicePath:   devicePath,
			Fingerprint:  fp,
			Capabilities: caps,
		})
	}
}

func (t *Tracker) handleAbsent(devicePath string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	ds, ok := t.devices[devicePath]
	if !ok || ds.state != statePresent {
		return
	}
	ds.state = stateAbsent
	uid := ds.uid
	if t.uidOwner[uid] == devicePath {
		delete(t.uidOwner, uid)
	}
	t.emit(model.DeviceEvent{Action: model.Disappeared, UID: uid, DevicePath: devicePath})
}

// emit must be called with t.mu held; it sends without blocking callers
// indefinitely by relying on the buffered channel sized generously for a
// bounded number of attached cameras.
func (t *Tracker) emit(ev model.DeviceEvent) {
	select {
	case t.events <- ev:
	default:
		log := logging.Component("device")
		log.Warn().Str("device_path", ev.DevicePath).Msg("event channel full, dropping oldest consumer is too slow")
		// Drain one and retry once; the Reconciler is expected to keep up,
		// this only protects against a genuinely stuck consumer.
		select {
		case <-t.events:
		default:
		}
		select {
		case t.events <- ev:
		default:
		}
	}
}

func capabilitiesEqual(a, b model.Capabilities) bool {
	if len(a) != len(b) {
		return false
	}
	for format, resA := range a {
		resB, ok := b[format]
		if !ok || len(resA) != len(resB) {
			return false
		}
		for res, fpsA := range resA {
			fpsB, ok := resB[res]
			if !ok || len(fpsA) != len(fpsB) {
				return false
			}
			for i := range fpsA {
				if fpsA[i] != fpsB[i] {
					return false
				}
			}
		}
	}
	return true
}

// HardwareProber adapts *hardware.Probe plus sysfs fingerprint extraction to
// the Prober interface used in production.
type HardwareProber struct {
	probe *hardware.Probe
}

// NewHardwareProber constructs the production Prober.
func NewHardwareProber(probe *hardware.Probe) *HardwareProber {
	return &HardwareProber{probe: probe}
}

func (h *HardwareProber) Fingerprint(ctx context.Context, devicePath string) (model.Fingerprint, error) {
	return sysfsFingerprint(devicePath)
}

func (h *HardwareProber) Capabilities(ctx context.Context, devicePath string) (model.Capabilities, error) {
	return h.probe.ProbeCapabilities(ctx, devicePath)
}
