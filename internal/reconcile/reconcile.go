// Package reconcile implements the Reconciler (§4.8): the single-writer
// control loop that drains device events, reads desired state from the
// Settings Store, and drives the Stream Supervisor and Registration Sync to
// match it.
package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ravensperch/internal/device"
	"ravensperch/internal/errs"
	"ravensperch/internal/hardware"
	"ravensperch/internal/logging"
	"ravensperch/internal/mediamtx"
	"ravensperch/internal/model"
	"ravensperch/internal/moonraker"
	"ravensperch/internal/profile"
	"ravensperch/internal/store"
)

// StreamSupervisor is the subset of *mediamtx.Supervisor the Reconciler
// depends on, narrowed to an interface so tests can substitute a fake.
type StreamSupervisor interface {
	Reconcile(ctx context.Context, cameras []model.Camera) (statuses map[string]error, skipped bool)
}

// RegistrationSync is the subset of *moonraker.Sync the Reconciler depends
// on, narrowed to an interface so tests can substitute a fake.
type RegistrationSync interface {
	Reconcile(ctx context.Context, cameras []model.Camera) (statuses map[string]error, skipped bool)
}

// CapabilityProber is the subset of *hardware.Probe needed to seed a newly
// observed camera's defaults and to round-trip its V4L2 controls.
type CapabilityProber interface {
	CPUScore(ctx context.Context) int
	DetectEncoders(ctx context.Context) hardware.Encoders
	CurrentControls(ctx context.Context, devicePath string) (model.Controls, error)
	ApplyControls(ctx context.Context, devicePath string, controls model.Controls) error
}

var (
	_ StreamSupervisor  = (*mediamtx.Supervisor)(nil)
	_ RegistrationSync  = (*moonraker.Sync)(nil)
	_ CapabilityProber  = (*hardware.Probe)(nil)
)

// TickResult is what one reconcile tick produced, returned to the
// administrative surface's force-tick operation (§6) as `{ok, sync_errors}`.
type TickResult struct {
	CorrelationID string
	StreamErrors  map[string]error
	SyncErrors    map[string]error
	ControlErrors map[string]error
	StreamSkipped bool
	SyncSkipped   bool
}

// Reconciler owns the control loop. It is the only component permitted to
// mutate the Settings Store or issue convergence API calls (§5).
type Reconciler struct {
	store       *store.Store
	tracker     *device.Tracker
	prober      CapabilityProber
	streams     StreamSupervisor
	registrations RegistrationSync

	tickInterval time.Duration
	tickBudget   time.Duration

	trigger chan struct{} // single-slot coalescing queue, §4.8
	results chan TickResult
}

// New constructs a Reconciler. prober may be nil, in which case newly
// observed cameras get a conservative software-encoder default profile
// instead of a CPU-scored one.
func New(
	st *store.Store,
	tracker *device.Tracker,
	prober CapabilityProber,
	streams StreamSupervisor,
	registrations RegistrationSync,
	tickInterval, tickBudget time.Duration,
) *Reconciler {
	return &Reconciler{
		store:          st,
		tracker:        tracker,
		prober:         prober,
		streams:        streams,
		registrations:  registrations,
		tickInterval:   tickInterval,
		tickBudget:     tickBudget,
		trigger:        make(chan struct{}, 1), // capacity 1: coalescing
		results:        make(chan TickResult, 1),
	}
}

// RequestTick enqueues a tick trigger; redundant triggers while one is
// already pending coalesce into the single pending slot (§4.8).
func (r *Reconciler) RequestTick() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Results exposes completed tick outcomes, most recently consumed by the
// administrative surface's force-tick operation.
func (r *Reconciler) Results() <-chan TickResult {
	return r.results
}

// Run is the control loop (§4.8, §5). It blocks until ctx is cancelled,
// draining device events, firing on the periodic timer, and serializing
// every tick so no two run concurrently.
func (r *Reconciler) Run(ctx context.Context) error {
	log := logging.Component("reconcile")
	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	r.RequestTick() // converge once on startup

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("reconciler shutting down")
			return nil
		case ev, ok := <-r.tracker.Events():
			if !ok {
				return errs.New(errs.Corruption, "device tracker event channel closed, fatal per §4.8")
			}
			if err := r.handleEvent(ev); err != nil {
				return err
			}
			r.RequestTick()
		case <-ticker.C:
			r.RequestTick()
		case <-r.trigger:
			res, err := r.tick(ctx)
			if err != nil {
				return err
			}
			select {
			case r.results <- res:
			default:
				<-r.results
				r.results <- res
			}
		}
	}
}

// handleEvent applies a single device event to the Store (§4.8 step 1).
func (r *Reconciler) handleEvent(ev model.DeviceEvent) error {
	log := logging.Component("reconcile")

	switch ev.Action {
	case model.Disappeared:
		cam, err := r.store.Get(ev.UID)
		if errs.Is(err, errs.NotFound) {
			return nil
		}
		if err != nil {
			return fatalIfCorruption(err)
		}
		cam.Connected = false
		cam.DevicePath = ""
		if err := r.store.Upsert(cam); err != nil {
			return fatalIfCorruption(err)
		}

	case model.Appeared, model.Changed:
		cam, err := r.store.Get(ev.UID)
		switch {
		case errs.Is(err, errs.NotFound):
			cam = r.newCameraDefaults(ev)
		case err != nil:
			return fatalIfCorruption(err)
		default:
			cam.DevicePath = ev.DevicePath
			cam.Connected = true
			cam.Capabilities = ev.Capabilities
		}
		if err := r.store.Upsert(cam); err != nil {
			return fatalIfCorruption(err)
		}
		log.Debug().Str("uid", ev.UID).Str("action", ev.Action.String()).Msg("device event applied")
	}
	return nil
}

// newCameraDefaults seeds a brand-new UID's record using the Profile
// Selector, scored by the Hardware Probe when available (§4.8 step 1).
func (r *Reconciler) newCameraDefaults(ev model.DeviceEvent) model.Camera {
	now := time.Now()
	cam := model.Camera{
		UID:              ev.UID,
		DevicePath:       ev.DevicePath,
		Fingerprint:      ev.Fingerprint,
		Capabilities:     ev.Capabilities,
		Enabled:          true,
		Connected:        true,
		MoonrakerEnabled: true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	score := 5
	var encoders hardware.Encoders
	if r.prober != nil {
		score = r.prober.CPUScore(context.Background())
		encoders = r.prober.DetectEncoders(context.Background())
	}

	selected := profile.Select(ev.Capabilities, score, profile.Overrides{}, encoders)
	cam.Format = selected.Format
	cam.Resolution = selected.Resolution
	cam.Framerate = selected.Framerate
	cam.BitrateBps = selected.BitrateBps
	cam.Encoder = selected.Encoder
	cam.Rotation = selected.Rotation
	cam.InputFormat = selected.Format
	return cam
}

// tick runs one full reconcile pass (§4.8 steps 2-6).
func (r *Reconciler) tick(ctx context.Context) (TickResult, error) {
	correlationID := uuid.NewString()
	log := logging.Component("reconcile").With().Str("tick", correlationID).Logger()

	tickCtx, cancel := context.WithTimeout(ctx, r.tickBudget)
	defer cancel()

	cameras, err := r.store.List()
	if err != nil {
		return TickResult{}, fatalIfCorruption(err)
	}

	streamErrors, streamSkipped := r.streams.Reconcile(tickCtx, cameras)
	syncErrors, syncSkipped := r.registrations.Reconcile(tickCtx, cameras)
	controlErrors := r.reconcileControls(tickCtx, cameras)

	log.Info().
		Int("cameras", len(cameras)).
		Bool("stream_skipped", streamSkipped).
		Bool("sync_skipped", syncSkipped).
		Int("stream_errors", len(streamErrors)).
		Int("sync_errors", len(syncErrors)).
		Int("control_errors", len(controlErrors)).
		Msg("tick complete")

	return TickResult{
		CorrelationID: correlationID,
		StreamErrors:  streamErrors,
		SyncErrors:    syncErrors,
		ControlErrors: controlErrors,
		StreamSkipped: streamSkipped,
		SyncSkipped:   syncSkipped,
	}, nil
}

// reconcileControls pushes each connected camera's desired V4L2 controls to
// its device whenever they differ from what the driver currently reports,
// folding in the V4L2 control get/set surface supplemented feature.
func (r *Reconciler) reconcileControls(ctx context.Context, cameras []model.Camera) map[string]error {
	if r.prober == nil {
		return nil
	}
	log := logging.Component("reconcile")
	errors := make(map[string]error)
	for _, cam := range cameras {
		if !cam.Connected || cam.DevicePath == "" || len(cam.Controls) == 0 {
			continue
		}
		current, err := r.prober.CurrentControls(ctx, cam.DevicePath)
		if err != nil {
			errors[cam.UID] = err
			continue
		}
		if controlsEqual(current, cam.Controls) {
			continue
		}
		if err := r.prober.ApplyControls(ctx, cam.DevicePath, cam.Controls); err != nil {
			errors[cam.UID] = err
			log.Warn().Str("uid", cam.UID).Err(err).Msg("failed to apply v4l2 controls")
		}
	}
	return errors
}

// controlsEqual reports whether every desired control in b is present in the
// driver-reported set a with the same value; extra controls the driver
// reports but b does not set are not a difference.
func controlsEqual(a, b model.Controls) bool {
	for name, value := range b {
		if current, ok := a[name]; !ok || current != value {
			return false
		}
	}
	return true
}

// fatalIfCorruption enforces §4.8's "fatal vs recoverable" split: only
// Store corruption propagates up and kills the Reconciler; every other
// Store error is logged and the event or tick is skipped.
func fatalIfCorruption(err error) error {
	if errs.Is(err, errs.Corruption) {
		return err
	}
	log := logging.Component("reconcile")
	log.Warn().Err(err).Msg("recoverable store error, skipping")
	return nil
}
