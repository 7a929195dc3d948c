// Package app assembles the reconciliation engine's components into a
// running process.
package app

import (
	"context"
	"fmt"

	"ravensperch/internal/adminapi"
	"ravensperch/internal/config"
	"ravensperch/internal/device"
	"ravensperch/internal/events"
	"ravensperch/internal/hardware"
	"ravensperch/internal/logging"
	"ravensperch/internal/mediamtx"
	"ravensperch/internal/moonraker"
	"ravensperch/internal/reconcile"
	"ravensperch/internal/store"
)

// App holds every long-lived component for one process lifetime.
type App struct {
	cfg        *config.Config
	store      *store.Store
	tracker    *device.Tracker
	ingress    *events.Ingress
	reconciler *reconcile.Reconciler
	admin      *adminapi.Server
}

// New wires every component per §2's data flow: Event Ingress -> Device
// Tracker -> Reconciler, with the Stream Supervisor and Registration Sync
// as the Reconciler's convergence targets.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logging.Init(cfg.LogLevel)
	log := logging.Component("app")

	st, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	probe := hardware.NewProbe()

	tracker := device.New(device.NewHardwareProber(probe), cfg.Reconcile.DebounceWindow)
	ingress := events.New(tracker, cfg.Reconcile.PollInterval)

	mtxClient := mediamtx.NewClient(cfg.MediaMTX.APIBase, cfg.Reconcile.CallTimeout)
	rtspEndpoint := fmt.Sprintf("rtsp://127.0.0.1:%d", cfg.MediaMTX.RTSPPort)
	supervisor := mediamtx.NewSupervisor(mtxClient, rtspEndpoint)

	candidateURLs := append([]string{cfg.Moonraker.URL}, cfg.Moonraker.FallbackURLs...)
	mrClient := moonraker.Detect(ctx, candidateURLs, cfg.Reconcile.CallTimeout)
	sync := moonraker.NewSync(mrClient, cfg.BaseHost, cfg.MediaMTX.WebRTCPort, candidateURLs, cfg.Reconcile.CallTimeout)

	reconciler := reconcile.New(st, tracker, probe, supervisor, sync, cfg.Reconcile.TickInterval, cfg.Reconcile.TickBudget)

	adminHandler := adminapi.NewHandler(st, reconciler, probe)
	adminServer := adminapi.NewServer(cfg.ServerAddress(), cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, adminHandler)

	log.Info().Str("addr", cfg.ServerAddress()).Msg("ravens-perch assembled")

	return &App{
		cfg:        cfg,
		store:      st,
		tracker:    tracker,
		ingress:    ingress,
		reconciler: reconciler,
		admin:      adminServer,
	}, nil
}

// Run starts the Event Ingress, Reconciler, and administrative surface and
// blocks until ctx is cancelled or any one of them fails (§5's task model).
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 3)
	go func() { errCh <- a.ingress.Run(runCtx) }()
	go func() { errCh <- a.reconciler.Run(runCtx) }()
	go func() { errCh <- a.admin.Run(runCtx) }()

	var first error
	remaining := 3
	select {
	case <-ctx.Done():
	case err := <-errCh:
		first = err
		remaining--
		cancel()
	}

	// cancel propagates to whichever tasks haven't stopped yet; wait for
	// all three before releasing shared resources.
	for i := 0; i < remaining; i++ {
		if err := <-errCh; err != nil && first == nil {
			first = err
		}
	}

	if closeErr := a.Close(); closeErr != nil && first == nil {
		first = closeErr
	}
	return first
}

// Close releases the Settings Store's underlying connection.
func (a *App) Close() error {
	a.tracker.Close()
	return a.store.Close()
}
