// Package events implements the Event Ingress (§4.9): a kernel-hotplug
// subscription filtered to video devices, with a polling fallback chosen
// once at startup if the subscription cannot be established. Either mode
// posts normalized {path, action} observations into a device.Tracker; this
// package never interprets fingerprints or capabilities itself.
package events

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"ravensperch/internal/logging"
)

// Observer is the seam Ingress posts raw observations through; device.Tracker
// satisfies it via its Observe method.
type Observer interface {
	Observe(ctx context.Context, devicePath string, present bool)
}

// Mode reports which ingress mode ended up active.
type Mode int

const (
	ModeSubscription Mode = iota
	ModePolling
)

func (m Mode) String() string {
	if m == ModeSubscription {
		return "subscription"
	}
	return "polling"
}

// Ingress is the Event Ingress component.
type Ingress struct {
	observer     Observer
	pollInterval time.Duration

	mu   sync.Mutex
	mode Mode

	watcher *fsnotify.Watcher
}

// New constructs an Ingress bound to observer. Nothing runs until Run is called.
func New(observer Observer, pollInterval time.Duration) *Ingress {
	return &Ingress{observer: observer, pollInterval: pollInterval}
}

// Mode reports the active ingress mode, chosen once during Run.
func (in *Ingress) Mode() Mode {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.mode
}

// Run blocks until ctx is cancelled. It attempts the kernel-subscription
// mode first; on failure it falls back to polling for the lifetime of this
// call (no live switching between modes, per §4.3).
func (in *Ingress) Run(ctx context.Context) error {
	log := logging.Component("events")

	in.scanExisting(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn().Err(err).Msg("fsnotify unavailable, falling back to polling")
		return in.runPolling(ctx)
	}
	if err := watcher.Add("/dev"); err != nil {
		watcher.Close()
		log.Warn().Err(err).Msg("cannot watch /dev, falling back to polling")
		return in.runPolling(ctx)
	}

	in.mu.Lock()
	in.mode = ModeSubscription
	in.watcher = watcher
	in.mu.Unlock()

	log.Info().Msg("event ingress subscribed to /dev")
	return in.runSubscription(ctx, watcher)
}

func (in *Ingress) runSubscription(ctx context.Context, watcher *fsnotify.Watcher) error {
	defer watcher.Close()
	log := logging.Component("events")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isVideoNode(ev.Name) {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				in.observer.Observe(ctx, ev.Name, true)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				in.observer.Observe(ctx, ev.Name, false)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("fsnotify watcher error")
		}
	}
}

func (in *Ingress) runPolling(ctx context.Context) error {
	in.mu.Lock()
	in.mode = ModePolling
	in.mu.Unlock()

	ticker := time.NewTicker(in.pollInterval)
	defer ticker.Stop()

	known := in.currentNodes()
	for path := range known {
		in.observer.Observe(ctx, path, true)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			current := in.currentNodes()
			for path := range current {
				if !known[path] {
					in.observer.Observe(ctx, path, true)
				}
			}
			for path := range known {
				if !current[path] {
					in.observer.Observe(ctx, path, false)
				}
			}
			known = current
		}
	}
}

// scanExisting performs a single synchronous initial scan before Run enters
// its steady-state loop (subscription or polling), so devices already
// attached at startup are not missed while a watcher is still being set up.
func (in *Ingress) scanExisting(ctx context.Context) {
	for path := range in.currentNodes() {
		in.observer.Observe(ctx, path, true)
	}
}

func (in *Ingress) currentNodes() map[string]bool {
	matches, _ := filepath.Glob("/dev/video*")
	sort.Strings(matches)
	nodes := make(map[string]bool, len(matches))
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && !info.IsDir() {
			nodes[m] = true
		}
	}
	return nodes
}

func isVideoNode(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, "video")
}
