package moonraker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ravensperch/internal/backoff"
	"ravensperch/internal/fingerprint"
	"ravensperch/internal/logging"
	"ravensperch/internal/model"
)

// DesiredWebcam is one entry of Registration Sync's desired set (§4.7).
type DesiredWebcam struct {
	UID         string
	Name        string
	StreamURL   string
	SnapshotURL string
	Rotation    int
}

// Op is one convergence action.
type Op int

const (
	OpCreate Op = iota
	OpDelete
	OpReplace
	OpRename
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpDelete:
		return "delete"
	case OpReplace:
		return "replace"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Plan is one planned convergence action against a single webcam uid.
type Plan struct {
	Op  Op
	UID string
}

// ComputePlan implements §4.7's convergence algorithm. A webcam whose stream
// URL differs from the desired URL is replaced by delete-then-create; one
// whose only difference is its name is mutated in place (OpRename) instead,
// matching "names are mutated in place when that is the only difference".
// Deletion is restricted to UID-shaped keys (ownership safety). A uid with no
// entry in observedName means the name could not be observed this tick, not
// that it differs, so it is left alone rather than renamed (§8.2 idempotence).
func ComputePlan(desired []DesiredWebcam, observedStreamURL map[string]string, observedName map[string]string) []Plan {
	desiredByUID := make(map[string]DesiredWebcam, len(desired))
	for _, d := range desired {
		desiredByUID[d.UID] = d
	}

	var plans []Plan

	for uid, want := range desiredByUID {
		gotStreamURL, exists := observedStreamURL[uid]
		switch {
		case !exists:
			plans = append(plans, Plan{Op: OpCreate, UID: uid})
		case gotStreamURL != want.StreamURL:
			plans = append(plans, Plan{Op: OpReplace, UID: uid})
		default:
			if gotName, known := observedName[uid]; known && gotName != want.Name {
				plans = append(plans, Plan{Op: OpRename, UID: uid})
			}
		}
	}

	for uid := range observedStreamURL {
		if !fingerprint.LooksLikeUID(uid) {
			continue // not owned by this system, §4.7 ownership
		}
		if _, wanted := desiredByUID[uid]; !wanted {
			plans = append(plans, Plan{Op: OpDelete, UID: uid})
		}
	}

	return plans
}

// Sync is the Registration Sync component: it holds backoff state across
// ticks and applies convergence plans through a Client.
type Sync struct {
	mu       sync.Mutex
	client   *Client
	backoffs *backoff.Tracker

	host       string
	webrtcPort int

	candidateURLs []string
	callTimeout   time.Duration
}

// NewSync constructs a Sync. client may be nil if endpoint discovery has not
// yet found a reachable Moonraker; Reconcile will retry discovery in that
// case using candidateURLs.
func NewSync(client *Client, host string, webrtcPort int, candidateURLs []string, callTimeout time.Duration) *Sync {
	return &Sync{
		client:        client,
		backoffs:      backoff.NewTracker(),
		host:          host,
		webrtcPort:    webrtcPort,
		candidateURLs: candidateURLs,
		callTimeout:   callTimeout,
	}
}

// Reconcile runs one tick of Registration Sync (§4.8 step 5). Per-uid
// failures are reported in the returned status map rather than aborting the
// tick (§7's propagation policy).
func (s *Sync) Reconcile(ctx context.Context, cameras []model.Camera) (statuses map[string]error, skipped bool) {
	log := logging.Component("moonraker")

	client := s.currentClient(ctx)
	if client == nil || !client.Available(ctx) {
		client = Detect(ctx, s.candidateURLs, s.callTimeout)
		s.setClient(client)
	}
	if client == nil {
		log.Warn().Msg("moonraker unreachable, skipping registration sync this tick")
		return nil, true
	}

	observedStreamURL, observedName, err := client.ListWebcams(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to list moonraker webcams")
		return nil, true
	}

	var desired []DesiredWebcam
	byUID := make(map[string]DesiredWebcam)
	for _, c := range cameras {
		if !c.Enabled || !c.Connected || !c.MoonrakerEnabled {
			continue
		}
		d := DesiredWebcam{
			UID:         c.UID,
			Name:        c.FriendlyName,
			StreamURL:   StreamURL(s.host, s.webrtcPort, c.UID),
			SnapshotURL: SnapshotURL(s.host, c.UID),
			Rotation:    int(c.Rotation),
		}
		desired = append(desired, d)
		byUID[c.UID] = d
	}

	plans := ComputePlan(desired, observedStreamURL, observedName)

	now := time.Now()
	statuses = make(map[string]error)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, p := range plans {
		if !s.backoffs.Ready(p.UID, now) {
			continue
		}
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.apply(ctx, client, p, byUID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.backoffs.RecordFailure(p.UID, now)
				statuses[p.UID] = err
				log.Warn().Str("uid", p.UID).Str("op", p.Op.String()).Err(err).Msg("registration convergence op failed")
			} else {
				s.backoffs.RecordSuccess(p.UID)
			}
		}()
	}
	wg.Wait()

	return statuses, false
}

func (s *Sync) apply(ctx context.Context, client *Client, p Plan, byUID map[string]DesiredWebcam) error {
	switch p.Op {
	case OpCreate:
		d := byUID[p.UID]
		return client.UpsertWebcam(ctx, d.UID, d.Name, d.StreamURL, d.SnapshotURL, d.Rotation)
	case OpRename:
		d := byUID[p.UID]
		return client.RenameWebcam(ctx, d.UID, d.Name)
	case OpDelete:
		return client.DeleteWebcam(ctx, p.UID)
	case OpReplace:
		d := byUID[p.UID]
		if err := client.DeleteWebcam(ctx, p.UID); err != nil {
			return fmt.Errorf("replace: delete phase: %w", err)
		}
		return client.UpsertWebcam(ctx, d.UID, d.Name, d.StreamURL, d.SnapshotURL, d.Rotation)
	default:
		return fmt.Errorf("unknown op %v", p.Op)
	}
}

func (s *Sync) currentClient(ctx context.Context) *Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

func (s *Sync) setClient(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = c
}
