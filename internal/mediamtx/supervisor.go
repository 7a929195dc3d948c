package mediamtx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ravensperch/internal/backoff"
	"ravensperch/internal/fingerprint"
	"ravensperch/internal/logging"
	"ravensperch/internal/model"
	"ravensperch/internal/synth"
)

// DesiredPath is one entry of the Stream Supervisor's desired set (§4.6):
// a UID with the command it should be running.
type DesiredPath struct {
	UID     string
	Command string
}

// Op is one convergence action.
type Op int

const (
	OpCreate Op = iota
	OpDelete
	OpReplace
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpDelete:
		return "delete"
	case OpReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// Plan is one planned convergence action against a single path name.
type Plan struct {
	Op      Op
	UID     string
	Command string
}

// ComputePlan implements §4.6's convergence algorithm: create what's
// missing, delete what's no longer desired (only among UID-shaped, i.e.
// owned, names), and replace where the command hash differs.
func ComputePlan(desired []DesiredPath, observed map[string]string) []Plan {
	desiredByUID := make(map[string]string, len(desired))
	for _, d := range desired {
		desiredByUID[d.UID] = d.Command
	}

	var plans []Plan

	for uid, command := range desiredByUID {
		observedCommand, exists := observed[uid]
		switch {
		case !exists:
			plans = append(plans, Plan{Op: OpCreate, UID: uid, Command: command})
		case synth.Hash(observedCommand) != synth.Hash(command):
			plans = append(plans, Plan{Op: OpReplace, UID: uid, Command: command})
		}
	}

	for name := range observed {
		if !fingerprint.LooksLikeUID(name) {
			continue // not owned by this system, §4.6 ownership safety
		}
		if _, wanted := desiredByUID[name]; !wanted {
			plans = append(plans, Plan{Op: OpDelete, UID: name})
		}
	}

	return plans
}

// Supervisor is the Stream Supervisor: it holds the backoff state across
// ticks and applies convergence plans through a Client.
type Supervisor struct {
	client      *Client
	rtspEndpoint string
	backoffs    *backoff.Tracker
}

// NewSupervisor constructs a Supervisor. rtspEndpoint is passed to the
// Command Synthesizer, e.g. "rtsp://127.0.0.1:8554".
func NewSupervisor(client *Client, rtspEndpoint string) *Supervisor {
	return &Supervisor{client: client, rtspEndpoint: rtspEndpoint, backoffs: backoff.NewTracker()}
}

// Reconcile runs one tick of the Stream Supervisor: it reads observed state,
// computes the plan, and applies it, skipping UIDs still under backoff and
// fanning out the remaining operations in parallel (§5's per-tick fan-out).
// It never returns an error for a partial failure; per-UID failures are
// reported in the returned status map instead (§7's propagation policy).
func (s *Supervisor) Reconcile(ctx context.Context, cameras []model.Camera) (statuses map[string]error, skipped bool) {
	log := logging.Component("mediamtx")

	if !s.client.Healthy(ctx) {
		log.Warn().Msg("mediamtx unreachable, skipping stream supervisor this tick")
		return nil, true
	}

	observed, err := s.client.ListPaths(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to list mediamtx paths")
		return nil, true
	}

	var desired []DesiredPath
	commands := make(map[string]string)
	for _, c := range cameras {
		if !c.Enabled || !c.Connected {
			continue
		}
		cmd := synth.Synthesize(c, s.rtspEndpoint)
		commands[c.UID] = cmd
		desired = append(desired, DesiredPath{UID: c.UID, Command: cmd})
	}

	plans := ComputePlan(desired, observed)

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
			err := s.apply(ctx, p, commands)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.backoffs.RecordFailure(p.UID, now)
				statuses[p.UID] = err
				log.Warn().Str("uid", p.UID).Str("op", p.Op.String()).Err(err).Msg("stream convergence op failed")
			} else {
				s.backoffs.RecordSuccess(p.UID)
			}
		}()
	}
	wg.Wait()

	return statuses, false
}

func (s *Supervisor) apply(ctx context.Context, p Plan, commands map[string]string) error {
	switch p.Op {
	case OpCreate:
		return s.client.CreatePath(ctx, p.UID, commands[p.UID])
	case OpDelete:
		return s.client.DeletePath(ctx, p.UID)
	case OpReplace:
		if err := s.client.DeletePath(ctx, p.UID); err != nil {
			return fmt.Errorf("replace: delete phase: %w", err)
		}
		return s.client.CreatePath(ctx, p.UID, commands[p.UID])
	default:
		return fmt.Errorf("unknown op %v", p.Op)
	}
}
