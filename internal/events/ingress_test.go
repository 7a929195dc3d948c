package events

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingObserver) Observe(ctx context.Context, devicePath string, present bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state := "absent"
	if present {
		state = "present"
	}
	r.calls = append(r.calls, devicePath+":"+state)
}

func (r *recordingObserver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestIsVideoNode(t *testing.T) {
	cases := map[string]bool{
		"/dev/video0":    true,
		"/dev/video12":   true,
		"/dev/null":      false,
		"/dev/snd/pcmC0": false,
	}
	for path, want := range cases {
		if got := isVideoNode(path); got != want {
			t.Errorf("isVideoNode(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestRunPolling_SetsPollingMode(t *testing.T) {
	obs := &recordingObserver{}
	in := New(obs, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	in.runPolling(ctx)

	if in.Mode() != ModePolling {
		t.Errorf("Mode() = %v, want ModePolling", in.Mode())
	}
}
