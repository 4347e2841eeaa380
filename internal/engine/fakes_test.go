package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/oshokin/lookout-monitor/internal/domain/lookout"
)

var errTestDevice = errors.New("audio device unavailable")

// alertCall records one request made to fakeAlerter.
type alertCall struct {
	op       string
	handle   lookout.AlertHandle
	audioRef string
	volume   int
}

// fakeAlerter records alert requests and hands out sequential handles.
type fakeAlerter struct {
	mu sync.Mutex

	// startErr makes Start fail when set.
	startErr error
	// stopErr makes Stop fail when set.
	stopErr error

	next  lookout.AlertHandle
	calls []alertCall
}

func (f *fakeAlerter) Start(_ context.Context, audioRef string, volume int) (lookout.AlertHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.startErr != nil {
		return 0, f.startErr
	}

	f.next++
	f.calls = append(f.calls, alertCall{op: "start", handle: f.next, audioRef: audioRef, volume: volume})

	return f.next, nil
}

func (f *fakeAlerter) SetVolume(_ context.Context, handle lookout.AlertHandle, volume int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, alertCall{op: "volume", handle: handle, volume: volume})

	return nil
}

func (f *fakeAlerter) Stop(_ context.Context, handle lookout.AlertHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, alertCall{op: "stop", handle: handle})

	return f.stopErr
}

// ops returns the recorded calls filtered by operation.
func (f *fakeAlerter) ops(op string) []alertCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []alertCall

	for _, c := range f.calls {
		if c.op == op {
			out = append(out, c)
		}
	}

	return out
}

// fakeSink collects events in memory.
type fakeSink struct {
	mu     sync.Mutex
	events []lookout.Event
}

func (s *fakeSink) Record(_ context.Context, event lookout.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)
}

// count returns how many events of kind were recorded.
func (s *fakeSink) count(kind lookout.EventKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0

	for _, e := range s.events {
		if e.Kind == kind {
			n++
		}
	}

	return n
}
