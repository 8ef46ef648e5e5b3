package arbiter

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"sentineld/pkg/types"
)

// fakeService records lifecycle calls in place of systemctl.
type fakeService struct {
	mu     sync.Mutex
	active bool
	starts int
	stops  int
}

func (f *fakeService) IsActive(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeService) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	f.active = true
	return nil
}

func (f *fakeService) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.active = false
	return nil
}

func (f *fakeService) Unit() string { return "ollama" }

func (f *fakeService) counts() (starts, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

func newTestArbiter(t *testing.T, cfg Config) (*Arbiter, *fakeService) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	svc := &fakeService{active: true}
	if cfg.ResumeWait == 0 {
		cfg.ResumeWait = 2 * time.Second
	}
	return New(ctx, svc, cfg, zerolog.Nop()), svc
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (a *Arbiter) currentState() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func TestAcquireReleaseCycle(t *testing.T) {
	a, svc := newTestArbiter(t, Config{})

	res := a.Acquire("alice")
	if res.Stacked || !strings.Contains(res.Message, "acquired") {
		t.Fatalf("unexpected acquire result: %+v", res)
	}
	if a.currentState() != StateActive {
		t.Fatalf("expected active, got %s", a.currentState())
	}
	waitFor(t, "pause", func() bool { _, stops := svc.counts(); return stops == 1 })
	rel := a.Release("alice")
	if !rel.Released || rel.Count != 0 {
		t.Fatalf("unexpected release result: %+v", rel)
	}
	waitFor(t, "resume", func() bool {
		starts, _ := svc.counts()
		return starts == 1 && a.currentState() == StateIdle
	})
}

func TestStackedHolds(t *testing.T) {
	a, svc := newTestArbiter(t, Config{})

	a.Acquire("alice")
	res := a.Acquire("bob")
	if !res.Stacked || res.Count != 2 {
		t.Fatalf("expected stacked count=2, got %+v", res)
	}
	waitFor(t, "single pause", func() bool { _, stops := svc.counts(); return stops == 1 })

	rel := a.Release("alice")
	if rel.Released || rel.Count != 1 {
		t.Fatalf("expected remaining count=1, got %+v", rel)
	}
	if a.currentState() != StateActive {
		t.Fatalf("state changed on partial release: %s", a.currentState())
	}
	time.Sleep(50 * time.Millisecond)
	if starts, _ := svc.counts(); starts != 0 {
		t.Fatalf("resume dispatched on partial release")
	}

	rel = a.Release("bob")
	if !rel.Released {
		t.Fatalf("expected full release, got %+v", rel)
	}
	waitFor(t, "resume after full release", func() bool {
		starts, _ := svc.counts()
		return starts == 1 && a.currentState() == StateIdle
	})
	if _, stops := svc.counts(); stops != 1 {
		t.Fatalf("expected exactly one pause, got %d", stops)
	}
}

func TestReleaseAtZeroIsNoOp(t *testing.T) {
	a, svc := newTestArbiter(t, Config{})

	rel := a.Release("ghost")
	if rel.Released || rel.Count != 0 {
		t.Fatalf("unexpected result: %+v", rel)
	}
	if a.currentState() != StateIdle {
		t.Fatalf("state changed: %s", a.currentState())
	}
	time.Sleep(50 * time.Millisecond)
	if starts, stops := svc.counts(); starts != 0 || stops != 0 {
		t.Fatalf("side effects on no-op release: starts=%d stops=%d", starts, stops)
	}
}

func TestBalancedSequenceReturnsToInitialState(t *testing.T) {
	a, _ := newTestArbiter(t, Config{})

	holders := []string{"alice", "bob", "alice", "carol"}
	for _, h := range holders {
		a.Acquire(h)
	}
	st := a.Status()
	if st.State != string(StateActive) || st.LockCount != len(holders) {
		t.Fatalf("unexpected mid-state: %+v", st)
	}
	for _, h := range holders {
		a.Release(h)
	}
	waitFor(t, "return to idle", func() bool { return a.currentState() == StateIdle })
	if st := a.Status(); st.LockCount != 0 {
		t.Fatalf("count did not return to 0: %+v", st)
	}
}

func TestForceTakenDoesNotTouchCount(t *testing.T) {
	a, svc := newTestArbiter(t, Config{})

	a.Acquire("alice")
	waitFor(t, "pause", func() bool { _, stops := svc.counts(); return stops == 1 })

	a.ForceTaken("ssh", []string{"carol"})
	st := a.Status()
	if st.LockCount != 1 {
		t.Fatalf("ForceTaken altered count: %+v", st)
	}
	// a watcher may not free out from under an explicit lock
	a.ForceFree("ssh")
	if a.currentState() != StateActive {
		t.Fatalf("ForceFree freed a counted lock")
	}
	time.Sleep(50 * time.Millisecond)
	if starts, _ := svc.counts(); starts != 0 {
		t.Fatalf("resume dispatched while lock held")
	}
}

func TestForceTakenForceFreeIdempotent(t *testing.T) {
	a, svc := newTestArbiter(t, Config{})

	a.ForceTaken("watchdog", []string{"train.py"})
	a.ForceTaken("watchdog", []string{"train.py"})
	waitFor(t, "pause", func() bool { _, stops := svc.counts(); return stops == 1 })
	time.Sleep(50 * time.Millisecond)
	if _, stops := svc.counts(); stops != 1 {
		t.Fatalf("duplicate pause dispatched: %d", stops)
	}

	a.ForceFree("watchdog")
	a.ForceFree("watchdog")
	waitFor(t, "resume", func() bool {
		starts, _ := svc.counts()
		return starts == 1 && a.currentState() == StateIdle
	})
	time.Sleep(50 * time.Millisecond)
	if starts, _ := svc.counts(); starts != 1 {
		t.Fatalf("duplicate resume dispatched: %d", starts)
	}
}

func TestForcedHoldSynthesizesLabel(t *testing.T) {
	a, _ := newTestArbiter(t, Config{})

	a.ForceTaken("ssh", []string{"dave", "carol"})
	st := a.Status()
	if st.LockHolder != "ssh:carol;dave" {
		t.Fatalf("unexpected label: %q", st.LockHolder)
	}
	if st.State != string(StateActive) || st.LockCount != 0 {
		t.Fatalf("unexpected snapshot: %+v", st)
	}
}

func TestForcedHoldSurvivesCountedRelease(t *testing.T) {
	a, svc := newTestArbiter(t, Config{})

	a.ForceTaken("ssh", []string{"carol"})
	a.Acquire("alice")
	rel := a.Release("alice")
	if rel.Released {
		t.Fatalf("release freed GPU despite pending watcher hold: %+v", rel)
	}
	if a.currentState() != StateActive {
		t.Fatalf("state: %s", a.currentState())
	}
	st := a.Status()
	if st.LockHolder != "ssh:carol" {
		t.Fatalf("label not restored to watcher hold: %q", st.LockHolder)
	}

	a.ForceFree("ssh")
	waitFor(t, "resume after watcher clear", func() bool {
		starts, _ := svc.counts()
		return starts == 1 && a.currentState() == StateIdle
	})
}

func TestAcquireDuringResumingGoesActive(t *testing.T) {
	// Long settle delay keeps the resume task parked so the window is open.
	a, svc := newTestArbiter(t, Config{RestartDelay: time.Hour})

	a.Acquire("alice")
	waitFor(t, "pause", func() bool { _, stops := svc.counts(); return stops == 1 })
	a.Release("alice")
	if a.currentState() != StateResuming {
		t.Fatalf("expected resuming, got %s", a.currentState())
	}

	res := a.Acquire("bob")
	if res.Stacked {
		t.Fatalf("acquire during resuming should be a fresh hold: %+v", res)
	}
	if a.currentState() != StateActive {
		t.Fatalf("expected active, got %s", a.currentState())
	}
	st := a.Status()
	if st.LockHolder != "bob" || st.LockCount != 1 {
		t.Fatalf("unexpected snapshot: %+v", st)
	}
}

func TestInvariantCountZeroWhenIdle(t *testing.T) {
	a, _ := newTestArbiter(t, Config{})

	check := func() {
		t.Helper()
		a.mu.Lock()
		state, count := a.state, a.lockCount
		a.mu.Unlock()
		if state == StateIdle && count != 0 {
			t.Fatalf("idle with count=%d", count)
		}
		if count > 0 && state != StateActive {
			t.Fatalf("count=%d in state %s", count, state)
		}
	}

	check()
	a.Acquire("a")
	check()
	a.ForceTaken("ssh", []string{"x"})
	check()
	a.Release("a")
	check()
	a.ForceFree("ssh")
	check()
	waitFor(t, "idle", func() bool { return a.currentState() != StateActive })
	check()
}

func TestPublishSessionsVisibleInStatus(t *testing.T) {
	a, _ := newTestArbiter(t, Config{OwnerUser: "ben"})

	a.PublishSessions([]types.Session{{User: "ben", TTY: "pts/0"}, {User: "carol", TTY: "pts/1", From: "10.0.0.22"}})
	st := a.Status()
	if len(st.Sessions) != 2 || st.Sessions[1].User != "carol" {
		t.Fatalf("sessions missing from status: %+v", st.Sessions)
	}
	if st.OwnerUser != "ben" || st.InferenceService != "ollama" {
		t.Fatalf("unexpected status: %+v", st)
	}
	if !st.InferenceRunning {
		t.Fatalf("expected live service in status")
	}
}

func TestPauseSkippedWhenAlreadyStopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	svc := &fakeService{active: false}
	a := New(ctx, svc, Config{ResumeWait: time.Second}, zerolog.Nop())

	a.Acquire("alice")
	time.Sleep(50 * time.Millisecond)
	if _, stops := svc.counts(); stops != 0 {
		t.Fatalf("stop issued for already-stopped unit")
	}
}
