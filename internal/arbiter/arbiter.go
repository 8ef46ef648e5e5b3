// Package arbiter owns the authoritative arbitration state machine: a
// reference-counted priority lock over the GPU, reconciled with watcher-forced
// holds, driving the inference unit's lifecycle in lock-step.
package arbiter

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sentineld/internal/service"
	"sentineld/pkg/types"
)

// Config holds the arbiter's tunables.
type Config struct {
	// RestartDelay is the settle time between a release and the service
	// restart.
	RestartDelay time.Duration
	// ResumeWait bounds how long a resume task polls for backend liveness
	// before declaring the transition finished anyway.
	ResumeWait time.Duration
	// OwnerUser is reported in status; session classification happens in the
	// watcher.
	OwnerUser string
	// StateFile receives an advisory JSON snapshot after each transition.
	// Empty disables persistence. The file is never read back.
	StateFile string
}

const (
	defaultResumeWait  = 15 * time.Second
	livenessPollEvery  = 500 * time.Millisecond
	sideEffectTimeout  = 30 * time.Second
	statusProbeTimeout = 10 * time.Second
)

// Arbiter is the single process-wide arbitration state machine. All field
// access goes through mu; the external pause/resume commands run on detached
// goroutines so a slow systemctl never blocks a caller.
type Arbiter struct {
	mu         sync.Mutex
	state      State
	lockHolder string
	lockSince  time.Time
	lockCount  int
	// forced tracks watcher-imposed holds by source ("ssh", "watchdog"),
	// mapping each to its synthesized holder label. Orthogonal to lockCount.
	forced map[string]string
	// seq increments on every transition; background resume tasks capture it
	// so a stale task cannot finalize a state it no longer owns.
	seq uint64

	sessions []types.Session

	svc service.Controller
	cfg Config
	log zerolog.Logger

	// baseCtx parents all detached side-effect tasks; canceling it on
	// shutdown abandons any in-flight pause/resume.
	baseCtx context.Context
}

// New constructs an Arbiter in the idle state. ctx bounds background
// side-effect tasks and should be the daemon's run context.
func New(ctx context.Context, svc service.Controller, cfg Config, log zerolog.Logger) *Arbiter {
	if cfg.ResumeWait <= 0 {
		cfg.ResumeWait = defaultResumeWait
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &Arbiter{
		state:   StateIdle,
		forced:  make(map[string]string),
		svc:     svc,
		cfg:     cfg,
		log:     log,
		baseCtx: ctx,
	}
}

// Acquire increments the holder count and claims the GPU if it was not
// already claimed. It never fails; acquiring an already-held lock stacks.
func (a *Arbiter) Acquire(holder string) AcquireResult {
	a.mu.Lock()
	a.lockCount++
	lockCountGauge.Set(float64(a.lockCount))
	if a.state != StateActive {
		a.becomeActiveLocked(holder, "lock by "+holder)
		count := a.lockCount
		a.mu.Unlock()
		return AcquireResult{Count: count, Message: fmt.Sprintf("GPU acquired by %s", holder)}
	}
	count := a.lockCount
	a.mu.Unlock()
	return AcquireResult{
		Stacked: true,
		Count:   count,
		Message: fmt.Sprintf("GPU already in research mode, lock stacked (count=%d)", count),
	}
}

// Release decrements the holder count, floored at zero. Dropping the last
// counted hold frees the GPU unless a watcher-forced hold is still pending.
func (a *Arbiter) Release(holder string) ReleaseResult {
	a.mu.Lock()
	if a.lockCount > 0 {
		a.lockCount--
	}
	lockCountGauge.Set(float64(a.lockCount))
	if a.lockCount == 0 && a.state == StateActive {
		if len(a.forced) > 0 {
			// A watcher still sees guest activity; the counted lock is gone
			// but the GPU stays claimed under the watcher's label.
			a.lockHolder = a.forcedLabelLocked()
			a.persistLocked()
			a.mu.Unlock()
			return ReleaseResult{Count: 0, Message: "Lock released, GPU still held by watchdog"}
		}
		a.beginResumeLocked("release by " + holder)
		a.mu.Unlock()
		return ReleaseResult{Released: true, Count: 0, Message: "GPU released, resuming inference"}
	}
	count := a.lockCount
	a.mu.Unlock()
	return ReleaseResult{Count: count, Message: fmt.Sprintf("Lock released (remaining count=%d)", count)}
}

// ForceTaken records a watcher-detected guest claim. It does not touch the
// holder count: a forced hold is only reversed by ForceFree from the same
// source. Repeated calls while already claimed are no-ops.
func (a *Arbiter) ForceTaken(source string, identities []string) {
	label := synthLabel(source, identities)
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, dup := a.forced[source]; dup && a.state == StateActive {
		a.forced[source] = label
		return
	}
	a.forced[source] = label
	if a.state == StateActive {
		return
	}
	a.becomeActiveLocked(label, source+" watchdog detection")
}

// ForceFree clears a watcher-forced hold. The GPU is only freed when no
// counted hold and no other forced hold remains; a watcher may not free the
// GPU out from under an explicit client lock. Idempotent.
func (a *Arbiter) ForceFree(source string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.forced[source]; !ok {
		return
	}
	delete(a.forced, source)
	if a.state != StateActive || a.lockCount > 0 || len(a.forced) > 0 {
		if a.state == StateActive && a.lockCount == 0 {
			a.lockHolder = a.forcedLabelLocked()
		}
		return
	}
	a.beginResumeLocked(source + " watchdog clear")
}

// PublishSessions overwrites the latest session list for status reporting.
func (a *Arbiter) PublishSessions(sessions []types.Session) {
	a.mu.Lock()
	a.sessions = sessions
	a.mu.Unlock()
}

// Status returns a point-in-time snapshot. The liveness probe shells out and
// runs before the lock is taken, so callers tolerate its latency but never
// serialize other operations behind it.
func (a *Arbiter) Status() types.StatusResponse {
	ctx, cancel := context.WithTimeout(a.baseCtx, statusProbeTimeout)
	running := a.svc.IsActive(ctx)
	cancel()

	a.mu.Lock()
	defer a.mu.Unlock()
	resp := a.snapshotLocked()
	resp.InferenceRunning = running
	return resp
}

// snapshotLocked builds the status response minus the liveness probe.
func (a *Arbiter) snapshotLocked() types.StatusResponse {
	resp := types.StatusResponse{
		State:            string(a.state),
		LockHolder:       a.lockHolder,
		LockCount:        a.lockCount,
		InferenceService: a.svc.Unit(),
		OwnerUser:        a.cfg.OwnerUser,
		Sessions:         make([]types.Session, len(a.sessions)),
	}
	copy(resp.Sessions, a.sessions)
	if !a.lockSince.IsZero() {
		resp.LockSince = a.lockSince.Format(time.RFC3339)
	}
	return resp
}

// becomeActiveLocked performs the transition to Active and dispatches the
// pause side effect. Callers hold mu.
func (a *Arbiter) becomeActiveLocked(holder, reason string) {
	from := a.state
	a.state = StateActive
	a.lockHolder = holder
	a.lockSince = time.Now()
	a.seq++
	transitionsTotal.WithLabelValues(string(StateActive)).Inc()
	a.log.Info().Str("from", string(from)).Str("holder", holder).Str("reason", reason).
		Msg("GPU claimed, pausing inference")
	a.persistLocked()
	go a.pauseInference(reason)
}

// beginResumeLocked transitions to Resuming and dispatches the restart task.
// Callers hold mu and have already established count==0 and no forced holds.
func (a *Arbiter) beginResumeLocked(reason string) {
	a.state = StateResuming
	a.lockHolder = ""
	a.lockSince = time.Time{}
	a.seq++
	seq := a.seq
	transitionsTotal.WithLabelValues(string(StateResuming)).Inc()
	a.log.Info().Str("reason", reason).Msg("GPU freed, resuming inference")
	a.persistLocked()
	go a.resumeInference(seq)
}

// pauseInference stops the unit, tolerating already-stopped. Runs detached.
func (a *Arbiter) pauseInference(reason string) {
	ctx, cancel := context.WithTimeout(a.baseCtx, sideEffectTimeout)
	defer cancel()
	if !a.svc.IsActive(ctx) {
		a.log.Debug().Msg("inference service already stopped")
		return
	}
	pausesTotal.Inc()
	a.log.Info().Str("reason", reason).Str("unit", a.svc.Unit()).Msg("pausing inference service")
	if err := a.svc.Stop(ctx); err != nil {
		a.log.Error().Err(err).Msg("failed to stop inference service")
	}
}

// resumeInference waits the settle delay, starts the unit and polls for
// liveness, then closes the resuming window if this task still owns it.
// Failures are logged, never rolled back: state reflects intent.
func (a *Arbiter) resumeInference(seq uint64) {
	if a.cfg.RestartDelay > 0 {
		a.log.Info().Dur("delay", a.cfg.RestartDelay).Msg("waiting before resuming inference")
		select {
		case <-time.After(a.cfg.RestartDelay):
		case <-a.baseCtx.Done():
			return
		}
	}
	if a.stale(seq) {
		return
	}
	resumesTotal.Inc()
	ctx, cancel := context.WithTimeout(a.baseCtx, sideEffectTimeout)
	if err := a.svc.Start(ctx); err != nil {
		a.log.Error().Err(err).Msg("failed to start inference service")
	}
	cancel()

	deadline := time.Now().Add(a.cfg.ResumeWait)
	for time.Now().Before(deadline) {
		if a.stale(seq) {
			return
		}
		probeCtx, probeCancel := context.WithTimeout(a.baseCtx, statusProbeTimeout)
		alive := a.svc.IsActive(probeCtx)
		probeCancel()
		if alive {
			break
		}
		select {
		case <-time.After(livenessPollEvery):
		case <-a.baseCtx.Done():
			return
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.seq != seq || a.state != StateResuming {
		return
	}
	a.state = StateIdle
	a.seq++
	transitionsTotal.WithLabelValues(string(StateIdle)).Inc()
	a.log.Info().Msg("inference resumed, GPU idle")
	a.persistLocked()
}

func (a *Arbiter) stale(seq uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.seq != seq
}

func (a *Arbiter) forcedLabelLocked() string {
	labels := make([]string, 0, len(a.forced))
	for _, l := range a.forced {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return strings.Join(labels, "; ")
}

// synthLabel builds a holder label like "ssh:carol;dave" from a watcher
// source and the identities it saw.
func synthLabel(source string, identities []string) string {
	ids := make([]string, 0, len(identities))
	ids = append(ids, identities...)
	sort.Strings(ids)
	return source + ":" + strings.Join(ids, ";")
}
