package arbiter

import (
	"context"
	"encoding/json"
	"os"

	"sentineld/pkg/types"
)

// persistLocked schedules a best-effort write of the current snapshot to the
// state file. The snapshot is copied under the lock; the liveness probe and
// the disk write happen on a detached goroutine. The file is advisory only:
// it exists for post-crash introspection and is never read back.
func (a *Arbiter) persistLocked() {
	if a.cfg.StateFile == "" {
		return
	}
	snap := a.snapshotLocked()
	go a.writeStateFile(snap)
}

func (a *Arbiter) writeStateFile(snap types.StatusResponse) {
	ctx, cancel := context.WithTimeout(a.baseCtx, statusProbeTimeout)
	snap.InferenceRunning = a.svc.IsActive(ctx)
	cancel()

	b, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := os.WriteFile(a.cfg.StateFile, b, 0o644); err != nil {
		a.log.Debug().Err(err).Str("path", a.cfg.StateFile).Msg("state file write failed")
	}
}
