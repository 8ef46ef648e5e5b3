package ctl

import (
	"fmt"
	"io"

	"sentineld/internal/control"
	"sentineld/pkg/types"
)

var stateDisplay = map[string]string{
	"idle":     "IDLE       - inference running, GPU available",
	"active":   "ACTIVE     - inference paused, research workload holds the GPU",
	"resuming": "RESUMING   - waiting to restart inference",
}

// fnStatus queries the daemon and prints a one-screen summary.
func fnStatus(w io.Writer, socketPath string) error {
	var status types.StatusResponse
	if err := control.Send(socketPath, types.ControlRequest{Cmd: "status"}, &status); err != nil {
		return fmt.Errorf("sentineld is not reachable: %w", err)
	}
	renderStatus(w, status)
	return nil
}

func renderStatus(w io.Writer, status types.StatusResponse) {
	display, ok := stateDisplay[status.State]
	if !ok {
		display = status.State
	}
	running := "stopped"
	if status.InferenceRunning {
		running = "running"
	}
	fmt.Fprintf(w, "State:     %s\n", display)
	fmt.Fprintf(w, "Service:   %s (%s)\n", status.InferenceService, running)
	if status.LockHolder != "" {
		fmt.Fprintf(w, "Held by:   %s\n", status.LockHolder)
		fmt.Fprintf(w, "Since:     %s\n", status.LockSince)
		fmt.Fprintf(w, "Locks:     %d\n", status.LockCount)
	}
}
