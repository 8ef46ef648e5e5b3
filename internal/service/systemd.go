// Package service controls the inference unit through the host's service
// manager. Every call shells out with a bounded timeout so a hung systemctl
// can never stall a watcher loop or a status query.
package service

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// Controller is the lifecycle surface the arbiter depends on. The concrete
// implementation is Systemd; tests substitute a fake.
type Controller interface {
	// IsActive reports whether the unit is currently running.
	IsActive(ctx context.Context) bool
	// Start starts the unit. Already-running is not an error.
	Start(ctx context.Context) error
	// Stop stops the unit. Already-stopped is not an error.
	Stop(ctx context.Context) error
	// Unit returns the managed unit name, for status reporting.
	Unit() string
}

const defaultCallTimeout = 10 * time.Second

// Systemd drives a single systemd unit via systemctl.
type Systemd struct {
	unit    string
	timeout time.Duration
}

var _ Controller = (*Systemd)(nil)

// NewSystemd returns a Controller for the named unit.
func NewSystemd(unit string) *Systemd {
	return &Systemd{unit: unit, timeout: defaultCallTimeout}
}

func (s *Systemd) Unit() string { return s.unit }

func (s *Systemd) run(ctx context.Context, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "systemctl", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("systemctl %v: %w (%s)", args, err, string(out))
	}
	return nil
}

func (s *Systemd) IsActive(ctx context.Context) bool {
	return s.run(ctx, "is-active", "--quiet", s.unit) == nil
}

func (s *Systemd) Start(ctx context.Context) error {
	return s.run(ctx, "start", s.unit)
}

func (s *Systemd) Stop(ctx context.Context) error {
	return s.run(ctx, "stop", s.unit)
}

// CanControl reports whether this process has the privilege to drive the
// service manager. The daemon refuses to start without it, since an
// arbitration decision it cannot act on is worse than no daemon at all.
func CanControl(euid int) bool { return euid == 0 }
