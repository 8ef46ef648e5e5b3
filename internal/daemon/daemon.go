// Package daemon wires configuration, the arbiter, both watchers and the two
// serving surfaces into one runnable process.
package daemon

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"sentineld/internal/arbiter"
	"sentineld/internal/common/fsutil"
	"sentineld/internal/config"
	"sentineld/internal/control"
	"sentineld/internal/gateway"
	"sentineld/internal/service"
	"sentineld/internal/watcher"
	"sentineld/pkg/types"
)

// Core is the arbiter surface the event dispatch loop drives.
type Core interface {
	ForceTaken(source string, identities []string)
	ForceFree(source string)
	PublishSessions(sessions []types.Session)
}

const shutdownTimeout = 5 * time.Second

// Daemon owns the process lifecycle.
type Daemon struct {
	cfg config.Config
	log zerolog.Logger
}

// New builds a Daemon from a validated config.
func New(cfg config.Config, log zerolog.Logger) *Daemon {
	return &Daemon{cfg: cfg, log: log}
}

// Run starts everything and blocks until ctx is canceled, then shuts the
// serving surfaces down and lets in-flight watcher iterations finish.
func (d *Daemon) Run(ctx context.Context) error {
	svc := service.NewSystemd(d.cfg.Inference.Service)
	arb := arbiter.New(ctx, svc, arbiter.Config{
		RestartDelay: time.Duration(d.cfg.Inference.RestartDelay) * time.Second,
		OwnerUser:    d.cfg.Watchdog.OwnerUser,
		StateFile:    d.cfg.Daemon.StateFile,
	}, d.log)

	// The GPU starts idle; make sure inference is actually up.
	d.ensureInferenceRunning(ctx, svc)

	events := make(chan watcher.Event, 16)
	interval := time.Duration(d.cfg.Watchdog.PollInterval) * time.Second
	sessions := watcher.NewSessionWatcher(interval, d.cfg.Watchdog.OwnerUser, events, d.log)
	processes := watcher.NewProcessWatcher(interval, d.cfg.Watchdog.IgnoredProcesses, events, d.log)
	go sessions.Run()
	go processes.Run()
	go dispatch(ctx, events, arb)

	if d.cfg.Daemon.StateFile != "" {
		if err := fsutil.EnsureParentDir(d.cfg.Daemon.StateFile, 0o755); err != nil {
			d.log.Warn().Err(err).Msg("state file directory unavailable")
		}
	}

	ctl := control.NewServer(d.cfg.Daemon.SocketPath, arb, d.log)
	if err := ctl.Start(); err != nil {
		sessions.Stop()
		processes.Stop()
		return fmt.Errorf("control server: %w", err)
	}

	var web *http.Server
	if d.cfg.Web.Enabled {
		gateway.SetCORSOptions(d.cfg.Web.CORSEnabled, d.cfg.Web.CORSOrigins)
		gw := gateway.New(arb, d.cfg.Inference.BaseURL, d.log)
		web = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", d.cfg.Web.Addr, d.cfg.Web.Port),
			Handler: gw.Router(),
		}
		go func() {
			d.log.Info().Str("addr", web.Addr).Msg("gateway listening")
			if err := web.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				d.log.Error().Err(err).Msg("gateway server error")
			}
		}()
	}

	d.log.Info().Str("service", d.cfg.Inference.Service).Str("socket", d.cfg.Daemon.SocketPath).
		Msg("sentinel daemon running")
	<-ctx.Done()

	d.log.Info().Msg("shutting down")
	sessions.Stop()
	processes.Stop()
	if err := ctl.Close(); err != nil {
		d.log.Debug().Err(err).Msg("control close")
	}
	if web != nil {
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := web.Shutdown(shutCtx); err != nil {
			d.log.Debug().Err(err).Msg("gateway shutdown")
		}
	}
	return nil
}

// ensureInferenceRunning starts the unit at boot when the GPU is free, so a
// daemon restart after a crash converges back to the idle contract.
func (d *Daemon) ensureInferenceRunning(ctx context.Context, svc service.Controller) {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if svc.IsActive(probeCtx) {
		return
	}
	d.log.Info().Str("unit", svc.Unit()).Msg("inference service down at startup, starting it")
	if err := svc.Start(probeCtx); err != nil {
		d.log.Error().Err(err).Msg("failed to start inference service")
	}
}

// dispatch applies watcher events to the core until ctx is canceled.
func dispatch(ctx context.Context, events <-chan watcher.Event, core Core) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-events:
			applyEvent(core, e)
		}
	}
}

// applyEvent maps one typed watcher event onto a core operation.
func applyEvent(core Core, e watcher.Event) {
	switch e.Kind {
	case watcher.SessionsObserved:
		core.PublishSessions(e.Sessions)
	case watcher.SessionsTaken, watcher.ProcessesTaken:
		core.ForceTaken(e.Source, e.Identities)
	case watcher.SessionsFree, watcher.ProcessesFree:
		core.ForceFree(e.Source)
	}
}
