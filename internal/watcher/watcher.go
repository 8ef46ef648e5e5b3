// Package watcher infers priority claims from system-level signals: remote
// login sessions and raw GPU process activity. Both watchers run the same
// machine: poll a detector, diff against a boolean presence flag and emit an
// edge-triggered taken/free event pair.
package watcher

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Detector reports the identities currently present for one signal. An error
// degrades to an empty reading; it never stops the watcher.
type Detector func(ctx context.Context) ([]string, error)

const detectTimeout = 5 * time.Second

// Presence is an edge-triggered presence watcher. It emits a taken event on
// the empty -> non-empty transition of its detector and a free event on the
// reverse, and nothing on steady state or composition changes in between.
type Presence struct {
	source    string
	interval  time.Duration
	detect    Detector
	takenKind EventKind
	freeKind  EventKind
	events    chan<- Event
	log       zerolog.Logger

	active bool
	stop   chan struct{}
}

// NewPresence builds a watcher around detect. Events are delivered on events;
// the caller owns the channel and its consumer.
func NewPresence(source string, interval time.Duration, detect Detector, takenKind, freeKind EventKind, events chan<- Event, log zerolog.Logger) *Presence {
	return &Presence{
		source:    source,
		interval:  interval,
		detect:    detect,
		takenKind: takenKind,
		freeKind:  freeKind,
		events:    events,
		log:       log,
		stop:      make(chan struct{}),
	}
}

// Run polls until Stop is called. Each iteration is bounded by the detector's
// own call timeout, so shutdown waits at most one iteration.
func (w *Presence) Run() {
	w.log.Info().Str("source", w.source).Dur("interval", w.interval).Msg("watcher started")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.pollOnce()
	for {
		select {
		case <-w.stop:
			w.log.Info().Str("source", w.source).Msg("watcher stopped")
			return
		case <-ticker.C:
			w.pollOnce()
		}
	}
}

// Stop signals the run loop to exit after its current iteration.
func (w *Presence) Stop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
}

func (w *Presence) pollOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), detectTimeout)
	ids, err := w.detect(ctx)
	cancel()
	if err != nil {
		// degrade to an empty reading; the next poll retries naturally
		w.log.Warn().Err(err).Str("source", w.source).Msg("detector failed, treating as empty")
		ids = nil
	}
	switch {
	case len(ids) > 0 && !w.active:
		w.active = true
		w.log.Info().Str("source", w.source).Strs("identities", ids).Msg("presence detected")
		w.emit(Event{Kind: w.takenKind, Source: w.source, Identities: ids})
	case len(ids) == 0 && w.active:
		w.active = false
		w.log.Info().Str("source", w.source).Msg("presence cleared")
		w.emit(Event{Kind: w.freeKind, Source: w.source})
	}
}

func (w *Presence) emit(e Event) {
	select {
	case w.events <- e:
	case <-w.stop:
	}
}
