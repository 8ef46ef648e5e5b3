package watcher

import "sentineld/pkg/types"

// EventKind identifies what a watcher observed.
type EventKind string

const (
	// SessionsTaken: the guest session set went empty -> non-empty.
	SessionsTaken EventKind = "sessions_taken"
	// SessionsFree: the guest session set went non-empty -> empty.
	SessionsFree EventKind = "sessions_free"
	// ProcessesTaken: the research process set went empty -> non-empty.
	ProcessesTaken EventKind = "processes_taken"
	// ProcessesFree: the research process set went non-empty -> empty.
	ProcessesFree EventKind = "processes_free"
	// SessionsObserved: full session list, published every poll for status.
	SessionsObserved EventKind = "sessions_observed"
)

// Event is a typed observation emitted by a watcher and consumed by the
// daemon's dispatch loop, which applies it to the arbiter.
type Event struct {
	Kind   EventKind
	Source string
	// Identities present when Kind is a taken event: guest usernames or
	// research process names.
	Identities []string
	// Sessions carries the full list for SessionsObserved.
	Sessions []types.Session
}
