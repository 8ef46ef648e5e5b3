package watcher

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sentineld/pkg/types"
)

// SourceSSH labels claims inferred from the login session table.
const SourceSSH = "ssh"

// sessionLister reads the current session table. Swapped out in tests.
type sessionLister func(ctx context.Context) ([]types.Session, error)

// ListSessions runs `who` and keeps the pseudo-terminal entries, i.e. remote
// sessions. Console logins (tty*) are not a claim on the GPU.
func ListSessions(ctx context.Context) ([]types.Session, error) {
	out, err := exec.CommandContext(ctx, "who").Output()
	if err != nil {
		return nil, err
	}
	return parseWho(string(out)), nil
}

// parseWho extracts pts/* sessions from `who` output. The line format is
//
//	user tty [(host)] time...
//
// where the origin host, when present, is parenthesized either directly after
// the tty or at the end of the line depending on the coreutils build.
func parseWho(out string) []types.Session {
	var sessions []types.Session
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.HasPrefix(fields[1], "pts/") {
			continue
		}
		s := types.Session{User: fields[0], TTY: fields[1]}
		rest := fields[2:]
		if len(rest) > 0 && strings.HasPrefix(rest[0], "(") {
			s.From = strings.Trim(rest[0], "()")
			rest = rest[1:]
		} else if len(rest) > 0 && strings.HasPrefix(rest[len(rest)-1], "(") {
			s.From = strings.Trim(rest[len(rest)-1], "()")
			rest = rest[:len(rest)-1]
		}
		s.Time = strings.Join(rest, " ")
		sessions = append(sessions, s)
	}
	return sessions
}

// GuestSessions filters out the owner, returning only sessions that count as
// a priority claim. An empty owner means every remote session is a guest.
func GuestSessions(sessions []types.Session, owner string) []types.Session {
	var guests []types.Session
	for _, s := range sessions {
		if owner != "" && s.User == owner {
			continue
		}
		guests = append(guests, s)
	}
	return guests
}

// sessionDetect wraps a session lister as a presence detector: it publishes
// the full session list every poll and reports the deduplicated guest
// usernames as the present identities.
func sessionDetect(list sessionLister, owner string, events chan<- Event) Detector {
	return func(ctx context.Context) ([]string, error) {
		sessions, err := list(ctx)
		if err != nil {
			return nil, err
		}
		events <- Event{Kind: SessionsObserved, Source: SourceSSH, Sessions: sessions}
		seen := make(map[string]struct{})
		var users []string
		for _, g := range GuestSessions(sessions, owner) {
			if _, ok := seen[g.User]; ok {
				continue
			}
			seen[g.User] = struct{}{}
			users = append(users, g.User)
		}
		return users, nil
	}
}

// NewSessionWatcher watches the login session table for guest activity.
func NewSessionWatcher(interval time.Duration, owner string, events chan<- Event, log zerolog.Logger) *Presence {
	return NewPresence(SourceSSH, interval, sessionDetect(ListSessions, owner, events), SessionsTaken, SessionsFree, events, log)
}
