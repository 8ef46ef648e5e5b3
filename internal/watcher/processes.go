package watcher

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// SourceWatchdog labels claims inferred from raw GPU process activity.
const SourceWatchdog = "watchdog"

// inferenceProcesses are command names that belong to the managed inference
// backend and never count as research workloads.
var inferenceProcesses = map[string]struct{}{
	"ollama":              {},
	"ollama_llama_server": {},
	"llama-server":        {},
	"llama-cpp-server":    {},
}

// ListComputeProcesses returns the command names of processes currently
// holding GPU compute contexts, per nvidia-smi.
func ListComputeProcesses(ctx context.Context) ([]string, error) {
	out, err := exec.CommandContext(ctx, "nvidia-smi",
		"--query-compute-apps=pid,process_name", "--format=csv,noheader").Output()
	if err != nil {
		return nil, err
	}
	return parseComputeApps(string(out)), nil
}

// parseComputeApps reads nvidia-smi's "pid, process_name" CSV lines and
// returns the process base names.
func parseComputeApps(out string) []string {
	var names []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 2)
		if len(parts) != 2 {
			continue
		}
		name := strings.TrimSpace(parts[1])
		if name == "" {
			continue
		}
		names = append(names, filepath.Base(name))
	}
	return names
}

// researchProcesses subtracts the built-in inference set and the configured
// ignore-list from names, deduplicated.
func researchProcesses(names, ignored []string) []string {
	skip := make(map[string]struct{}, len(ignored))
	for _, n := range ignored {
		skip[n] = struct{}{}
	}
	seen := make(map[string]struct{})
	var research []string
	for _, n := range names {
		if _, ok := inferenceProcesses[n]; ok {
			continue
		}
		if _, ok := skip[n]; ok {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		research = append(research, n)
	}
	return research
}

// processDetect wraps a compute-process lister as a presence detector.
func processDetect(list func(ctx context.Context) ([]string, error), ignored []string) Detector {
	return func(ctx context.Context) ([]string, error) {
		names, err := list(ctx)
		if err != nil {
			return nil, err
		}
		return researchProcesses(names, ignored), nil
	}
}

// NewProcessWatcher watches the GPU process table for research workloads.
func NewProcessWatcher(interval time.Duration, ignored []string, events chan<- Event, log zerolog.Logger) *Presence {
	return NewPresence(SourceWatchdog, interval, processDetect(ListComputeProcesses, ignored), ProcessesTaken, ProcessesFree, events, log)
}
