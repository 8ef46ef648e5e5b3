package arbiter

// State represents the arbitration state of the GPU.
type State string

const (
	// StateIdle: GPU free, inference running.
	StateIdle State = "idle"
	// StateActive: research workload holds priority, inference paused.
	StateActive State = "active"
	// StateResuming: inference restart in flight after the last hold cleared.
	StateResuming State = "resuming"
)

// AcquireResult reports the outcome of an Acquire call. Acquire never fails;
// Stacked distinguishes a fresh hold from one added to an existing hold.
type AcquireResult struct {
	Stacked bool
	Count   int
	Message string
}

// ReleaseResult reports the outcome of a Release call.
type ReleaseResult struct {
	// Released is true when this call dropped the last counted hold.
	Released bool
	Count    int
	Message  string
}
