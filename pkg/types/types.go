package types

// Session is one remote login session as reported by the session table.
// Sessions are rebuilt from scratch on every watcher poll; nothing about a
// session persists across polls.
type Session struct {
	// Login name of the session owner.
	// example: carol
	User string `json:"user" example:"carol"`
	// Pseudo-terminal backing the session.
	// example: pts/1
	TTY string `json:"tty" example:"pts/1"`
	// Remote host the session originates from, if reported.
	// example: 10.0.0.22
	From string `json:"from" example:"10.0.0.22"`
	// Login time as printed by the session table.
	// example: 2026-02-26 18:50
	Time string `json:"time" example:"2026-02-26 18:50"`
}

// StatusResponse is the full daemon snapshot returned by the control
// protocol's status command and by GET /status.
type StatusResponse struct {
	// Arbitration state: idle, active or resuming.
	// example: idle
	State string `json:"state" example:"idle"`
	// Label of whoever holds priority, empty when free.
	// example: alice:python train.py
	LockHolder string `json:"lock_holder,omitempty" example:"alice:python train.py"`
	// RFC 3339 time the current hold began, empty when free.
	LockSince string `json:"lock_since,omitempty"`
	// Reference count of explicit lock holders.
	// example: 0
	LockCount int `json:"lock_count" example:"0"`
	// Name of the managed inference unit.
	// example: ollama
	InferenceService string `json:"inference_service" example:"ollama"`
	// Whether the inference unit is active right now.
	// example: true
	InferenceRunning bool `json:"inference_running" example:"true"`
	// Remote sessions seen on the most recent watcher poll.
	Sessions []Session `json:"sessions"`
	// Configured owner identity; sessions of this user never count as guests.
	// example: ben
	OwnerUser string `json:"owner_user" example:"ben"`
}

// ControlRequest is the single JSON object a control client sends per
// connection.
type ControlRequest struct {
	// Command: acquire, release or status.
	// example: acquire
	Cmd string `json:"cmd" example:"acquire"`
	// Holder identity for acquire/release.
	// example: alice:python train.py
	Holder string `json:"holder,omitempty" example:"alice:python train.py"`
}

// ControlReply is the acquire/release response shape. Status commands are
// answered with a StatusResponse instead.
type ControlReply struct {
	OK bool `json:"ok"`
	// Human-readable outcome.
	// example: GPU acquired by alice
	Message string `json:"message" example:"GPU acquired by alice"`
}

// GPUInfo carries VRAM stats for the single managed device.
type GPUInfo struct {
	// example: NVIDIA GeForce RTX 4090
	Name string `json:"name" example:"NVIDIA GeForce RTX 4090"`
	// example: 24564
	TotalVRAMMB int `json:"total_vram_mb" example:"24564"`
	// example: 20110
	FreeVRAMMB int `json:"free_vram_mb" example:"20110"`
	// example: 4454
	UsedVRAMMB int `json:"used_vram_mb" example:"4454"`
}

// LoadedModel is one model currently resident in backend VRAM.
type LoadedModel struct {
	// example: llama3:8b
	Name string `json:"name" example:"llama3:8b"`
	// example: 5120
	VRAMMB int `json:"vram_mb" example:"5120"`
}

// CapacityResponse answers GET /capacity: whether this node is accepting
// inference traffic, and why not when it is not.
type CapacityResponse struct {
	// Hostname of this node.
	// example: gpubox
	Node string `json:"node" example:"gpubox"`
	// Whether proxied inference requests are being admitted.
	// example: true
	AcceptingRequests bool `json:"accepting_requests" example:"true"`
	// Reason admission is denied; empty while accepting.
	// example: arbitration state is active
	UnavailableReason string `json:"unavailable_reason" example:""`
	// Current arbitration state.
	// example: idle
	State string `json:"state" example:"idle"`
	// VRAM stats for the managed GPU.
	GPU GPUInfo `json:"gpu"`
	// Models currently loaded by the backend.
	LoadedModels []LoadedModel `json:"loaded_models"`
	// Remote sessions seen on the most recent watcher poll.
	Sessions []Session `json:"sessions"`
	// Configured owner identity.
	// example: ben
	OwnerUser string `json:"owner_user" example:"ben"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: not found
	Error string `json:"error" example:"not found"`
	// Machine-readable reason, set for gateway admission/upstream errors.
	// example: inference_unavailable
	Reason string `json:"reason,omitempty" example:"inference_unavailable"`
	// Arbitration state at the time of the error, when relevant.
	// example: active
	State string `json:"state,omitempty" example:"active"`
	// HTTP status code.
	// example: 503
	Code int `json:"code" example:"503"`
}
