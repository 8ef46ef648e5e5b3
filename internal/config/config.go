package config

// InferenceConfig describes the managed inference unit.
type InferenceConfig struct {
	// Systemd unit name of the inference service.
	Service string `json:"service" yaml:"service" toml:"service"`
	// Seconds to wait after a release before restarting the service.
	RestartDelay int `json:"restart_delay" yaml:"restart_delay" toml:"restart_delay"`
	// Base URL of the backend's HTTP surface (proxy target, liveness probes).
	BaseURL string `json:"base_url" yaml:"base_url" toml:"base_url"`
}

// WatchdogConfig tunes the session and GPU process watchers.
type WatchdogConfig struct {
	// Seconds between watcher polls.
	PollInterval int `json:"poll_interval" yaml:"poll_interval" toml:"poll_interval"`
	// Login name whose sessions never count as a guest claim.
	OwnerUser string `json:"owner_user" yaml:"owner_user" toml:"owner_user"`
	// GPU process names that never count as research workloads.
	IgnoredProcesses []string `json:"ignored_processes" yaml:"ignored_processes" toml:"ignored_processes"`
}

// WebConfig controls the HTTP gateway.
type WebConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Addr    string `json:"addr" yaml:"addr" toml:"addr"`
	Port    int    `json:"port" yaml:"port" toml:"port"`
	// CORS is opt-in; empty origins with enabled=true allows any origin.
	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// DaemonConfig holds filesystem paths owned by the daemon.
type DaemonConfig struct {
	// Unix socket the control protocol binds to.
	SocketPath string `json:"socket_path" yaml:"socket_path" toml:"socket_path"`
	// Advisory last-known-status file, written after each transition and
	// never read back.
	StateFile string `json:"state_file" yaml:"state_file" toml:"state_file"`
}

// Config holds all runtime parameters for the daemon.
type Config struct {
	Inference InferenceConfig `json:"inference" yaml:"inference" toml:"inference"`
	Watchdog  WatchdogConfig  `json:"watchdog" yaml:"watchdog" toml:"watchdog"`
	Web       WebConfig       `json:"web" yaml:"web" toml:"web"`
	Daemon    DaemonConfig    `json:"daemon" yaml:"daemon" toml:"daemon"`
}

// DefaultPath is where the daemon looks for configuration when no path is
// given on the command line.
const DefaultPath = "/etc/sentinel/config.toml"

// Default returns the built-in configuration. Load unmarshals on top of it,
// so file values override field by field.
func Default() Config {
	return Config{
		Inference: InferenceConfig{
			Service:      "ollama",
			RestartDelay: 3,
			BaseURL:      "http://localhost:11434",
		},
		Watchdog: WatchdogConfig{
			PollInterval:     5,
			IgnoredProcesses: []string{"Xorg", "gnome-shell", "plasmashell"},
		},
		Web: WebConfig{
			Enabled: true,
			Port:    8765,
		},
		Daemon: DaemonConfig{
			SocketPath: "/var/run/sentinel.sock",
			StateFile:  "/var/run/sentinel.state",
		},
	}
}
