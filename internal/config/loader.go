package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Load reads a configuration file based on its extension and applies it over
// Default(). Supports: .toml, .yaml/.yml, .json. A missing file at the
// default path is not an error; the daemon runs on defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultPath {
			return cfg, nil
		}
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, cfg.Validate()
}

// Validate rejects values the daemon cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Inference.Service) == "" {
		return fmt.Errorf("inference.service must not be empty")
	}
	if c.Inference.RestartDelay < 0 {
		return fmt.Errorf("inference.restart_delay must be >= 0, got %d", c.Inference.RestartDelay)
	}
	if c.Watchdog.PollInterval <= 0 {
		return fmt.Errorf("watchdog.poll_interval must be > 0, got %d", c.Watchdog.PollInterval)
	}
	if c.Web.Enabled && (c.Web.Port <= 0 || c.Web.Port > 65535) {
		return fmt.Errorf("web.port out of range: %d", c.Web.Port)
	}
	if strings.TrimSpace(c.Daemon.SocketPath) == "" {
		return fmt.Errorf("daemon.socket_path must not be empty")
	}
	return nil
}
