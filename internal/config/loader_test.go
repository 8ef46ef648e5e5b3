package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", `
[inference]
service = "llamad"
restart_delay = 10
base_url = "http://localhost:9999"

[watchdog]
poll_interval = 2
owner_user = "ben"
ignored_processes = ["Xorg"]

[web]
enabled = false
port = 9101

[daemon]
socket_path = "/tmp/s.sock"
state_file = "/tmp/s.state"
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Inference.Service != "llamad" || cfg.Inference.RestartDelay != 10 || cfg.Inference.BaseURL != "http://localhost:9999" {
		t.Fatalf("unexpected inference cfg: %+v", cfg.Inference)
	}
	if cfg.Watchdog.PollInterval != 2 || cfg.Watchdog.OwnerUser != "ben" || len(cfg.Watchdog.IgnoredProcesses) != 1 {
		t.Fatalf("unexpected watchdog cfg: %+v", cfg.Watchdog)
	}
	if cfg.Web.Enabled || cfg.Web.Port != 9101 {
		t.Fatalf("unexpected web cfg: %+v", cfg.Web)
	}
	if cfg.Daemon.SocketPath != "/tmp/s.sock" || cfg.Daemon.StateFile != "/tmp/s.state" {
		t.Fatalf("unexpected daemon cfg: %+v", cfg.Daemon)
	}
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "inference:\n  service: ollama\nwatchdog:\n  owner_user: ben\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Watchdog.OwnerUser != "ben" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"web":{"enabled":true,"port":9000}}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Web.Enabled || cfg.Web.Port != 9000 {
		t.Fatalf("unexpected cfg: %+v", cfg.Web)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	d := t.TempDir()
	// partial file: unset fields keep defaults
	p := writeTempFile(t, d, "cfg.toml", "[watchdog]\nowner_user = \"ben\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := Default()
	if cfg.Inference.Service != def.Inference.Service || cfg.Watchdog.PollInterval != def.Watchdog.PollInterval {
		t.Fatalf("defaults not preserved: %+v", cfg)
	}
	if cfg.Watchdog.OwnerUser != "ben" {
		t.Fatalf("override not applied: %+v", cfg.Watchdog)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.ini", "x=1")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error on unsupported extension")
	}
	if _, err := Load(filepath.Join(d, "missing.toml")); err == nil {
		t.Fatalf("expected error on missing explicit path")
	}
	bad := writeTempFile(t, d, "bad.toml", "[watchdog]\npoll_interval = -1\n")
	if _, err := Load(bad); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	cfg.Inference.Service = " "
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for empty service")
	}
	cfg = Default()
	cfg.Web.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for port out of range")
	}
	cfg = Default()
	cfg.Daemon.SocketPath = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for empty socket path")
	}
}
