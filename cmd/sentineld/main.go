package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"sentineld/internal/common/fsutil"
	"sentineld/internal/config"
	"sentineld/internal/daemon"
	"sentineld/internal/service"
)

func main() {
	// Flags with environment variable defaults
	defaultConfig := config.DefaultPath
	if v := os.Getenv("SENTINEL_CONFIG"); v != "" {
		defaultConfig = v
	}
	configPath := flag.String("config", defaultConfig, "Path to config file (toml, yaml or json)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	// Controlling systemd units requires root. Bail out before anything
	// starts rather than failing on the first pause.
	if !service.CanControl(os.Geteuid()) {
		fmt.Fprintln(os.Stderr, "sentineld: must run as root to control the inference service")
		os.Exit(1)
	}

	path, err := fsutil.ExpandHome(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("failed to resolve config path")
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := daemon.New(cfg, log).Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("daemon exited with error")
	}
}
