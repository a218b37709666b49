package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mimirmcp/mimir-host/internal/app"
	"github.com/mimirmcp/mimir-host/internal/config"
	"github.com/mimirmcp/mimir-host/internal/logging"
	"github.com/mimirmcp/mimir-host/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	configPath := flag.String("config", envOr("MIMIR_CONFIG", ""), "Path to a YAML or TOML config file")
	addr := flag.String("addr", "", "Listen address override (host:port)")
	scenePath := flag.String("scene", "", "Scene file override")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get())
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		if err := overrideAddr(cfg, *addr); err != nil {
			return err
		}
	}
	if *scenePath != "" {
		cfg.Scene.File = *scenePath
	}

	logger, cleanup, err := logging.New("mcp-server", logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Dir:    cfg.Logging.Dir,
	})
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer cleanup()

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.WithField("version", version.Get().Version).Info("starting mcp host")
	return a.Run(ctx)
}

func overrideAddr(cfg *config.Config, addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid -addr %q: %w", addr, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid -addr port %q", port)
	}
	cfg.Server.Host, cfg.Server.Port = host, n
	return cfg.Validate()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
