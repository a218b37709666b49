package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mimirmcp/mimir-host/internal/app"
	"github.com/mimirmcp/mimir-host/internal/config"
	"github.com/mimirmcp/mimir-host/internal/protocol"
	"github.com/mimirmcp/mimir-host/internal/version"
)

// Options captures manifest generation settings.
type Options struct {
	ConfigPath  string
	ScenePath   string
	OutputDir   string
	GeneratedAt time.Time
}

// Manifest is the tool catalogue a host built from a config would advertise.
type Manifest struct {
	Name        string                    `json:"name"`
	Version     string                    `json:"version"`
	GeneratedAt string                    `json:"generated_at"`
	Tools       []protocol.ToolDescriptor `json:"tools"`
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	m, err := Generate(*opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("manifest written to %s\n", filepath.Join(opts.OutputDir, "tools.json"))
	fmt.Printf("tools: %d\n", len(m.Tools))
}

func parseFlags() (*Options, error) {
	var (
		configPath = flag.String("config", "", "host config file (YAML or TOML)")
		scenePath  = flag.String("scene", "", "scene file override")
		outDir     = flag.String("output_dir", ".", "output directory for tools.json")
		at         = flag.String("generated_at", "", "RFC3339 timestamp (default: now UTC)")
	)
	flag.Parse()

	ts := *at
	if ts == "" {
		ts = time.Now().UTC().Format(time.RFC3339)
	}
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return nil, fmt.Errorf("invalid generated_at: %w", err)
	}

	return &Options{
		ConfigPath:  *configPath,
		ScenePath:   *scenePath,
		OutputDir:   *outDir,
		GeneratedAt: parsed,
	}, nil
}

// Generate builds the host described by opts without starting it and writes
// its tool catalogue to tools.json.
func Generate(opts Options) (*Manifest, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.ScenePath != "" {
		cfg.Scene.File = opts.ScenePath
	}

	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	a, err := app.New(cfg, logrus.NewEntry(quiet))
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		Name:        cfg.Server.Name,
		Version:     version.Get().Version,
		GeneratedAt: opts.GeneratedAt.UTC().Format(time.RFC3339),
		Tools:       a.Toolbox().Describe(),
	}

	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(opts.OutputDir, "tools.json"), append(raw, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	return m, nil
}
