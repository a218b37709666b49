// Package config loads the host configuration from YAML or TOML files with
// ${VAR} expansion and MIMIR_* environment overrides.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces environment overrides.
const EnvPrefix = "MIMIR_"

// Config is the complete host configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Loop      LoopConfig      `yaml:"loop" toml:"loop"`
	Scene     SceneConfig     `yaml:"scene" toml:"scene"`
	Databases DatabasesConfig `yaml:"databases" toml:"databases"`
}

// ServerConfig holds the listener settings.
type ServerConfig struct {
	Host string `yaml:"host" toml:"host"`
	Port int    `yaml:"port" toml:"port"`
	Name string `yaml:"name" toml:"name"`

	ShutdownTimeout    time.Duration `yaml:"-" toml:"-"`
	ShutdownTimeoutRaw string        `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// Addr joins host and port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	// Dir receives <component>.log files; empty logs to stderr.
	Dir string `yaml:"dir" toml:"dir"`
}

// LoopConfig tunes the main loop.
type LoopConfig struct {
	TickRate int `yaml:"tick_rate" toml:"tick_rate"`
}

// SceneConfig points at an optional scene description.
type SceneConfig struct {
	File string `yaml:"file" toml:"file"`
}

// DatabasesConfig toggles the built-in databases.
type DatabasesConfig struct {
	SceneObjects bool `yaml:"scene_objects" toml:"scene_objects"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:               "127.0.0.1",
			Port:               8080,
			Name:               "mimir-host",
			ShutdownTimeoutRaw: "5s",
		},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Loop:      LoopConfig{TickRate: 60},
		Databases: DatabasesConfig{SceneObjects: true},
	}
}

// Load reads the configuration at path over the defaults. An empty path
// skips the file. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := decode(path, expandEnvVars(string(data)), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func decode(path, data string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err := toml.Decode(data, cfg)
		return err
	case ".yaml", ".yml", "":
		return yaml.Unmarshal([]byte(data), cfg)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

var envVar = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the variable's value, or nothing
// when it is unset.
func expandEnvVars(s string) string {
	return envVar.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVar.FindStringSubmatch(match)[1])
	})
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s=%q is not an integer", EnvPrefix, key, v)
		}
		*dst = n
		return nil
	}

	str("HOST", &cfg.Server.Host)
	str("SERVER_NAME", &cfg.Server.Name)
	str("SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeoutRaw)
	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)
	str("LOG_DIR", &cfg.Logging.Dir)
	str("SCENE_FILE", &cfg.Scene.File)
	if err := num("PORT", &cfg.Server.Port); err != nil {
		return err
	}
	if err := num("TICK_RATE", &cfg.Loop.TickRate); err != nil {
		return err
	}
	if v, ok := lookup(EnvPrefix + "SCENE_OBJECTS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sSCENE_OBJECTS=%q is not a boolean", EnvPrefix, v)
		}
		cfg.Databases.SceneObjects = b
	}
	return nil
}

func parseDurations(cfg *Config) error {
	if cfg.Server.ShutdownTimeoutRaw == "" {
		return nil
	}
	d, err := time.ParseDuration(cfg.Server.ShutdownTimeoutRaw)
	if err != nil {
		return fmt.Errorf("parsing shutdown_timeout %q: %w", cfg.Server.ShutdownTimeoutRaw, err)
	}
	cfg.Server.ShutdownTimeout = d
	return nil
}

// Validate checks that all configuration fields are usable.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Name) == "" {
		return fmt.Errorf("server.name is required")
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must not be negative")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q must be text or json", c.Logging.Format)
	}
	if c.Loop.TickRate <= 0 || c.Loop.TickRate > 1000 {
		return fmt.Errorf("loop.tick_rate %d must be between 1 and 1000", c.Loop.TickRate)
	}
	return nil
}
