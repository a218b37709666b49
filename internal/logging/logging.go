package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Options selects level, format and destination.
type Options struct {
	Level  string
	Format string
	// Dir receives <component>.log; empty writes to stderr.
	Dir string
}

// New creates a logger tagged with component and returns it with a cleanup.
func New(component string, opts Options) (*logrus.Entry, func(), error) {
	logger := logrus.New()

	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	logger.SetLevel(level)

	switch strings.ToLower(opts.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	cleanup := func() {}
	var out io.Writer = os.Stderr
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, nil, err
		}
		path := filepath.Join(opts.Dir, component+".log")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		out = f
		cleanup = func() { _ = f.Close() }
	}

	logger.SetOutput(out)
	return logger.WithField("component", component), cleanup, nil
}

// ParseLevel maps a config level onto logrus; empty means info.
func ParseLevel(s string) (logrus.Level, error) {
	if strings.TrimSpace(s) == "" {
		return logrus.InfoLevel, nil
	}
	return logrus.ParseLevel(strings.ToLower(s))
}
