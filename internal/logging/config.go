package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fuelcast/fuelcast/internal/config"
)

// serviceName is attached to every record built from configuration
const serviceName = "fuelcast"

// NewFromConfig builds the process logger. An unknown or empty level falls
// back to info; console output is human readable, anything else is JSON.
func NewFromConfig(cfg config.LoggingConfig) (*Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	output, err := openOutput(cfg.OutputPath)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: consoleTimeLayout(cfg.TimeFormat)}
	}

	return newLogger(output, level).With("service", serviceName), nil
}

// openOutput resolves stdout, stderr or an append-only log file
func openOutput(path string) (io.Writer, error) {
	switch path {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory for %s: %w", path, err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return file, nil
}

// consoleTimeLayout maps a configured name to a time layout, RFC3339 by default
func consoleTimeLayout(name string) string {
	switch name {
	case "DateTime":
		return time.DateTime
	case "DateOnly":
		return time.DateOnly
	case "Kitchen":
		return time.Kitchen
	case "Unix":
		return time.UnixDate
	case "RFC3339Nano":
		return time.RFC3339Nano
	default:
		return time.RFC3339
	}
}
