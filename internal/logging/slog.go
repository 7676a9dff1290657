// Package logging builds the loggers used across the simulator: a slog
// fan-out for the application and a zerolog logger for the telemetry sink.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
)

// Options are the optional outputs of Setup.
type Options struct {
	// Console disables the stdout handler when false and a file is given.
	Console bool
	// GraylogAddress enables GELF output over UDP when set, e.g. "localhost:12201".
	GraylogAddress string
}

// SlogManager owns the slog handlers for one process.
type SlogManager struct {
	logger *slog.Logger
	gelf   *gelf.Writer
}

// NewSlogManager creates a manager with no handlers yet.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup builds the handler chain. Console output goes to stdout when no file
// is given or opts.Console is set. A Graylog address that cannot be dialed is
// reported and skipped; the other handlers still work.
func (m *SlogManager) Setup(file io.Writer, level string, opts Options) error {
	lvl := parseLevel(level)

	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	if file == nil || opts.Console {
		handlers = append(handlers, slog.NewTextHandler(os.Stdout, handlerOpts))
	}
	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, handlerOpts))
	}

	var gelfErr error
	m.gelf = nil
	if opts.GraylogAddress != "" {
		w, err := gelf.NewWriter(opts.GraylogAddress)
		if err != nil {
			gelfErr = fmt.Errorf("connecting to graylog at %s: %w", opts.GraylogAddress, err)
		} else {
			w.Facility = "drift-sim"
			m.gelf = w
			handlers = append(handlers, slog.NewJSONHandler(w, handlerOpts))
		}
	}

	m.logger = slog.New(NewMultiHandler(handlers...))
	if gelfErr != nil {
		m.logger.Warn("Graylog output disabled", "error", gelfErr)
	}
	m.logger.Info("Logging initialized", "level", lvl.String())
	return gelfErr
}

// Logger returns the configured slog.Logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Close releases the GELF connection if one is open.
func (m *SlogManager) Close() error {
	if m.gelf == nil {
		return nil
	}
	err := m.gelf.Close()
	m.gelf = nil
	return err
}
