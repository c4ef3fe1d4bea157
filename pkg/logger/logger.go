// Package logger provides a structured logging wrapper for the PGW simulator.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger for structured logging.
type Logger struct {
	zl     zerolog.Logger
	closer io.Closer
}

// Config holds logger configuration.
type Config struct {
	// Level sets the minimum log level: debug, info, warning, error, off
	Level string
	// Format sets the output format: json, console
	Format string
	// Output is a log file path. Empty means console only.
	Output string
	// Console mirrors entries to stdout when Output is set.
	Console bool
	// Fields are additional fields to add to all log entries
	Fields map[string]interface{}
}

// New creates a new logger with the given configuration.
func New(cfg Config) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var (
		output io.Writer = os.Stdout
		closer io.Closer
	)

	if cfg.Format == "console" {
		output = consoleWriter(os.Stdout)
	}

	// Set up file output, optionally teeing to the console
	if cfg.Output != "" {
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", cfg.Output, err)
		}
		closer = file
		if cfg.Console {
			output = zerolog.MultiLevelWriter(file, output)
		} else {
			output = file
		}
	}

	zl := zerolog.New(output).Level(level).With().Timestamp().Logger()

	if len(cfg.Fields) > 0 {
		ctx := zl.With()
		for k, v := range cfg.Fields {
			ctx = ctx.Interface(k, v)
		}
		zl = ctx.Logger()
	}

	return &Logger{zl: zl, closer: closer}, nil
}

// NewDefault creates a logger with default configuration.
func NewDefault() *Logger {
	zl := zerolog.New(consoleWriter(os.Stdout)).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// NewWriter creates a JSON logger writing to w at the given level.
func NewWriter(w io.Writer, level zerolog.Level) *Logger {
	return &Logger{zl: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.DateTime,
	}
}

// ParseLevel converts a configured level name to a zerolog.Level.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "off":
		return zerolog.Disabled, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Debug logs a debug message.
func (l *Logger) Debug() *zerolog.Event {
	return l.zl.Debug()
}

// Info logs an info message.
func (l *Logger) Info() *zerolog.Event {
	return l.zl.Info()
}

// Warn logs a warning message.
func (l *Logger) Warn() *zerolog.Event {
	return l.zl.Warn()
}

// Error logs an error message.
func (l *Logger) Error() *zerolog.Event {
	return l.zl.Error()
}

// WithStr returns a new logger with the given string key-value pair added.
func (l *Logger) WithStr(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}
