// Package logging builds the structured logger shared by every component.
//
// Components receive a logr.Logger at construction and never reach for a
// global. The logger is backed by a log/slog handler whose level can be
// changed while running, so a configuration reload can raise or lower
// verbosity without rebuilding the component graph.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-logr/logr"
)

// Level represents the minimum severity that is written.
type Level int

const (
	// LevelDebug is for detailed debugging information, including logr V(1) messages.
	LevelDebug Level = iota
	// LevelInfo is for general informational messages.
	LevelInfo
	// LevelWarn suppresses informational messages.
	LevelWarn
	// LevelError writes errors only.
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel parses a level name. Unknown names yield LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func fromSlog(l slog.Level) Level {
	switch {
	case l <= slog.LevelDebug:
		return LevelDebug
	case l < slog.LevelWarn:
		return LevelInfo
	case l < slog.LevelError:
		return LevelWarn
	default:
		return LevelError
	}
}

// Format selects the log line encoding.
type Format string

const (
	// FormatText writes key=value lines.
	FormatText Format = "text"
	// FormatJSON writes one JSON object per line.
	FormatJSON Format = "json"
)

// Config configures a logger.
type Config struct {
	// Level is the minimum level to output.
	Level Level
	// Format is the line encoding. Defaults to text.
	Format Format
	// Output is where logs are written. Defaults to os.Stderr.
	Output io.Writer
	// Name is the root logger name.
	Name string
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Format: FormatText,
		Output: os.Stderr,
		Name:   "bindkit",
	}
}

// Logger is a logr.Logger with an adjustable level.
type Logger struct {
	logr.Logger
	level *slog.LevelVar
}

// New creates a logger from cfg.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	level := new(slog.LevelVar)
	level.Set(cfg.Level.slog())

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == FormatJSON {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	l := logr.FromSlogHandler(handler)
	if cfg.Name != "" {
		l = l.WithName(cfg.Name)
	}
	return &Logger{Logger: l, level: level}
}

// SetLevel changes the minimum level of this logger and every logger derived
// from it. It is safe to call while other goroutines log.
func (l *Logger) SetLevel(level Level) {
	l.level.Set(level.slog())
}

// Level returns the current minimum level.
func (l *Logger) Level() Level {
	return fromSlog(l.level.Level())
}

// Discard returns a logger that drops everything.
func Discard() logr.Logger {
	return logr.Discard()
}

// WithComponent returns a logger tagged with the component name.
func WithComponent(l logr.Logger, component string) logr.Logger {
	return l.WithValues("component", component)
}
