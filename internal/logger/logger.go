package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Logger wraps slog.Logger with sequel specific helpers
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
}

// New creates a logger writing to w (stderr when nil).
// format "json" selects the JSON handler, anything else the tint console handler.
func New(level, format string, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}

	var handler slog.Handler
	logLevel := new(slog.LevelVar)
	logLevel.Set(ParseLevel(level))

	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel})
	default:
		handler = tint.NewHandler(w, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.TimeOnly,
			NoColor:    !isTerminal(w),
		})
	}

	return &Logger{Logger: slog.New(handler), level: logLevel}
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// WithComponent tags records with the emitting component
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{Logger: l.With("component", name), level: l.level}
}

// WithConnection tags records with a server connection
func (l *Logger) WithConnection(id int) *Logger {
	return &Logger{Logger: l.With("connection_id", id), level: l.level}
}

// SetLevel changes the level of l and every logger derived from it.
// It is a no-op on a discarding logger.
func (l *Logger) SetLevel(level string) {
	if l.level == nil {
		return
	}
	l.level.Set(ParseLevel(level))
}

// ParseLevel maps a config level name to a slog level, ignoring case.
// Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
