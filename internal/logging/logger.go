package logging

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// Logger wraps slog.Logger for queue progress reporting.
type Logger struct {
	*slog.Logger
}

// Config configures the logger.
type Config struct {
	Level   string
	Format  string // auto, text, json
	Output  io.Writer
	NoColor bool
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "auto",
		Output: os.Stdout,
	}
}

// New creates a new logger.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	level := parseLevel(cfg.Level)

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(cfg.Output, &slog.HandlerOptions{Level: level})
	case "text":
		handler = slog.NewTextHandler(cfg.Output, &slog.HandlerOptions{Level: level})
	default: // auto
		if isTerminal(cfg.Output) {
			handler = NewConsoleHandler(cfg.Output, level, !cfg.NoColor)
		} else {
			handler = slog.NewTextHandler(cfg.Output, &slog.HandlerOptions{Level: level})
		}
	}

	return &Logger{Logger: slog.New(handler)}
}

// NewNop creates a no-op logger for testing.
func NewNop() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// With returns a logger with custom fields.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// WithEntrant returns a logger carrying the entrant id.
func (l *Logger) WithEntrant(entrantID string) *Logger {
	return &Logger{Logger: l.Logger.With("entrant_id", entrantID)}
}

// WithTable returns a logger carrying the queue table name.
func (l *Logger) WithTable(table string) *Logger {
	return &Logger{Logger: l.Logger.With("table", table)}
}
