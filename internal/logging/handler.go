package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// ConsoleHandler writes compact, optionally colorized lines for operators
// watching a queue wait on a terminal.
type ConsoleHandler struct {
	mu    sync.Mutex
	w     io.Writer
	level slog.Level
	color bool
	attrs []slog.Attr
}

// NewConsoleHandler creates a new console handler.
func NewConsoleHandler(w io.Writer, level slog.Level, color bool) *ConsoleHandler {
	return &ConsoleHandler{
		w:     w,
		level: level,
		color: color,
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle formats and writes the log record.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	line := fmt.Sprintf("%s %s %s", r.Time.Format("15:04:05"), h.formatLevel(r.Level), r.Message)

	for _, attr := range h.attrs {
		line += h.formatAttr(attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		line += h.formatAttr(a)
		return true
	})

	_, err := fmt.Fprintln(h.w, line)
	return err
}

// WithAttrs returns a new handler with attrs.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandler := &ConsoleHandler{
		w:     h.w,
		level: h.level,
		color: h.color,
		attrs: make([]slog.Attr, 0, len(h.attrs)+len(attrs)),
	}
	newHandler.attrs = append(newHandler.attrs, h.attrs...)
	newHandler.attrs = append(newHandler.attrs, attrs...)
	return newHandler
}

// WithGroup returns a new handler with a group. Groups are flattened:
// queue progress lines stay single-level.
func (h *ConsoleHandler) WithGroup(_ string) slog.Handler {
	return h
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
	colorCyan   = "\033[36m"
)

func (h *ConsoleHandler) formatLevel(level slog.Level) string {
	var label, color string
	switch level {
	case slog.LevelDebug:
		label, color = "DBG", colorGray
	case slog.LevelInfo:
		label, color = "INF", colorBlue
	case slog.LevelWarn:
		label, color = "WRN", colorYellow
	case slog.LevelError:
		label, color = "ERR", colorRed
	default:
		label = level.String()
	}
	if !h.color {
		return label
	}
	return color + label + colorReset
}

func (h *ConsoleHandler) formatAttr(a slog.Attr) string {
	if a.Value.Kind() == slog.KindGroup {
		var result string
		for _, attr := range a.Value.Group() {
			result += h.formatAttr(attr)
		}
		return result
	}
	if !h.color {
		return fmt.Sprintf(" %s=%v", a.Key, a.Value.Any())
	}
	return fmt.Sprintf(" %s%s%s=%v", colorCyan, a.Key, colorReset, a.Value.Any())
}
