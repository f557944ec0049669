package combinator

import (
	"context"
	"log/slog"
	"strings"
)

// Tracer observes Named parsers. It is only consulted when the package is
// built with the parsetrace tag.
type Tracer interface {
	Enter(name string, depth, pos int)
	Exit(name string, depth int, ok bool)
}

// Named labels p for tracing and diagnostics.
func Named[T any](name string, p Parser[T]) Parser[T] {
	return Parser[T]{name: name, fn: p.Parse}
}

// TracingEnabled reports whether tracing was compiled in.
func TracingEnabled() bool { return tracing }

// LogTracer writes trace events to a structured logger at debug level.
type LogTracer struct {
	Logger *slog.Logger
}

// Enter logs parser entry.
func (t LogTracer) Enter(name string, depth, pos int) {
	t.Logger.LogAttrs(context.Background(), slog.LevelDebug, strings.Repeat("  ", depth)+name,
		slog.Int("pos", pos))
}

// Exit logs parser exit.
func (t LogTracer) Exit(name string, depth int, ok bool) {
	t.Logger.LogAttrs(context.Background(), slog.LevelDebug, strings.Repeat("  ", depth)+name,
		slog.Bool("ok", ok))
}

// RecordingTracer keeps trace events in memory, mainly for tests.
type RecordingTracer struct {
	Events []string
}

// Enter records parser entry.
func (t *RecordingTracer) Enter(name string, depth, _ int) {
	t.Events = append(t.Events, strings.Repeat(" ", depth)+">"+name)
}

// Exit records parser exit.
func (t *RecordingTracer) Exit(name string, depth int, ok bool) {
	mark := "-"
	if ok {
		mark = "+"
	}
	t.Events = append(t.Events, strings.Repeat(" ", depth)+mark+name)
}
