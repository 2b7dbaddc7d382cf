package log

import (
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
)

func rootHandler() slog.Handler {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		return NewTerminalHandler(os.Stderr, true)
	}
	return JSONHandler(os.Stderr)
}

// Root is the process-wide logger with no attributes attached, the
// base every package-level logger var derives from.
func Root() *slog.Logger {
	return slog.New(rootHandler())
}

// WithContext returns Root with ctx (alternating key/value pairs)
// attached. Packages declare one `var logger = log.WithContext("pkg",
// "gossip")` at file scope and log through it, rather than threading a
// logger through every constructor.
func WithContext(ctx ...any) *slog.Logger {
	return Root().With(ctx...)
}

// New builds the process-wide logger: a color terminal handler when
// stderr is a tty, JSON lines otherwise (the shape a log aggregator
// expects once a node runs under a supervisor). Every record carries
// a "component" attribute so a single process log can be filtered by
// subsystem (engine, gossip, bridge, rpc).
func New(component string) *slog.Logger {
	return WithContext("component", component)
}

// NewWithLevel is New but capped to level, for verbosity flags.
func NewWithLevel(component string, level slog.Level) *slog.Logger {
	var lvl slog.LevelVar
	lvl.Set(level)
	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) {
		handler = NewTerminalHandlerWithLevel(os.Stderr, &lvl, true)
	} else {
		handler = JSONHandlerWithLevel(os.Stderr, &lvl)
	}
	return slog.New(handler).With("component", component)
}
