// Package logging builds the zerolog logger mcpwatch's long-running
// components (transport reader loops, the interview orchestrator, the LLM
// fallback client) write operator-facing diagnostics through.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New returns a console-formatted logger writing to w (os.Stderr when nil),
// at the given level ("debug", "info", "warn", "error"; invalid values fall
// back to "info").
func New(w io.Writer, level string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	output := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	return zerolog.New(output).Level(lvl).With().Timestamp().Logger()
}

// Nop returns a logger that discards everything, used in tests and by
// library callers who don't want mcpwatch's internals writing to stderr.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
