// Package logging configures the process-wide zerolog logger and
// provides progress tracking for inventory scans.
package logging

import (
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var (
	base       atomic.Pointer[zerolog.Logger]
	prettyMode atomic.Bool
)

func init() {
	l := zerolog.New(os.Stderr).With().Timestamp().Logger()
	base.Store(&l)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// Init configures the process logger. debug lowers the level to Debug,
// which is where per-file scan events live. human switches to the
// console writer and adds human-readable companion fields alongside
// the raw numeric ones.
func Init(debug, human bool) {
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	var out io.Writer = os.Stderr
	if human {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	l := zerolog.New(out).With().Timestamp().Logger()
	base.Store(&l)
	prettyMode.Store(human)
}

// L returns the process logger.
func L() *zerolog.Logger {
	return base.Load()
}

// WithPhase returns a child logger tagged with the phase field.
func WithPhase(phase string) zerolog.Logger {
	return base.Load().With().Str("phase", phase).Logger()
}

// IsPrettyMode reports whether human-readable companion fields are
// added alongside raw numeric log fields.
func IsPrettyMode() bool {
	return prettyMode.Load()
}

// SetPrettyMode overrides pretty mode (useful for testing).
func SetPrettyMode(on bool) {
	prettyMode.Store(on)
}

// SetLogger overrides the process logger (useful for testing).
func SetLogger(l zerolog.Logger) {
	base.Store(&l)
}
