// Package logctx carries a zerolog logger through a context.Context so
// per-table and per-file work inherits the fields of the operation that
// spawned it.
package logctx

import (
	"context"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// ctxKey is unexported so no other package can collide with the entry.
type ctxKey struct{}

// fallback is the logger handed out when a context carries none. JSON
// to stderr, same shape logging.Init produces.
var fallback = sync.OnceValue(func() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
})

// WithLogger returns a child context carrying l. Retrieve it with From.
func WithLogger(ctx context.Context, l zerolog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the logger carried by ctx. A nil context or one without
// a logger yields the stderr fallback; From never panics.
func From(ctx context.Context) zerolog.Logger {
	if ctx == nil {
		return fallback()
	}
	if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return l
	}
	return fallback()
}

// WithStr returns a child context whose logger has one more string
// field. Used to pin table or file names onto everything a worker logs.
func WithStr(ctx context.Context, key, value string) context.Context {
	l := From(ctx).With().Str(key, value).Logger()
	return WithLogger(ctx, l)
}
