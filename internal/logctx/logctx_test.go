package logctx

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestFromNilContext(t *testing.T) {
	l := From(nil)

	var buf bytes.Buffer
	l = l.Output(&buf)
	l.Info().Msg("probe")

	if buf.Len() == 0 {
		t.Error("expected fallback logger to produce output")
	}
}

func TestFromBareContext(t *testing.T) {
	l := From(context.Background())

	var buf bytes.Buffer
	l = l.Output(&buf)
	l.Info().Msg("probe")

	if buf.Len() == 0 {
		t.Error("expected fallback logger to produce output")
	}
}

func TestWithLoggerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	custom := zerolog.New(&buf).With().Str("run", "nightly").Logger()

	ctx := WithLogger(context.Background(), custom)
	l := From(ctx)
	l.Info().Msg("probe")

	if out := buf.String(); !strings.Contains(out, `"run":"nightly"`) {
		t.Errorf("expected run field in output, got: %s", out)
	}
}

func TestWithLoggerNilContext(t *testing.T) {
	var buf bytes.Buffer

	ctx := WithLogger(nil, zerolog.New(&buf))
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}

	l := From(ctx)
	l.Info().Msg("probe")
	if buf.Len() == 0 {
		t.Error("expected logger to produce output")
	}
}

func TestWithStr(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), zerolog.New(&buf))

	ctx = WithStr(ctx, "table", "inv_bucket_a")
	l := From(ctx)
	l.Info().Msg("probe")

	if out := buf.String(); !strings.Contains(out, `"table":"inv_bucket_a"`) {
		t.Errorf("expected table field in output, got: %s", out)
	}
}

func TestWithStrStacks(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), zerolog.New(&buf))

	ctx = WithStr(ctx, "table", "inv_bucket_a")
	ctx = WithStr(ctx, "file", "data_0001.csv.gz")
	l := From(ctx)
	l.Info().Msg("probe")

	out := buf.String()
	if !strings.Contains(out, `"table":"inv_bucket_a"`) {
		t.Errorf("expected table field, got: %s", out)
	}
	if !strings.Contains(out, `"file":"data_0001.csv.gz"`) {
		t.Errorf("expected file field, got: %s", out)
	}
}

func TestChildContextDoesNotTouchParent(t *testing.T) {
	var buf bytes.Buffer
	parent := WithLogger(context.Background(), zerolog.New(&buf))
	_ = WithStr(parent, "table", "inv_bucket_a")

	l := From(parent)
	l.Info().Msg("probe")

	if out := buf.String(); strings.Contains(out, "inv_bucket_a") {
		t.Errorf("parent logger gained the child's field: %s", out)
	}
}
