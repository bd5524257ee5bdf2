package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func captureDefault(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestMultipleContextValues(t *testing.T) {
	ctx := context.Background()
	ctx = WithRunID(ctx, "run-1")
	ctx = WithCommand(ctx, "build")
	ctx = WithStage(ctx, "emit")
	ctx = WithVersion(ctx, "1.2.0")

	lc := GetContext(ctx)

	if lc.RunID != "run-1" {
		t.Error("expected run-1")
	}
	if lc.Command != "build" {
		t.Error("expected build")
	}
	if lc.Stage != "emit" {
		t.Error("expected emit")
	}
	if lc.Version != "1.2.0" {
		t.Error("expected 1.2.0")
	}
}

func TestOverwriteContextValue(t *testing.T) {
	ctx := WithStage(context.Background(), "emit")
	ctx = WithStage(ctx, "alias")

	if lc := GetContext(ctx); lc.Stage != "alias" {
		t.Errorf("expected alias, got %s", lc.Stage)
	}
}

func TestEmptyContext(t *testing.T) {
	lc := GetContext(context.Background())
	if lc != (LogContext{}) {
		t.Error("expected empty context")
	}
}

func TestInfoContext(t *testing.T) {
	buf := captureDefault(t)

	ctx := WithRunID(context.Background(), "run-42")
	ctx = WithCommand(ctx, "deploy")

	InfoContext(ctx, "test message", slog.String("extra", "value"))

	output := buf.String()
	for _, want := range []string{"run-42", "deploy", "test message", "extra"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in log output: %s", want, output)
		}
	}
}

func TestWarnAndErrorContext(t *testing.T) {
	buf := captureDefault(t)

	ctx := WithStage(context.Background(), "commit")
	WarnContext(ctx, "warning message")
	ErrorContext(ctx, "error occurred", slog.String("error", "push rejected"))

	output := buf.String()
	if !strings.Contains(output, `"level":"WARN"`) || !strings.Contains(output, `"level":"ERROR"`) {
		t.Errorf("expected WARN and ERROR records, got %s", output)
	}
	if strings.Count(output, `"stage":"commit"`) != 2 {
		t.Errorf("expected stage on both records, got %s", output)
	}
}

func TestDebugContext(t *testing.T) {
	buf := captureDefault(t)

	DebugContext(WithVersion(context.Background(), "2.0.0"), "debug message")

	if !strings.Contains(buf.String(), `"version":"2.0.0"`) {
		t.Errorf("expected version attr, got %s", buf.String())
	}
}
