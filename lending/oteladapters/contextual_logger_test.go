package oteladapters_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/log/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/AntonStoeckl/library-lending-go/lending/oteladapters"
)

func Test_SlogBridgeLoggerWithHandler_AllLevels(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := oteladapters.NewSlogBridgeLoggerWithHandler(handler)
	ctx := context.Background()

	logger.DebugContext(ctx, "debug message", "loan_id", "l-1")
	logger.InfoContext(ctx, "info message")
	logger.WarnContext(ctx, "warn message")
	logger.ErrorContext(ctx, "error message")

	output := buf.String()
	assert.Contains(t, output, "debug message")
	assert.Contains(t, output, `"loan_id":"l-1"`)
	assert.Contains(t, output, "info message")
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error message")
}

func Test_SlogBridgeLogger_WithProvider_UnderActiveSpan(t *testing.T) {
	provider := sdktrace.NewTracerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()

	ctx, span := provider.Tracer("test").Start(context.Background(), "lending.lifecycle")
	defer span.End()

	logger := oteladapters.NewSlogBridgeLoggerWithProvider("test", noop.NewLoggerProvider())

	assert.NotPanics(t, func() {
		logger.InfoContext(ctx, "lifecycle operation completed", "operation", "borrow")
	})
}

func Test_NewSlogBridgeLogger_UsesGlobalProvider(t *testing.T) {
	logger := oteladapters.NewSlogBridgeLogger("test")

	assert.NotPanics(t, func() {
		logger.WarnContext(context.Background(), "sweep skipped loan, it changed in between")
	})
}

func Test_OTelLogger_AllLevels(t *testing.T) {
	logger := oteladapters.NewOTelLogger(noop.NewLoggerProvider().Logger("test"))
	ctx := context.Background()

	assert.NotPanics(t, func() {
		logger.DebugContext(ctx, "debug message", "count", 3)
		logger.InfoContext(ctx, "info message", "dangling")
		logger.WarnContext(ctx, "warn message", 42, "non-string key")
		logger.ErrorContext(ctx, "error message", "error", "boom")
	})
}
