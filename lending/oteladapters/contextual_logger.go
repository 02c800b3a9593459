package oteladapters

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log"

	"github.com/AntonStoeckl/library-lending-go/lending"
)

// SlogBridgeLogger implements lending.ContextualLogger with a *slog.Logger.
// Built by NewSlogBridgeLogger it sends records to the global OpenTelemetry LoggerProvider,
// correlated with the span found in the context.
type SlogBridgeLogger struct {
	logger *slog.Logger
}

// NewSlogBridgeLogger creates a logger backed by the otelslog bridge and the global LoggerProvider.
func NewSlogBridgeLogger(name string) *SlogBridgeLogger {
	return &SlogBridgeLogger{logger: otelslog.NewLogger(name)}
}

// NewSlogBridgeLoggerWithProvider creates a logger backed by the otelslog bridge and the given provider.
func NewSlogBridgeLoggerWithProvider(name string, provider log.LoggerProvider) *SlogBridgeLogger {
	return &SlogBridgeLogger{logger: otelslog.NewLogger(name, otelslog.WithLoggerProvider(provider))}
}

// NewSlogBridgeLoggerWithHandler wraps a plain slog.Handler. No trace correlation is added.
func NewSlogBridgeLoggerWithHandler(handler slog.Handler) *SlogBridgeLogger {
	return &SlogBridgeLogger{logger: slog.New(handler)}
}

func (l *SlogBridgeLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.logger.DebugContext(ctx, msg, args...)
}

func (l *SlogBridgeLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.logger.InfoContext(ctx, msg, args...)
}

func (l *SlogBridgeLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.logger.WarnContext(ctx, msg, args...)
}

func (l *SlogBridgeLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.logger.ErrorContext(ctx, msg, args...)
}

var _ lending.ContextualLogger = (*SlogBridgeLogger)(nil)

// OTelLogger implements lending.ContextualLogger with the OpenTelemetry log API directly.
// Key/value args become string attributes; a trailing key without value is dropped.
type OTelLogger struct {
	logger log.Logger
}

// NewOTelLogger creates an OTelLogger that emits through logger.
func NewOTelLogger(logger log.Logger) *OTelLogger {
	return &OTelLogger{logger: logger}
}

func (l *OTelLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, log.SeverityDebug, msg, args)
}

func (l *OTelLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, log.SeverityInfo, msg, args)
}

func (l *OTelLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, log.SeverityWarn, msg, args)
}

func (l *OTelLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, log.SeverityError, msg, args)
}

func (l *OTelLogger) emit(ctx context.Context, severity log.Severity, msg string, args []any) {
	var record log.Record
	record.SetSeverity(severity)
	record.SetSeverityText(severity.String())
	record.SetBody(log.StringValue(msg))
	record.AddAttributes(logAttributes(args)...)

	l.logger.Emit(ctx, record)
}

func logAttributes(args []any) []log.KeyValue {
	attrs := make([]log.KeyValue, 0, len(args)/2)

	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}

		attrs = append(attrs, log.String(key, stringValue(args[i+1])))
	}

	return attrs
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}

	return slog.AnyValue(v).String()
}

var _ lending.ContextualLogger = (*OTelLogger)(nil)
