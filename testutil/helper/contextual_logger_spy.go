package helper

import (
	"context"
	"sync"
)

// SpyContextualLogRecord represents a recorded contextual log call.
type SpyContextualLogRecord struct {
	Level   string
	Message string
	Args    []any
	Context context.Context
}

// ContextualLoggerSpy is a lending.ContextualLogger that captures calls for testing.
type ContextualLoggerSpy struct {
	records []SpyContextualLogRecord
	mu      sync.Mutex
}

// NewContextualLoggerSpy creates a new ContextualLoggerSpy.
func NewContextualLoggerSpy() *ContextualLoggerSpy {
	return &ContextualLoggerSpy{records: make([]SpyContextualLogRecord, 0)}
}

func (s *ContextualLoggerSpy) add(ctx context.Context, level, msg string, args []any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, SpyContextualLogRecord{Level: level, Message: msg, Args: args, Context: ctx})
}

// DebugContext implements lending.ContextualLogger.
func (s *ContextualLoggerSpy) DebugContext(ctx context.Context, msg string, args ...any) {
	s.add(ctx, "debug", msg, args)
}

// InfoContext implements lending.ContextualLogger.
func (s *ContextualLoggerSpy) InfoContext(ctx context.Context, msg string, args ...any) {
	s.add(ctx, "info", msg, args)
}

// WarnContext implements lending.ContextualLogger.
func (s *ContextualLoggerSpy) WarnContext(ctx context.Context, msg string, args ...any) {
	s.add(ctx, "warn", msg, args)
}

// ErrorContext implements lending.ContextualLogger.
func (s *ContextualLoggerSpy) ErrorContext(ctx context.Context, msg string, args ...any) {
	s.add(ctx, "error", msg, args)
}

// Records returns a copy of all captured records.
func (s *ContextualLoggerSpy) Records() []SpyContextualLogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]SpyContextualLogRecord, len(s.records))
	copy(records, s.records)

	return records
}

// HasLog reports whether a record with the given level ("debug", "info", "warn", "error") and message exists.
func (s *ContextualLoggerSpy) HasLog(level, message string) bool {
	for _, record := range s.Records() {
		if record.Level == level && record.Message == message {
			return true
		}
	}

	return false
}
