package helper

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

// LogHandlerSpy is a slog.Handler implementation that captures log records for testing.
// Wrap it with slog.New to get a logger that satisfies lending.Logger and lending.ContextualLogger.
type LogHandlerSpy struct {
	records     []slog.Record
	mu          sync.Mutex
	logToStdout bool
}

// NewLogHandlerSpy creates a new LogHandlerSpy.
// Switchable to log to stdout, which can be useful for debugging tests by seeing the actual log output.
func NewLogHandlerSpy(logToStdOut bool) *LogHandlerSpy {
	return &LogHandlerSpy{
		records:     make([]slog.Record, 0),
		logToStdout: logToStdOut,
	}
}

// Handle implements slog.Handler interface.
func (s *LogHandlerSpy) Handle(ctx context.Context, record slog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record.Clone())

	if s.logToStdout {
		_ = slog.NewJSONHandler(os.Stdout, nil).Handle(ctx, record)
	}

	return nil
}

// Enabled implements slog.Handler interface.
func (s *LogHandlerSpy) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

// WithAttrs implements slog.Handler interface.
func (s *LogHandlerSpy) WithAttrs(_ []slog.Attr) slog.Handler {
	return s
}

// WithGroup implements slog.Handler interface.
func (s *LogHandlerSpy) WithGroup(_ string) slog.Handler {
	return s
}

// RecordCount returns the number of captured log records.
func (s *LogHandlerSpy) RecordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records)
}

// Reset clears all captured log records.
func (s *LogHandlerSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = s.records[:0]
}

// HasLog reports whether a record with the given level and message was captured.
func (s *LogHandlerSpy) HasLog(level slog.Level, message string) bool {
	return s.CountLogs(level, message) > 0
}

// CountLogs counts the captured records with the given level and message.
func (s *LogHandlerSpy) CountLogs(level slog.Level, message string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, record := range s.records {
		if record.Level == level && record.Message == message {
			count++
		}
	}

	return count
}

// HasLogWithAttr reports whether a record with the given level and message carries the attribute key
// with a value whose string form equals value.
func (s *LogHandlerSpy) HasLogWithAttr(level slog.Level, message, key, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.records {
		if record.Level != level || record.Message != message {
			continue
		}

		found := false
		record.Attrs(func(attr slog.Attr) bool {
			if attr.Key == key && attr.Value.String() == value {
				found = true
				return false
			}

			return true
		})

		if found {
			return true
		}
	}

	return false
}
