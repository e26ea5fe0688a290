package logger

import "recovery-agent/internal/application/port/output"

var _ output.LoggerPort = NopLogger{}

// NopLogger discards everything. Useful in tests and as a default before
// the real logger is wired.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

func (n NopLogger) WithField(string, any) output.LoggerPort     { return n }
func (n NopLogger) WithFields(map[string]any) output.LoggerPort { return n }

func (NopLogger) Close() error { return nil }
