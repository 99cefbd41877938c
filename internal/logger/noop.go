package logger

// NoopLogger discards all messages. Used in tests.
type NoopLogger struct{}

// NewNoop returns a logger that discards everything.
func NewNoop() Interface { return &NoopLogger{} }

// Debug implements Interface.
func (*NoopLogger) Debug(string, ...any) {}

// Info implements Interface.
func (*NoopLogger) Info(string, ...any) {}

// Warn implements Interface.
func (*NoopLogger) Warn(string, ...any) {}

// Error implements Interface.
func (*NoopLogger) Error(string, ...any) {}

// Fatal implements Interface.
func (*NoopLogger) Fatal(string, ...any) {}

// With implements Interface.
func (n *NoopLogger) With(...any) Interface { return n }
