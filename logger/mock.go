package logger

import (
	"github.com/stretchr/testify/mock"
)

// MockLogger is a testify mock of the Logger interface. Tests use it to
// assert that a component logged (or stayed silent) under specific
// conditions, e.g. that a responder records dropped frames at Debug
// level.
//
// Message methods record the message and the key-value slice as the two
// call arguments:
//
//	m := logger.NewMockLogger()
//	m.On("Debug", mock.Anything, mock.Anything).Return()
type MockLogger struct {
	mock.Mock
}

var _ Logger = (*MockLogger)(nil)

// NewMockLogger creates a MockLogger with no expectations set.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

// Debug records the call.
func (l *MockLogger) Debug(msg string, keysAndValues ...any) {
	l.Called(msg, keysAndValues)
}

// Info records the call.
func (l *MockLogger) Info(msg string, keysAndValues ...any) {
	l.Called(msg, keysAndValues)
}

// Warn records the call.
func (l *MockLogger) Warn(msg string, keysAndValues ...any) {
	l.Called(msg, keysAndValues)
}

// Error records the call.
func (l *MockLogger) Error(msg string, keysAndValues ...any) {
	l.Called(msg, keysAndValues)
}

// Fatal records the call. Unlike a real Logger it does not exit, so
// failure paths stay testable.
func (l *MockLogger) Fatal(msg string, keysAndValues ...any) {
	l.Called(msg, keysAndValues)
}

// With records the call and returns the configured child logger.
func (l *MockLogger) With(keyValues ...any) Logger {
	args := l.Called(keyValues...)

	child, _ := args.Get(0).(Logger)

	return child
}

// Level records the call and returns the configured level.
func (l *MockLogger) Level() Level {
	args := l.Called()

	level, _ := args.Get(0).(Level)

	return level
}

// SetLevel records the call.
func (l *MockLogger) SetLevel(level Level) {
	l.Called(level)
}
