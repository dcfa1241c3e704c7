package logger

import (
	"log/slog"

	"position_resolver/internal/app/port"
)

// slogAdapter implements port.Logger over slog. A nil base means the
// package-level logger, resolved at call time so Init may run later.
type slogAdapter struct {
	base *slog.Logger
}

// NewSlogAdapter creates a port.Logger backed by the package-level logger.
func NewSlogAdapter() port.Logger {
	return &slogAdapter{}
}

func (a *slogAdapter) logger() *slog.Logger {
	if a.base != nil {
		return a.base
	}
	ensureInitialized()
	return globalLogger
}

func (a *slogAdapter) Info(msg string, args ...any) {
	a.logger().Info(msg, args...)
}

func (a *slogAdapter) Debug(msg string, args ...any) {
	a.logger().Debug(msg, args...)
}

func (a *slogAdapter) Warn(msg string, args ...any) {
	a.logger().Warn(msg, args...)
}

func (a *slogAdapter) Error(msg string, args ...any) {
	a.logger().Error(msg, args...)
}

func (a *slogAdapter) With(args ...any) port.Logger {
	return &slogAdapter{base: a.logger().With(args...)}
}

type nopLogger struct{}

// NewNop returns a port.Logger that discards everything. Used by tests.
func NewNop() port.Logger {
	return nopLogger{}
}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func (n nopLogger) With(...any) port.Logger { return n }
