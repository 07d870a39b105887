// Package logging wraps github.com/hashicorp/go-hclog behind a small
// interface so the router core takes a Logger value rather than
// importing hclog directly outside this package and cmd/.
package logging

import (
	"os"

	"github.com/hashicorp/go-hclog"
)

// Logger is the structured-logging surface every router-core component
// takes instead of a bare *log.Logger.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// With returns a Logger that always includes the given key/value
	// pairs, the way hclog.With does — used to attach session_id/realm
	// context once per session instead of on every call site.
	With(args ...interface{}) Logger
}

// hclogAdapter adapts hclog.Logger to Logger.
type hclogAdapter struct {
	l hclog.Logger
}

// New constructs the real hclog-backed logger, for cmd/ binaries.
func New(name string, level string) Logger {
	return &hclogAdapter{l: hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(level),
		Output:     os.Stderr,
		JSONFormat: false,
	})}
}

func (a *hclogAdapter) Debug(msg string, args ...interface{}) { a.l.Debug(msg, args...) }
func (a *hclogAdapter) Info(msg string, args ...interface{})  { a.l.Info(msg, args...) }
func (a *hclogAdapter) Warn(msg string, args ...interface{})  { a.l.Warn(msg, args...) }
func (a *hclogAdapter) Error(msg string, args ...interface{}) { a.l.Error(msg, args...) }
func (a *hclogAdapter) With(args ...interface{}) Logger {
	return &hclogAdapter{l: a.l.With(args...)}
}

// nopLogger discards everything; used by tests that don't care about
// log output.
type nopLogger struct{}

// NewNop constructs a Logger that discards all output.
func NewNop() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) With(...interface{}) Logger   { return nopLogger{} }
