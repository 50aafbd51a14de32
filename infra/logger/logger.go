package logger

import corelogger "github.com/kilianp07/oncall/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.Nop

// New returns a Logger tagged with the given component. Output format follows
// APP_ENV and the level set through SetLevel.
func New(component string) Logger {
	return NewZerologLogger(component)
}
