package logger

import (
	"go.temporal.io/sdk/log"
)

type temporalLogger struct {
	l *Logger
}

// Temporal adapts the logger to the Temporal SDK so the client, worker and
// workflows share one output.
func (l *Logger) Temporal() log.Logger {
	return temporalLogger{l: l}
}

func (t temporalLogger) Debug(msg string, keyvals ...interface{}) {
	t.l.log(LevelDebug, "TEMPORAL", msg, keyvals)
}

func (t temporalLogger) Info(msg string, keyvals ...interface{}) {
	t.l.log(LevelInfo, "TEMPORAL", msg, keyvals)
}

func (t temporalLogger) Warn(msg string, keyvals ...interface{}) {
	t.l.log(LevelWarn, "TEMPORAL", msg, keyvals)
}

func (t temporalLogger) Error(msg string, keyvals ...interface{}) {
	t.l.log(LevelError, "TEMPORAL", msg, keyvals)
}
