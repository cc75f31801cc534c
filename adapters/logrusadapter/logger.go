// Package logrusadapter exposes a logrus entry as the engine logger.
package logrusadapter

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-viewas/logger"
)

// Logger adapts logrus to logger.Logger. Arguments are read as key/value
// pairs; a trailing key without value is logged under "arg".
type Logger struct {
	entry *logrus.Entry
}

// New wraps a logrus logger, tagging entries with the viewas component.
func New(base *logrus.Logger) *Logger {
	if base == nil {
		base = logrus.StandardLogger()
	}
	return &Logger{entry: base.WithField("component", "viewas")}
}

// FromEntry wraps an existing entry.
func FromEntry(entry *logrus.Entry) *Logger {
	if entry == nil {
		return New(nil)
	}
	return &Logger{entry: entry}
}

// Entry returns the wrapped entry.
func (l *Logger) Entry() *logrus.Entry {
	return l.entry
}

func (l *Logger) Trace(msg string, args ...any) { l.with(args).Trace(msg) }
func (l *Logger) Debug(msg string, args ...any) { l.with(args).Debug(msg) }
func (l *Logger) Info(msg string, args ...any)  { l.with(args).Info(msg) }
func (l *Logger) Warn(msg string, args ...any)  { l.with(args).Warn(msg) }
func (l *Logger) Error(msg string, args ...any) { l.with(args).Error(msg) }

// Fatal logs at error level with fatal=true; it never exits the process.
func (l *Logger) Fatal(msg string, args ...any) {
	l.with(args).WithField("fatal", true).Error(msg)
}

// WithContext implements logger.Logger.
func (l *Logger) WithContext(ctx context.Context) logger.Logger {
	if ctx == nil {
		return l
	}
	return &Logger{entry: l.entry.WithContext(ctx)}
}

// WithFields implements logger.FieldsLogger.
func (l *Logger) WithFields(fields map[string]any) logger.Logger {
	if len(fields) == 0 {
		return l
	}
	return &Logger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *Logger) with(args []any) *logrus.Entry {
	if len(args) == 0 {
		return l.entry
	}
	return l.entry.WithFields(Fields(args...))
}

// Fields converts key/value arguments into logrus fields.
func Fields(args ...any) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		if i+1 >= len(args) {
			fields["arg"] = args[i]
			break
		}
		if err, ok := args[i+1].(error); ok {
			fields[key] = err.Error()
			continue
		}
		fields[key] = args[i+1]
	}
	return fields
}

var _ logger.Logger = (*Logger)(nil)
var _ logger.FieldsLogger = (*Logger)(nil)
