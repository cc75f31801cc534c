package gologgeradapter

import (
	"context"

	"github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-viewas/logger"
)

// Logger adapts a go-logger logger to the engine logger contract.
type Logger struct {
	next glog.Logger
}

// NewLogger wraps next. A nil logger discards entries.
func NewLogger(next glog.Logger) logger.Logger {
	if next == nil {
		return logger.Discard()
	}
	return &Logger{next: next}
}

func (l *Logger) Trace(msg string, args ...any) { l.next.Trace(msg, args...) }
func (l *Logger) Debug(msg string, args ...any) { l.next.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.next.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.next.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.next.Error(msg, args...) }

// Fatal logs at error level so the engine never exits the process.
func (l *Logger) Fatal(msg string, args ...any) { l.next.Error(msg, args...) }

// WithContext implements logger.Logger.
func (l *Logger) WithContext(ctx context.Context) logger.Logger {
	return &Logger{next: l.next.WithContext(ctx)}
}

// WithFields implements logger.FieldsLogger when the wrapped logger does.
func (l *Logger) WithFields(fields map[string]any) logger.Logger {
	if fl, ok := l.next.(glog.FieldsLogger); ok {
		return &Logger{next: fl.WithFields(fields)}
	}
	return l
}

var _ logger.Logger = (*Logger)(nil)
var _ logger.FieldsLogger = (*Logger)(nil)
