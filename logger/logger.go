package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
)

// Logger defines a minimal logging contract compatible with go-logger.
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
	WithContext(ctx context.Context) Logger
}

// LoggerProvider returns named loggers.
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// FieldsLogger allows attaching structured fields to a logger.
type FieldsLogger interface {
	WithFields(fields map[string]any) Logger
}

// BasicLogger writes logs to a writer using fmt.Fprintf.
type BasicLogger struct {
	Writer io.Writer
	fields map[string]any
	mu     *sync.Mutex
}

// Default returns a usable logger when none is provided.
func Default() Logger {
	return defaultLogger
}

// Discard returns a logger that drops every entry.
func Discard() Logger {
	return nopLogger{}
}

// NewBasicLogger constructs a BasicLogger that logs to stdout by default.
func NewBasicLogger() *BasicLogger {
	return &BasicLogger{
		Writer: os.Stdout,
		mu:     &sync.Mutex{},
	}
}

// WithFields attaches fields to a logger. Loggers that cannot carry fields
// are returned unchanged.
func WithFields(lgr Logger, fields map[string]any) Logger {
	if lgr == nil {
		return Default()
	}
	if fl, ok := lgr.(FieldsLogger); ok && len(fields) > 0 {
		return fl.WithFields(fields)
	}
	return lgr
}

// WithFields implements FieldsLogger.
func (l *BasicLogger) WithFields(fields map[string]any) Logger {
	if l == nil {
		return &BasicLogger{Writer: os.Stdout, fields: copyFields(fields), mu: &sync.Mutex{}}
	}
	if len(fields) == 0 {
		return l
	}
	merged := copyFields(l.fields)
	if merged == nil {
		merged = make(map[string]any, len(fields))
	}
	for key, value := range fields {
		merged[key] = value
	}
	return &BasicLogger{
		Writer: l.Writer,
		fields: merged,
		mu:     l.lock(),
	}
}

// WithContext implements Logger.
func (l *BasicLogger) WithContext(ctx context.Context) Logger {
	return l
}

// Trace implements Logger.
func (l *BasicLogger) Trace(msg string, args ...any) { l.log("TRACE", msg, args...) }

// Debug implements Logger.
func (l *BasicLogger) Debug(msg string, args ...any) { l.log("DEBUG", msg, args...) }

// Info implements Logger.
func (l *BasicLogger) Info(msg string, args ...any) { l.log("INFO", msg, args...) }

// Warn implements Logger.
func (l *BasicLogger) Warn(msg string, args ...any) { l.log("WARN", msg, args...) }

// Error implements Logger.
func (l *BasicLogger) Error(msg string, args ...any) { l.log("ERROR", msg, args...) }

// Fatal implements Logger.
func (l *BasicLogger) Fatal(msg string, args ...any) { l.log("FATAL", msg, args...) }

func (l *BasicLogger) log(level string, msg string, args ...any) {
	if l == nil {
		return
	}
	out := l.Writer
	if out == nil {
		out = os.Stdout
	}
	combined := append(fieldsToArgs(l.fields), args...)
	mu := l.lock()
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, "[%s] %s %v\n", level, msg, combined)
}

func (l *BasicLogger) lock() *sync.Mutex {
	if l.mu == nil {
		l.mu = &sync.Mutex{}
	}
	return l.mu
}

func copyFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		out[key] = value
	}
	return out
}

func fieldsToArgs(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(fields)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}

type nopLogger struct{}

func (nopLogger) Trace(string, ...any)                 {}
func (nopLogger) Debug(string, ...any)                 {}
func (nopLogger) Info(string, ...any)                  {}
func (nopLogger) Warn(string, ...any)                  {}
func (nopLogger) Error(string, ...any)                 {}
func (nopLogger) Fatal(string, ...any)                 {}
func (n nopLogger) WithContext(context.Context) Logger { return n }

var defaultLogger Logger = NewBasicLogger()

var _ Logger = (*BasicLogger)(nil)
var _ FieldsLogger = (*BasicLogger)(nil)
var _ Logger = nopLogger{}
