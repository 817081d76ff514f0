package logx

import (
	"fmt"
	"io"
	"sync/atomic"
)

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(NewLogger(LoadFromEnv()))
}

func std() *Logger { return defaultLogger.Load() }

// SetDefaultLogger replaces the package-level logger.
func SetDefaultLogger(logger *Logger) {
	defaultLogger.Store(logger)
}

// GetDefaultLogger returns the default logger
func GetDefaultLogger() *Logger {
	return std()
}

// SetLevel sets the log level for the default logger
func SetLevel(level Level) {
	std().SetLevel(level)
}

// SetOutput sets the output for the default logger
func SetOutput(w io.Writer) {
	std().SetOutput(w)
}

func Debug(msg string) { std().log(LevelDebug, msg, nil, nil) }
func Info(msg string)  { std().log(LevelInfo, msg, nil, nil) }
func Warn(msg string)  { std().log(LevelWarn, msg, nil, nil) }
func Error(msg string) { std().log(LevelError, msg, nil, nil) }

func Fatal(msg string) {
	l := std()
	l.log(LevelFatal, msg, nil, nil)
	l.exit(1)
}

func Debugf(format string, args ...any) { Debug(fmt.Sprintf(format, args...)) }
func Infof(format string, args ...any)  { Info(fmt.Sprintf(format, args...)) }
func Warnf(format string, args ...any)  { Warn(fmt.Sprintf(format, args...)) }
func Errorf(format string, args ...any) { Error(fmt.Sprintf(format, args...)) }

func Fatalf(format string, args ...any) {
	Fatal(fmt.Sprintf(format, args...))
}

// WithFields creates a new logger entry with fields
func WithFields(fields Fields) *Entry {
	return std().WithFields(fields)
}

// WithField creates a new logger entry with a single field
func WithField(key string, value any) *Entry {
	return std().WithField(key, value)
}

// WithError creates a new logger entry with an error field
func WithError(err error) *Entry {
	return std().WithError(err)
}
