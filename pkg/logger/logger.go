// Package logger provides the leveled console logger used by the commands.
package logger

import (
	"io"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"
)

// Logger defines a simple interface for logging.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
}

// Level is a logging threshold. Messages below it are discarded.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// ParseLevel maps "debug", "info", "warn", "error" and "fatal" to a Level.
// Anything else is treated as info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

const flags = log.Ldate | log.Ltime | log.Lshortfile

type defaultLogger struct {
	debugLogger *log.Logger
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
	fatalLogger *log.Logger
}

func newDefaultLogger(level Level, stdout, stderr io.Writer) *defaultLogger {
	pick := func(min Level, w io.Writer, prefix string) *log.Logger {
		if level > min {
			return log.New(io.Discard, "", 0)
		}
		return log.New(w, prefix, flags)
	}
	return &defaultLogger{
		debugLogger: pick(LevelDebug, stdout, "DEBUG: "),
		infoLogger:  pick(LevelInfo, stdout, "INFO:  "),
		warnLogger:  pick(LevelWarn, stderr, "WARN:  "),
		errorLogger: pick(LevelError, stderr, "ERROR: "),
		// Fatal always prints; it exits the process.
		fatalLogger: log.New(stderr, "FATAL: ", flags),
	}
}

// NewLogger creates a Logger writing to stdout/stderr at the given level.
// loglevel could be "debug", "info", "warn", "error", "fatal"
func NewLogger(logLevel string) Logger {
	return newDefaultLogger(ParseLevel(logLevel), os.Stdout, os.Stderr)
}

// NewWriterLogger is NewLogger with explicit destinations, mostly for tests.
func NewWriterLogger(logLevel string, stdout, stderr io.Writer) Logger {
	return newDefaultLogger(ParseLevel(logLevel), stdout, stderr)
}

func (l *defaultLogger) Debug(args ...interface{}) { l.debugLogger.Println(args...) }
func (l *defaultLogger) Debugf(format string, args ...interface{}) {
	l.debugLogger.Printf(format, args...)
}
func (l *defaultLogger) Info(args ...interface{}) { l.infoLogger.Println(args...) }
func (l *defaultLogger) Infof(format string, args ...interface{}) {
	l.infoLogger.Printf(format, args...)
}
func (l *defaultLogger) Warn(args ...interface{}) { l.warnLogger.Println(args...) }
func (l *defaultLogger) Warnf(format string, args ...interface{}) {
	l.warnLogger.Printf(format, args...)
}
func (l *defaultLogger) Error(args ...interface{}) { l.errorLogger.Println(args...) }
func (l *defaultLogger) Errorf(format string, args ...interface{}) {
	l.errorLogger.Printf(format, args...)
}
func (l *defaultLogger) Fatal(args ...interface{}) { l.fatalLogger.Fatalln(args...) }
func (l *defaultLogger) Fatalf(format string, args ...interface{}) {
	l.fatalLogger.Fatalf(format, args...)
}

// Global std logger instance, info level until SetGlobalLogLevel is called.
var std Logger = newDefaultLogger(LevelInfo, os.Stdout, os.Stderr)

// SetGlobalLogLevel reconfigures the global std logger's level.
func SetGlobalLogLevel(logLevel string) {
	std = newDefaultLogger(ParseLevel(logLevel), os.Stdout, os.Stderr)
}

// Debug logs a debug message using the global std logger.
func Debug(args ...interface{}) { std.Debug(args...) }

// Debugf logs a debug message with formatting.
func Debugf(format string, args ...interface{}) { std.Debugf(format, args...) }

// Info logs an informational message using the global std logger.
func Info(args ...interface{}) { std.Info(args...) }

// Infof logs an informational message with formatting.
func Infof(format string, args ...interface{}) { std.Infof(format, args...) }

// Warn logs a warning.
func Warn(args ...interface{}) { std.Warn(args...) }

// Warnf logs a warning with formatting.
func Warnf(format string, args ...interface{}) { std.Warnf(format, args...) }

// Error logs an error message.
func Error(args ...interface{}) { std.Error(args...) }

// Errorf logs an error message with formatting.
func Errorf(format string, args ...interface{}) { std.Errorf(format, args...) }

// Fatal logs a fatal error message and exits.
func Fatal(args ...interface{}) { std.Fatal(args...) }

// Fatalf logs a fatal error message with formatting and exits.
func Fatalf(format string, args ...interface{}) { std.Fatalf(format, args...) }

// NewZap builds the structured logger handed to components: the
// development config at debug level, the production config otherwise.
func NewZap(logLevel string) (*zap.Logger, error) {
	if ParseLevel(logLevel) == LevelDebug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
