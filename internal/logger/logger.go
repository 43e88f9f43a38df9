// Package logger is a small leveled wrapper around the standard library
// logger. Messages below the configured level are dropped before
// formatting.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// Level is the severity of a log message.
type Level int32

const (
	TRACE Level = iota
	DEBUG
	INFO
	WARN
	ERROR
)

var (
	level  atomic.Int32
	output = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
)

func init() {
	level.Store(int32(INFO))
}

// SetLevel sets the minimum level that is logged.
func SetLevel(l Level) {
	level.Store(int32(l))
}

// SetOutput redirects log output, mostly for tests.
func SetOutput(w io.Writer) {
	output.SetOutput(w)
}

// Enabled reports whether messages at l are logged.
func Enabled(l Level) bool {
	return l >= Level(level.Load())
}

// ParseLevel converts a level name (case-insensitive) to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TRACE, nil
	case "DEBUG":
		return DEBUG, nil
	case "INFO", "":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level %q", s)
	}
}

func (l Level) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func logf(l Level, format string, v ...any) {
	if !Enabled(l) {
		return
	}
	output.Printf("[%s] %s", l, fmt.Sprintf(format, v...))
}

// Trace logs at TRACE. Arguments are handled in the manner of [fmt.Printf].
func Trace(format string, v ...any) { logf(TRACE, format, v...) }

// Debug logs at DEBUG. Arguments are handled in the manner of [fmt.Printf].
func Debug(format string, v ...any) { logf(DEBUG, format, v...) }

// Info logs at INFO. Arguments are handled in the manner of [fmt.Printf].
func Info(format string, v ...any) { logf(INFO, format, v...) }

// Warn logs at WARN. Arguments are handled in the manner of [fmt.Printf].
func Warn(format string, v ...any) { logf(WARN, format, v...) }

// Error logs at ERROR. Arguments are handled in the manner of [fmt.Printf].
func Error(format string, v ...any) { logf(ERROR, format, v...) }
