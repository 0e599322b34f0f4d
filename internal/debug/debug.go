// Package debug provides opt-in development logging for voxchat.
//
// Logging is disabled until Enable is called; every helper is a no-op while
// disabled so callers never need to check IsEnabled first.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	mu      sync.Mutex
	logger  *log.Logger
	logFile *os.File
	logPath string
)

// Enable starts appending debug output to the file at path.
func Enable(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if logger != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	logFile = f
	logPath = path
	logger = newLogger(f)
	logger.Info("debug session started", "time", time.Now().Format(time.RFC3339), "file", path)
	return nil
}

// EnableWriter sends debug output to w. Used by tests and by `serve --verbose`.
func EnableWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w)
}

func newLogger(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           log.DebugLevel,
		Prefix:          "voxchat",
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
	})
}

// Disable stops debug logging and closes the log file.
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close() //nolint:errcheck // best effort on shutdown
		logFile = nil
	}
	logger = nil
}

// IsEnabled reports whether debug logging is on.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return logger != nil
}

// LogPath returns the path passed to Enable.
func LogPath() string {
	mu.Lock()
	defer mu.Unlock()
	return logPath
}

// Log writes a formatted debug line.
func Log(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		return
	}
	logger.Debug(fmt.Sprintf(format, args...))
	flushLocked()
}

// Event logs something that happened in a component.
func Event(component, eventType, details string) {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		return
	}
	logger.Info(eventType, "component", component, "details", details)
	flushLocked()
}

// Warn logs a recoverable problem.
func Warn(component, message string, keyvals ...any) {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		return
	}
	logger.Warn(message, append([]any{"component", component}, keyvals...)...)
	flushLocked()
}

// Error logs an error with context.
func Error(component string, err error, context string) {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		return
	}
	logger.Error(context, "component", component, "err", err)
	flushLocked()
}

// flushLocked flushes the log file so `tail -f` sees lines immediately. Caller holds mu.
func flushLocked() {
	if logFile != nil {
		_ = logFile.Sync() //nolint:errcheck // flushing is best effort
	}
}
