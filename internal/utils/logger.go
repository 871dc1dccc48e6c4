// Package utils holds small shared helpers.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger writes timestamped lines to a log file, falling back to stdout
// when the file cannot be opened. Used for the monitor/audit log.
type Logger struct {
	mu   sync.Mutex
	file *os.File
}

// NewLogger opens logFile for appending. On failure the logger still works,
// writing to stdout instead.
func NewLogger(logFile string) *Logger {
	logger := &Logger{}
	if logFile == "" {
		return logger
	}
	_ = os.MkdirAll(filepath.Dir(logFile), 0o755)
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log file %s: %v\n", logFile, err)
		return logger
	}
	logger.file = f
	return logger
}

// Write appends one timestamped message.
func (l *Logger) Write(message string) {
	line := fmt.Sprintf("%s: %s\n", time.Now().Format("2006-01-02 15:04:05"), message)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_, _ = l.file.WriteString(line)
		return
	}
	fmt.Print(line)
}

// Writef formats and appends one timestamped message.
func (l *Logger) Writef(format string, args ...any) {
	l.Write(fmt.Sprintf(format, args...))
}

// Close flushes and closes the underlying file handle.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
}
