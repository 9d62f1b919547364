// Package logger provides leveled logging for parcelsync.
// When verbose mode is enabled via the --verbose flag, messages are printed
// to stderr so users can follow the sync pipeline. When a log file is
// configured every message is also appended to it, verbose or not, and the
// file is rotated by size.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu      sync.Mutex
	verbose bool
	output  io.Writer = os.Stderr
	file    io.WriteCloser
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.Lock()
	defer mu.Unlock()
	return verbose
}

// SetOutput sets the output writer for verbose logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// SetFile routes a copy of every message to a size-rotated log file.
// An empty path disables the file sink.
func SetFile(path string, maxSizeMB, maxBackups int) {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		_ = file.Close()
		file = nil
	}
	if path == "" {
		return
	}
	file = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}
}

// Close flushes and closes the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

func write(level, format string, args []any) {
	mu.Lock()
	defer mu.Unlock()
	if !verbose && file == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if verbose {
		fmt.Fprintf(output, "[%s] %s\n", level, msg)
	}
	if file != nil {
		fmt.Fprintf(file, "%s [%s] %s\n", time.Now().Format(time.RFC3339), level, msg)
	}
}

// Debug logs a diagnostic message.
func Debug(format string, args ...any) {
	write("DEBUG", format, args)
}

// Info logs an informational message.
func Info(format string, args ...any) {
	write("INFO", format, args)
}

// Warn logs a recoverable problem.
func Warn(format string, args ...any) {
	write("WARN", format, args)
}

// Error logs a failure.
func Error(format string, args ...any) {
	write("ERROR", format, args)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}
