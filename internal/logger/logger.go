// Package logger provides verbose logging for docqa.
// When verbose mode is enabled via the --verbose flag, debug messages
// are written to stderr to show what the ingestion and answer pipelines do.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/phuslu/log"
)

// sectionKey marks an entry as a section header.
const sectionKey = "section"

var (
	mu      sync.RWMutex
	verbose bool
	current = newLogger(os.Stderr)
)

func newLogger(w io.Writer) log.Logger {
	return log.Logger{
		Level: log.DebugLevel,
		Writer: &log.ConsoleWriter{
			Writer:    w,
			Formatter: render,
		},
	}
}

// render renders "[LEVEL] message" lines and blank-line section headers.
func render(w io.Writer, a *log.FormatterArgs) (int, error) {
	for _, kv := range a.KeyValues {
		if kv.Key == sectionKey {
			return fmt.Fprintf(w, "\n=== %s ===\n", a.Message)
		}
	}
	return fmt.Fprintf(w, "[%s] %s\n", strings.ToUpper(a.Level), a.Message)
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for verbose logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	current = newLogger(w)
}

// Debug prints a message if verbose mode is enabled.
// Writes are serialised so any io.Writer is safe as output.
func Debug(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		current.Debug().Msgf(format, args...)
	}
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		current.Info().Bool(sectionKey, true).Msg(name)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		current.Info().Msgf(format, args...)
	}
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		current.Warn().Msgf(format, args...)
	}
}
