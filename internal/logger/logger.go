package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New returns a timestamped logger at the given level. Unknown levels fall
// back to info.
func New(w io.Writer, level string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportCaller:    lvl == log.DebugLevel,
		ReportTimestamp: true,
		Level:           lvl,
		Prefix:          "habitstacker",
	})
}

// Init builds the process logger and installs it as the package default so
// library code using log.Info etc. shares the same output.
func Init(level string) *log.Logger {
	l := New(os.Stderr, level)
	log.SetDefault(l)
	return l
}

// Discard is for tests.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
