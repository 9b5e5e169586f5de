// Package logging builds the diagnostic logger handed to the repository
// and the CLI.
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Prefix starts every log line.
const Prefix = "[td] "

// Options selects where log output goes.
type Options struct {
	// File, if set, receives the log with size-based rotation.
	File       string
	MaxSizeMB  int
	MaxBackups int

	// Verbose copies the log to Stderr.
	Verbose bool
	Stderr  io.Writer
}

// Logger is a *log.Logger together with the file it may hold open.
type Logger struct {
	*log.Logger
	file *lumberjack.Logger
}

// New returns a logger writing to the configured destinations, or one
// that discards everything when none is configured.
func New(opts Options) (*Logger, error) {
	var writers []io.Writer
	l := &Logger{}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, err
		}
		l.file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		writers = append(writers, l.file)
	}

	if opts.Verbose {
		stderr := opts.Stderr
		if stderr == nil {
			stderr = os.Stderr
		}
		writers = append(writers, stderr)
	}

	switch len(writers) {
	case 0:
		l.Logger = log.New(io.Discard, "", 0)
	case 1:
		l.Logger = log.New(writers[0], Prefix, log.LstdFlags)
	default:
		l.Logger = log.New(io.MultiWriter(writers...), Prefix, log.LstdFlags)
	}
	return l, nil
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
