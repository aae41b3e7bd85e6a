// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects level, format and destination.
type Options struct {
	Level  string
	Format string
	// File, when set, receives logs in addition to stderr and is rotated.
	File string
}

// rotation limits for File
const (
	maxSizeMB  = 50
	maxBackups = 5
	maxAgeDays = 28
)

// Setup applies opts to the standard logrus logger. The returned closer
// releases the log file, if any.
func Setup(opts Options) (io.Closer, error) {
	return apply(log.StandardLogger(), opts, os.Stderr)
}

func apply(logger *log.Logger, opts Options, stderr io.Writer) (io.Closer, error) {
	level := log.InfoLevel
	if opts.Level != "" {
		parsed, err := log.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}
	logger.SetLevel(level)

	switch strings.ToLower(opts.Format) {
	case "", "text":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log format %q", opts.Format)
	}

	if opts.File == "" {
		logger.SetOutput(stderr)
		return nopCloser{}, nil
	}

	rotator := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	logger.SetOutput(io.MultiWriter(stderr, rotator))
	return rotator, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
