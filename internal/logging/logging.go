// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// ConsoleOutput sends logs to stderr.
	ConsoleOutput = "console"

	DefaultLevel = "warn"
)

// InitLog parses level and points the standard logger at path. An empty
// path or "console" keeps stderr; anything else is a rotated file.
func InitLog(level, path string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	out, err := output(path)
	if err != nil {
		return err
	}

	log.SetOutput(out)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		DisableColors:   path != "" && path != ConsoleOutput,
	})
	log.SetLevel(lvl)
	return nil
}

func output(path string) (io.Writer, error) {
	if path == "" || path == ConsoleOutput {
		return os.Stderr, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   filepath.ToSlash(path),
		MaxSize:    5, // MB
		MaxBackups: 10,
		MaxAge:     30, // days
		Compress:   true,
	}, nil
}
