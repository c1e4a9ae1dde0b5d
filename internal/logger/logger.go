// Package logger provides the panel's structured logger with file rotation.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds the logger configuration.
type Config struct {
	Level      string `json:"Level"`
	FilePath   string `json:"FilePath"`
	MaxSizeMB  int    `json:"MaxSizeMB"`
	MaxBackups int    `json:"MaxBackups"`
	MaxAgeDays int    `json:"MaxAgeDays"`
	Compress   bool   `json:"Compress"`
	Console    bool   `json:"Console"`
	Format     string `json:"Format"` // "json" or "fixed"
}

// DefaultConfig returns the logging defaults for the panel. The console stays off
// because stdout carries the rendered response.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		FilePath:   "/home/fpp/media/logs/agentpanel.log",
		MaxSizeMB:  2,
		MaxBackups: 2,
		MaxAgeDays: 14,
		Compress:   true,
		Console:    false,
		Format:     "json",
	}
}

var (
	globalLogger = zerolog.Nop()
	fileWriter   io.Closer
)

// Init initializes the global logger. Calling it again closes the previous file sink.
func Init(cfg Config) error {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	Close()

	var writers []io.Writer

	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		lj := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		fileWriter = lj

		var w io.Writer = lj
		if strings.EqualFold(cfg.Format, "fixed") {
			w = NewFixedFormatWriter(lj)
		}
		writers = append(writers, w)
	}

	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	if len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	var out io.Writer = writers[0]
	if len(writers) > 1 {
		out = zerolog.MultiLevelWriter(writers...)
	}

	globalLogger = zerolog.New(out).With().Timestamp().Logger()
	return nil
}

// Close releases the rotating file sink, if any.
func Close() {
	if fileWriter != nil {
		fileWriter.Close()
		fileWriter = nil
	}
}

// SetOutput replaces the global logger with one writing JSON to w. Tests use it to
// capture log lines.
func SetOutput(w io.Writer) {
	globalLogger = zerolog.New(w).With().Timestamp().Logger()
}

// WithComponent returns a logger with component field.
func WithComponent(component string) zerolog.Logger {
	return globalLogger.With().Str("component", component).Logger()
}
