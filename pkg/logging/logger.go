// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for depscope components.
//
// The logger is built on Go's standard library slog package. Default
// output is stderr in text format, following Unix CLI conventions;
// serve mode switches to JSON and can tee into a log file.
//
// # Basic Usage
//
//	logger := logging.Default()
//	logger.Info("audit complete", "package", name, "risk_score", score)
//
// # File Logging
//
//	logger, err := logging.New(logging.Config{
//	    Level:   logging.LevelInfo,
//	    JSON:    true,
//	    LogDir:  "~/.depscope/logs",
//	    Service: "depscope",
//	})
//	defer logger.Close()
//
// This creates log files named {service}_{date}.log.
//
// # Security Considerations
//
// This package does NOT automatically redact sensitive data. Callers
// must not log repository tokens or other secrets:
//
//	// BAD: logs the token
//	logger.Info("auth", "token", repoToken)
//
//	// GOOD: log presence only
//	logger.Info("auth", "token_present", repoToken != "")
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents log severity, ordered Debug < Info < Warn < Error.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns "DEBUG", "INFO", "WARN", "ERROR", or "UNKNOWN".
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string to a Level. Unknown strings map to
// LevelInfo.
func ParseLevel(raw string) Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config configures the Logger. The zero value logs Info+ to stderr
// in text format.
type Config struct {
	// Level is the minimum level to emit.
	Level Level

	// JSON switches output to JSON lines. Serve mode sets this.
	JSON bool

	// LogDir, when set, tees output into {service}_{date}.log inside
	// it. Supports ~ expansion. The directory is created if absent.
	LogDir string

	// Service names the log file. Defaults to "depscope".
	Service string

	// Writer overrides the primary output. Defaults to os.Stderr.
	// Used by tests.
	Writer io.Writer
}

// Logger is a structured logger.
//
// # Thread Safety
//
// Safe for concurrent use; the underlying slog.Logger is thread-safe
// and file state is guarded by a mutex.
type Logger struct {
	*slog.Logger

	mu   sync.Mutex
	file *os.File
}

// New creates a Logger from cfg.
func New(cfg Config) (*Logger, error) {
	out := cfg.Writer
	if out == nil {
		out = os.Stderr
	}

	l := &Logger{}

	if cfg.LogDir != "" {
		service := cfg.Service
		if service == "" {
			service = "depscope"
		}
		file, err := openLogFile(cfg.LogDir, service)
		if err != nil {
			return nil, err
		}
		l.file = file
		out = io.MultiWriter(out, file)
	}

	opts := &slog.HandlerOptions{Level: cfg.Level.toSlogLevel()}
	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	l.Logger = slog.New(handler)
	return l, nil
}

// Default returns a stderr text logger at Info level.
func Default() *Logger {
	l, _ := New(Config{})
	return l
}

// InstallDefault makes this logger the process-wide slog default, so
// package-level slog.Info/slog.With calls flow through it.
func (l *Logger) InstallDefault() {
	slog.SetDefault(l.Logger)
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// openLogFile opens (appending) the dated log file under dir.
func openLogFile(dir, service string) (*os.File, error) {
	expanded, err := expandHome(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(expanded, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	path := filepath.Join(expanded, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not resolve home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
