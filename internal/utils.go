// Package internal provides utility functions for the installer wizard.
//
// This module contains the application logger setup and small formatting
// helpers shared by the model and the renderers.
package internal

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// getLogFilePath determines the location of the application log.
// It prefers ~/.cache/limeinstall/limeinstall.log and falls back to
// /tmp/limeinstall.log. When running under sudo the invoking user's home is
// used so the log survives alongside their other files.
func getLogFilePath() string {
	var homeDir string
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		homeDir = "/home/" + sudoUser
	} else {
		var err error
		homeDir, err = os.UserHomeDir()
		if err != nil {
			return "/tmp/limeinstall.log"
		}
	}

	logDir := filepath.Join(homeDir, ".cache", "limeinstall")
	if err := os.MkdirAll(logDir, 0o755); err == nil {
		return filepath.Join(logDir, "limeinstall.log")
	}

	return "/tmp/limeinstall.log"
}

// LogFilePath returns the application log location.
func LogFilePath() string {
	return getLogFilePath()
}

// NewLogger builds the application logger writing JSON lines to path.
// debug lowers the level from Info to Debug.
func NewLogger(path string, debug bool) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if debug {
		level.SetLevel(zapcore.DebugLevel)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.Encoding = "json"
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("version", AppVersion)), nil
}

// truncate shortens s to width runes, marking the cut with an ellipsis.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

// firstLine returns the first line of a possibly multi-line message.
func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
