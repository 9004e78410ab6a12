// Package internal provides configuration loading and persistence for the installer.
//
// This module handles:
//   - Preseed files: optional YAML documents that pre-fill every wizard step
//   - The session snapshot written when installation starts, kept next to
//     the install log for post-mortem diagnosis
//
// Both files share the store.Config YAML layout so a session snapshot can be
// fed back as a preseed to reproduce a failed installation.
package internal

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"limeinstall/internal/store"
)

// SessionPath is where the confirmed configuration is written on install.
const SessionPath = "/tmp/limeos-install.yaml"

// Session is the YAML document written to SessionPath.
type Session struct {
	// Metadata
	Version string    `yaml:"version"`  // installer version that wrote the file
	SavedAt time.Time `yaml:"saved_at"` // when installation started
	Attempt int       `yaml:"attempt"`  // 1 for the first attempt, incremented on retry

	store.Config `yaml:",inline"`
}

// LoadPreseed reads a preseed file. Unknown keys are rejected so that a typo
// does not silently fall back to a default.
func LoadPreseed(path string) (store.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return store.Config{}, fmt.Errorf("failed to read preseed: %w", err)
	}

	// decoding into Session accepts the metadata of a saved snapshot
	var doc Session
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return store.Config{}, fmt.Errorf("failed to parse preseed %s: %w", path, err)
	}

	cfg := doc.Config

	if err := cfg.Validate(); err != nil {
		return store.Config{}, fmt.Errorf("invalid preseed %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyPreseed loads path into s. The dry-run switch always comes from the
// command line, never from the file.
func ApplyPreseed(s *store.Store, path string) error {
	cfg, err := LoadPreseed(path)
	if err != nil {
		return err
	}
	cfg.DryRun = s.Snapshot().DryRun
	return s.Load(cfg)
}

// SaveSession writes cfg to path atomically (temp file, then rename).
func SaveSession(path string, cfg store.Config, attempt int) error {
	session := Session{
		Version: AppVersion,
		SavedAt: time.Now(),
		Attempt: attempt,
		Config:  cfg,
	}

	data, err := yaml.Marshal(&session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp session file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename session file: %w", err)
	}

	return nil
}

// LoadSession reads a session snapshot back.
func LoadSession(path string) (Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Session{}, fmt.Errorf("failed to read session: %w", err)
	}

	var session Session
	if err := yaml.Unmarshal(data, &session); err != nil {
		return Session{}, fmt.Errorf("failed to parse session: %w", err)
	}
	return session, nil
}
