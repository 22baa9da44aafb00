// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for memobot-tui.
//
// Configuration is TOML with sensible defaults and environment variable
// overrides. Location: ~/.memobot/config.toml, falling back to built-in
// defaults when absent.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete memobot-tui configuration.
type Config struct {
	// OfflineMode replaces the HTTP backend with scripted local replies.
	// Useful for demos and working without network access.
	OfflineMode bool `toml:"offline_mode"`

	Backend BackendConfig `toml:"backend"`
	Session SessionConfig `toml:"session"`
	Storage StorageConfig `toml:"storage"`
	UI      UIConfig      `toml:"ui"`
}

// BackendConfig contains the chat backend connection settings.
type BackendConfig struct {
	// URL is the base URL of the MemoBot backend (e.g. http://localhost:8000).
	URL string `toml:"url"`
	// APIToken is the bearer token sent with each request (empty = no auth).
	APIToken string `toml:"api_token"`
	// RatePerMinute caps outgoing requests (client-side rate limit).
	RatePerMinute int `toml:"rate_per_minute"`
}

// SessionConfig contains request lifecycle tuning.
type SessionConfig struct {
	// TimeoutSecs is the per-attempt request timeout in seconds.
	TimeoutSecs int `toml:"timeout_secs"`
	// MaxAttempts bounds retries for a single message (initial send included).
	MaxAttempts int `toml:"max_attempts"`
	// BackoffBaseMs is the first retry delay; doubles per attempt.
	BackoffBaseMs int `toml:"backoff_base_ms"`
	// BackoffMaxMs caps the retry delay.
	BackoffMaxMs int `toml:"backoff_max_ms"`
	// HistoryTurns is how many prior exchanges accompany each request.
	HistoryTurns int `toml:"history_turns"`
}

// StorageConfig contains transcript persistence settings.
type StorageConfig struct {
	// DBPath is the SQLite database location (empty = ~/.memobot/transcripts.db).
	DBPath string `toml:"db_path"`
	// MaxSessions limits stored transcripts; oldest are pruned (0 = unlimited).
	MaxSessions int `toml:"max_sessions"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark" or "light"
	Theme string `toml:"theme"`
	// ShowSuggestions displays the backend's follow-up suggestions
	ShowSuggestions bool `toml:"show_suggestions"`
	// CompactMode uses a more compact layout
	CompactMode bool `toml:"compact_mode"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		OfflineMode: false,

		Backend: BackendConfig{
			URL:           "http://localhost:8000",
			APIToken:      "",
			RatePerMinute: 30,
		},

		Session: SessionConfig{
			TimeoutSecs:   30,
			MaxAttempts:   3,
			BackoffBaseMs: 500,
			BackoffMaxMs:  10000,
			HistoryTurns:  5,
		},

		Storage: StorageConfig{
			DBPath:      "",
			MaxSessions: 100,
		},

		UI: UIConfig{
			Theme:           "dark",
			ShowSuggestions: true,
			CompactMode:     false,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the memobot configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".memobot"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on the config file.
// SECURITY: Config files should be 0600 to protect the API token.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ~/.memobot/config.toml, falling back to
// defaults when the file is absent. Environment overrides apply last.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := loadTOML(cfg, path); err != nil {
				return nil, fmt.Errorf("failed to load config: %w", err)
			}
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := loadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadTOML decodes a TOML file over cfg.
// SECURITY: Checks and fixes file permissions on load.
func loadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		// Permissions might not be fixable on all systems; warn and continue.
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# memobot configuration file")
	fmt.Fprintln(file, "# Generated by memobot - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Backend.URL == "" {
		errs = append(errs, ValidationError{
			Field:   "backend.url",
			Message: "must not be empty (or set offline_mode = true)",
		})
	} else if u, err := url.Parse(c.Backend.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "backend.url",
			Message: fmt.Sprintf("invalid URL '%s'", c.Backend.URL),
		})
	}

	if c.Backend.RatePerMinute < 1 || c.Backend.RatePerMinute > 600 {
		errs = append(errs, ValidationError{
			Field:   "backend.rate_per_minute",
			Message: fmt.Sprintf("must be 1-600, got %d", c.Backend.RatePerMinute),
		})
	}

	if c.Session.TimeoutSecs < 1 || c.Session.TimeoutSecs > 300 {
		errs = append(errs, ValidationError{
			Field:   "session.timeout_secs",
			Message: fmt.Sprintf("must be 1-300, got %d", c.Session.TimeoutSecs),
		})
	}

	if c.Session.MaxAttempts < 1 || c.Session.MaxAttempts > 10 {
		errs = append(errs, ValidationError{
			Field:   "session.max_attempts",
			Message: fmt.Sprintf("must be 1-10, got %d", c.Session.MaxAttempts),
		})
	}

	if c.Session.BackoffBaseMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "session.backoff_base_ms",
			Message: "must be non-negative",
		})
	}
	if c.Session.BackoffMaxMs < c.Session.BackoffBaseMs {
		errs = append(errs, ValidationError{
			Field:   "session.backoff_max_ms",
			Message: "must be at least backoff_base_ms",
		})
	}

	if c.Session.HistoryTurns < 0 || c.Session.HistoryTurns > 50 {
		errs = append(errs, ValidationError{
			Field:   "session.history_turns",
			Message: fmt.Sprintf("must be 0-50, got %d", c.Session.HistoryTurns),
		})
	}

	if c.Storage.MaxSessions < 0 {
		errs = append(errs, ValidationError{
			Field:   "storage.max_sessions",
			Message: "must be non-negative",
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Backend.URL == "" {
		// Offline mode never dials out, but Validate still wants a URL.
		c.Backend.URL = defaults.Backend.URL
	}
	if c.Backend.RatePerMinute == 0 {
		c.Backend.RatePerMinute = defaults.Backend.RatePerMinute
	}

	if c.Session.TimeoutSecs == 0 {
		c.Session.TimeoutSecs = defaults.Session.TimeoutSecs
	}
	if c.Session.MaxAttempts == 0 {
		c.Session.MaxAttempts = defaults.Session.MaxAttempts
	}
	if c.Session.BackoffBaseMs == 0 {
		c.Session.BackoffBaseMs = defaults.Session.BackoffBaseMs
	}
	if c.Session.BackoffMaxMs == 0 {
		c.Session.BackoffMaxMs = defaults.Session.BackoffMaxMs
	}
	if c.Session.HistoryTurns == 0 {
		c.Session.HistoryTurns = defaults.Session.HistoryTurns
	}

	if c.Storage.MaxSessions == 0 {
		c.Storage.MaxSessions = defaults.Storage.MaxSessions
	}

	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - MEMOBOT_BACKEND_URL: overrides backend.url
//   - MEMOBOT_API_TOKEN: overrides backend.api_token
//   - MEMOBOT_OFFLINE: set to "1" or "true" to enable offline mode
//   - MEMOBOT_DB_PATH: overrides storage.db_path
//   - MEMOBOT_TIMEOUT_SECS: overrides session.timeout_secs
//   - MEMOBOT_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if backendURL := os.Getenv("MEMOBOT_BACKEND_URL"); backendURL != "" {
		c.Backend.URL = backendURL
	}

	if token := os.Getenv("MEMOBOT_API_TOKEN"); token != "" {
		c.Backend.APIToken = token
	}

	if offline := os.Getenv("MEMOBOT_OFFLINE"); offline != "" {
		c.OfflineMode = offline == "1" || strings.ToLower(offline) == "true"
	}

	if dbPath := os.Getenv("MEMOBOT_DB_PATH"); dbPath != "" {
		c.Storage.DBPath = dbPath
	}

	if timeout := os.Getenv("MEMOBOT_TIMEOUT_SECS"); timeout != "" {
		if secs, err := strconv.Atoi(timeout); err == nil && secs > 0 {
			c.Session.TimeoutSecs = secs
		}
	}

	if theme := os.Getenv("MEMOBOT_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// String returns a string representation of the config for debugging.
// SECURITY: Redacts the API token to prevent accidental exposure in logs.
func (c *Config) String() string {
	safe := *c
	if safe.Backend.APIToken != "" {
		safe.Backend.APIToken = "[REDACTED]"
	}

	var sb strings.Builder
	encoder := toml.NewEncoder(&sb)
	if err := encoder.Encode(safe); err != nil {
		return fmt.Sprintf("config{error: %v}", err)
	}
	return sb.String()
}
