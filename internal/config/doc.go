// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for memobot-tui.
//
// TOML configuration with sensible defaults, environment variable
// overrides, and validation.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (MEMOBOT_*)
//   - ~/.memobot/config.toml
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	backend := cfg.Backend.URL
//	timeout := cfg.Session.TimeoutSecs
package config
