// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helper functions for memobot-tui.
//
// # Key Functions
//
// String Utilities:
//   - TruncateWidth: display-width-aware truncation (CJK safe)
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
package util
