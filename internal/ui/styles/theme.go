// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the memobot TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// PALETTE
// =============================================================================

// palette groups the raw colors a theme is built from.
type palette struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Text      lipgloss.Color
	Muted     lipgloss.Color
	Error     lipgloss.Color
	Warning   lipgloss.Color
	Success   lipgloss.Color
	Surface   lipgloss.Color
}

var darkPalette = palette{
	Primary:   lipgloss.Color("#7C6FDE"),
	Secondary: lipgloss.Color("#5FB0AC"),
	Text:      lipgloss.Color("#E6E6E6"),
	Muted:     lipgloss.Color("#8A8A8A"),
	Error:     lipgloss.Color("#E06C75"),
	Warning:   lipgloss.Color("#E5C07B"),
	Success:   lipgloss.Color("#98C379"),
	Surface:   lipgloss.Color("#2C2C3A"),
}

var lightPalette = palette{
	Primary:   lipgloss.Color("#5B4FC4"),
	Secondary: lipgloss.Color("#2E7D78"),
	Text:      lipgloss.Color("#1C1C1C"),
	Muted:     lipgloss.Color("#6E6E6E"),
	Error:     lipgloss.Color("#C74350"),
	Warning:   lipgloss.Color("#B08A2E"),
	Success:   lipgloss.Color("#4E8A3A"),
	Surface:   lipgloss.Color("#ECECF4"),
}

// =============================================================================
// THEME
// =============================================================================

// Theme holds all the styled components for the application.
type Theme struct {
	IsDark bool

	// Header
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderMeta  lipgloss.Style

	// Message bubbles
	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	SystemBubble    lipgloss.Style
	FailedBubble    lipgloss.Style
	RoleLabel       lipgloss.Style
	Timestamp       lipgloss.Style
	PendingMarker   lipgloss.Style
	FailedMarker    lipgloss.Style

	// Suggestions
	Suggestion lipgloss.Style

	// Input area
	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style

	// Status bar
	StatusBar   lipgloss.Style
	StateIdle   lipgloss.Style
	StateBusy   lipgloss.Style
	StateError  lipgloss.Style
	ShortcutKey lipgloss.Style

	// Spinner and errors
	Spinner    lipgloss.Style
	ErrorBox   lipgloss.Style
	ErrorTitle lipgloss.Style
}

// NewTheme creates a theme for the named variant ("dark" or "light").
func NewTheme(name string) *Theme {
	p := darkPalette
	isDark := true
	if name == "light" {
		p = lightPalette
		isDark = false
	}

	return &Theme{
		IsDark: isDark,

		Header: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(p.Primary).
			Padding(0, 1),
		HeaderTitle: lipgloss.NewStyle().
			Foreground(p.Primary).
			Bold(true),
		HeaderMeta: lipgloss.NewStyle().
			Foreground(p.Muted),

		UserBubble: lipgloss.NewStyle().
			Foreground(p.Text).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.Secondary).
			Padding(0, 1),
		AssistantBubble: lipgloss.NewStyle().
			Foreground(p.Text).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.Primary).
			Padding(0, 1),
		SystemBubble: lipgloss.NewStyle().
			Foreground(p.Muted).
			Italic(true).
			Padding(0, 1),
		FailedBubble: lipgloss.NewStyle().
			Foreground(p.Muted).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.Error).
			Padding(0, 1),
		RoleLabel: lipgloss.NewStyle().
			Foreground(p.Secondary).
			Bold(true),
		Timestamp: lipgloss.NewStyle().
			Foreground(p.Muted),
		PendingMarker: lipgloss.NewStyle().
			Foreground(p.Warning),
		FailedMarker: lipgloss.NewStyle().
			Foreground(p.Error).
			Bold(true),

		Suggestion: lipgloss.NewStyle().
			Foreground(p.Secondary).
			Background(p.Surface).
			Padding(0, 1),

		InputContainer: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(p.Surface),
		InputPrompt: lipgloss.NewStyle().
			Foreground(p.Primary).
			Bold(true),

		StatusBar: lipgloss.NewStyle().
			Foreground(p.Muted),
		StateIdle: lipgloss.NewStyle().
			Foreground(p.Success),
		StateBusy: lipgloss.NewStyle().
			Foreground(p.Warning),
		StateError: lipgloss.NewStyle().
			Foreground(p.Error).
			Bold(true),
		ShortcutKey: lipgloss.NewStyle().
			Foreground(p.Secondary),

		Spinner: lipgloss.NewStyle().
			Foreground(p.Primary),
		ErrorBox: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.Error).
			Padding(0, 1),
		ErrorTitle: lipgloss.NewStyle().
			Foreground(p.Error).
			Bold(true),
	}
}
