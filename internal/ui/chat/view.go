// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/memobot/memobot-tui/internal/engine"
	"github.com/memobot/memobot-tui/internal/model"
	"github.com/memobot/memobot-tui/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat screen.
func (m Model) View() string {
	if !m.ready {
		return "Initialisation..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderInput())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

// refreshViewport re-renders the transcript and pins the view to the
// latest message.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

// renderHeader draws the title line.
func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("MemoBot")
	meta := m.theme.HeaderMeta.Render(" · assistant sujet de mémoire · " +
		util.TruncateWidth(m.snapshot.SessionID, 18))
	return m.theme.Header.Width(m.width).Render(title + meta)
}

// renderMessages draws the transcript in append order.
func (m Model) renderMessages() string {
	var parts []string
	for _, msg := range m.snapshot.Messages {
		parts = append(parts, m.renderMessage(msg))
	}
	if m.snapshot.State == engine.StateError && m.snapshot.LastError != nil {
		parts = append(parts, m.renderError())
	}
	return strings.Join(parts, "\n")
}

// renderMessage draws one message bubble.
func (m Model) renderMessage(msg model.Message) string {
	width := m.viewport.Width - 4
	if width < 20 {
		width = 20
	}

	label := m.theme.RoleLabel.Render(msg.Role.DisplayName())
	stamp := m.theme.Timestamp.Render(msg.CreatedAt.Format("15:04"))
	header := label + " " + stamp

	switch {
	case msg.Role == model.RoleSystem:
		return m.theme.SystemBubble.Width(width).Render(msg.Text)

	case msg.Status == model.StatusFailed:
		marker := m.theme.FailedMarker.Render("✗ non délivré")
		body := m.theme.FailedBubble.Width(width).Render(msg.Text)
		return header + " " + marker + "\n" + body

	case msg.Role == model.RoleUser:
		body := msg.Text
		if msg.Status == model.StatusPending {
			header += " " + m.theme.PendingMarker.Render("⋯")
		}
		return header + "\n" + m.theme.UserBubble.Width(width).Render(body)

	default: // assistant
		body := m.renderMarkdown(msg.Text)
		out := header + "\n" + m.theme.AssistantBubble.Width(width).Render(body)
		if m.opts.ShowSuggestions && len(msg.Suggestions) > 0 {
			out += "\n" + m.renderSuggestions(msg.Suggestions)
		}
		return out
	}
}

// renderMarkdown renders assistant text through glamour, falling back to
// the raw text if rendering fails.
func (m Model) renderMarkdown(text string) string {
	if m.renderer == nil {
		return text
	}
	rendered, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(rendered)
}

// renderSuggestions draws the backend's follow-up chips.
func (m Model) renderSuggestions(suggestions []string) string {
	chips := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		chips = append(chips, m.theme.Suggestion.Render(s))
	}
	return "  " + strings.Join(chips, " ")
}

// renderError draws the failure box with the retry hint.
func (m Model) renderError() string {
	terr := m.snapshot.LastError
	title := m.theme.ErrorTitle.Render("Échec de l'envoi")
	hint := m.theme.StatusBar.Render("ctrl+r réessayer · échap abandonner")
	return m.theme.ErrorBox.Render(title + "\n" + terr.Message + "\n" + hint)
}

// renderInput draws the prompt line.
func (m Model) renderInput() string {
	prompt := m.theme.InputPrompt.Render("❯ ")
	return m.theme.InputContainer.Width(m.width).Render(prompt + m.input.View())
}

// renderStatusBar draws the state line with key hints.
func (m Model) renderStatusBar() string {
	var state string
	switch m.snapshot.State {
	case engine.StateSending, engine.StateAwaitingReply:
		state = m.theme.StateBusy.Render(m.spinner.View() + "MemoBot réfléchit...")
	case engine.StateError:
		state = m.theme.StateError.Render("erreur")
	default:
		state = m.theme.StateIdle.Render("prêt")
	}

	hints := m.theme.StatusBar.Render(
		fmt.Sprintf("  %s envoyer · %s nouvelle session · %s exporter · %s quitter",
			m.theme.ShortcutKey.Render("entrée"),
			m.theme.ShortcutKey.Render("ctrl+n"),
			m.theme.ShortcutKey.Render("ctrl+e"),
			m.theme.ShortcutKey.Render("ctrl+c")))

	line := state + hints
	if m.notice != "" {
		line += m.theme.StatusBar.Render(" · " + m.notice)
	}
	return lipgloss.NewStyle().Width(m.width).Render(line)
}
