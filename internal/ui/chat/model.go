// Copyright (c) 2025 MemoBot Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/memobot/memobot-tui/internal/engine"
	"github.com/memobot/memobot-tui/internal/storage"
	"github.com/memobot/memobot-tui/internal/ui/styles"
	"github.com/memobot/memobot-tui/internal/util"
)

// =============================================================================
// MODEL
// =============================================================================

// Options configures the chat view.
type Options struct {
	// ExportDir receives Markdown exports (empty = alongside the config).
	ExportDir string
	// ShowSuggestions displays the assistant's follow-up suggestions.
	ShowSuggestions bool
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	eng   *engine.Engine
	store *storage.TranscriptStore // nil disables persistence
	snaps chan engine.Snapshot
	opts  Options

	theme    *styles.Theme
	keys     keyMap
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	snapshot engine.Snapshot
	handle   *engine.Handle
	notice   string // transient status line (saves, exports, rejections)

	width  int
	height int
	ready  bool
}

// New creates the chat view. The snapshot channel must be the one whose
// sink was wired into the engine.
func New(eng *engine.Engine, store *storage.TranscriptStore, snaps chan engine.Snapshot, theme *styles.Theme, opts Options) Model {
	input := textinput.New()
	input.Placeholder = "Posez votre question sur votre sujet de mémoire..."
	input.CharLimit = 2000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	// Markdown rendering is best-effort: on failure the raw text shows.
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(glamourStyle(theme)),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		renderer = nil
	}

	return Model{
		eng:      eng,
		store:    store,
		snaps:    snaps,
		opts:     opts,
		theme:    theme,
		keys:     defaultKeyMap(),
		input:    input,
		spinner:  sp,
		renderer: renderer,
		snapshot: eng.Snapshot(),
	}
}

func glamourStyle(theme *styles.Theme) string {
	if theme.IsDark {
		return "dark"
	}
	return "light"
}

// Init starts the snapshot listener and spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForSnapshot(m.snaps),
		m.spinner.Tick,
		textinput.Blink,
	)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SnapshotMsg:
		m.snapshot = msg.Snapshot
		m.refreshViewport()
		cmds = append(cmds, waitForSnapshot(m.snaps))
		if msg.Snapshot.State == engine.StateSettled {
			cmds = append(cmds, m.saveTranscript())
		}
		return m, tea.Batch(cmds...)

	case submitAcceptedMsg:
		m.handle = msg.handle
		return m, nil

	case SubmitErrorMsg:
		m.notice = msg.Err.Error()
		return m, nil

	case TranscriptSavedMsg:
		if msg.Err != nil {
			m.notice = fmt.Sprintf("sauvegarde échouée : %v", msg.Err)
		}
		return m, nil

	case ExportedMsg:
		if msg.Err != nil {
			m.notice = fmt.Sprintf("export échoué : %v", msg.Err)
		} else {
			m.notice = fmt.Sprintf("exporté vers %s", msg.Path)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// handleKey dispatches key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		text := m.input.Value()
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		m.notice = ""
		return m, m.submit(text)

	case key.Matches(msg, m.keys.Retry):
		if m.snapshot.State == engine.StateError && m.handle != nil {
			m.notice = ""
			return m, m.retry()
		}
		return m, nil

	case key.Matches(msg, m.keys.Cancel):
		return m, m.cancel()

	case key.Matches(msg, m.keys.NewSession):
		m.notice = ""
		m.handle = nil
		eng := m.eng
		return m, func() tea.Msg {
			eng.Reset()
			return nil
		}

	case key.Matches(msg, m.keys.Export):
		return m, m.export()

	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// COMMANDS
// =============================================================================

// submit sends the user's text through the engine.
func (m *Model) submit(text string) tea.Cmd {
	eng := m.eng
	return func() tea.Msg {
		handle, err := eng.Submit(text)
		if err != nil {
			return SubmitErrorMsg{Err: err}
		}
		return submitAcceptedMsg{handle: handle}
	}
}

// submitAcceptedMsg carries the handle of an accepted submission.
type submitAcceptedMsg struct {
	handle *engine.Handle
}

// retry re-sends the failed request.
func (m *Model) retry() tea.Cmd {
	eng, handle := m.eng, m.handle
	return func() tea.Msg {
		if err := eng.Retry(handle.RequestID()); err != nil {
			return SubmitErrorMsg{Err: err}
		}
		return nil
	}
}

// cancel abandons the in-flight request, if any.
func (m *Model) cancel() tea.Cmd {
	eng := m.eng
	return func() tea.Msg {
		eng.Cancel("")
		return nil
	}
}

// saveTranscript autosaves the settled conversation.
func (m *Model) saveTranscript() tea.Cmd {
	if m.store == nil {
		return nil
	}
	store, snap := m.store, m.snapshot
	return func() tea.Msg {
		err := store.Save(snap.SessionID, snap.Messages)
		return TranscriptSavedMsg{SessionID: snap.SessionID, Err: err}
	}
}

// export writes the current conversation to a Markdown file.
func (m *Model) export() tea.Cmd {
	if m.store == nil {
		return nil
	}
	store, snap, dir := m.store, m.snapshot, m.opts.ExportDir
	return func() tea.Msg {
		if err := store.Save(snap.SessionID, snap.Messages); err != nil {
			return ExportedMsg{Err: err}
		}
		md, err := store.ExportMarkdown(snap.SessionID)
		if err != nil {
			return ExportedMsg{Err: err}
		}
		path := filepath.Join(dir, snap.SessionID+".md")
		if err := util.AtomicWriteFile(path, []byte(md), 0644); err != nil {
			return ExportedMsg{Err: err}
		}
		return ExportedMsg{Path: path}
	}
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	headerHeight := 2
	inputHeight := 3
	statusHeight := 1
	vpHeight := height - headerHeight - inputHeight - statusHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.input.Width = width - 4
}
