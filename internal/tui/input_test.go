package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/amux-dev/amux/internal/proto"
)

func TestPrefixLatchThenQuit(t *testing.T) {
	a := NewApp()

	got := a.HandleKey(tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Nil(t, got)
	assert.Equal(t, PrefixWaitingForCommand, a.PrefixMode)

	got = a.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	assert.Nil(t, got)
	assert.Equal(t, PrefixNone, a.PrefixMode)
	assert.True(t, a.ShouldQuit)
}

func TestPrefixEscCancelsSilently(t *testing.T) {
	a := NewApp()
	a.HandleKey(tea.KeyMsg{Type: tea.KeyCtrlS})
	got := a.HandleKey(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, got)
	assert.Equal(t, PrefixNone, a.PrefixMode)
	assert.False(t, a.ShouldQuit)
}

func TestPrefixSuppressedDuringTextInput(t *testing.T) {
	a := NewApp()
	a.InputMode = InputMode{Kind: ModeAddTodo}

	a.HandleKey(tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Equal(t, PrefixNone, a.PrefixMode)
	assert.Equal(t, "s", a.InputMode.Text)
}

func TestSidebarNavigation(t *testing.T) {
	a := NewApp()
	a.Worktrees = []proto.WorktreeInfo{{Branch: "main"}, {Branch: "feature"}, {Branch: "fix"}}

	a.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	assert.Equal(t, 1, a.Sidebar.Cursor)

	a.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, 0, a.Sidebar.Cursor)
}

func TestCtrlCIgnoredGlobally(t *testing.T) {
	a := NewApp()
	got := a.HandleKey(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Nil(t, got)
	assert.False(t, a.ShouldQuit)
}

func TestTerminalInsertSwitchToShell(t *testing.T) {
	a := NewApp()
	a.Focus = FocusTerminal
	a.Terminal.Mode = TerminalInsertMode

	got := a.HandleKey(tea.KeyMsg{Type: tea.KeyCtrlAt})
	assert.NotNil(t, got)
	assert.Equal(t, AsyncCreateSession, got.Kind)
}

func TestReconcileDetachesOnSessionDestroyed(t *testing.T) {
	a := NewApp()
	a.Terminal.ActiveSessionID = "sess-1"
	a.Terminal.Fullscreen = true

	a.Reconcile(proto.Event{Kind: proto.EventSessionDestroyed, SessionID: "sess-1"})

	assert.Equal(t, "", a.Terminal.ActiveSessionID)
	assert.False(t, a.Terminal.Fullscreen)
}
