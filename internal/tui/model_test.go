package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amux-dev/amux/internal/proto"
)

func TestApplyResultRefreshAllPopulatesRepoAndWorktrees(t *testing.T) {
	m := NewModel(nil)

	m.applyResult(AsyncResultMsg{
		Action:    AsyncAction{Kind: AsyncRefreshAll},
		Repos:     []proto.RepoInfo{{ID: "r1"}},
		Worktrees: []proto.WorktreeInfo{{Branch: "main"}, {Branch: "feature"}},
	})

	assert.Equal(t, []proto.RepoInfo{{ID: "r1"}}, m.App.Repos)
	assert.Len(t, m.App.Worktrees, 2)
	assert.Equal(t, 2, m.App.Sidebar.Len)
}

func TestApplyResultConnectStreamEntersTerminal(t *testing.T) {
	m := NewModel(nil)
	m.App.Focus = FocusSidebar

	m.applyResult(AsyncResultMsg{
		Action:    AsyncAction{Kind: AsyncConnectStream},
		SessionID: "sess-1",
	})

	assert.Equal(t, FocusTerminal, m.App.Focus)
	assert.Equal(t, "sess-1", m.App.Terminal.ActiveSessionID)
	assert.Equal(t, TerminalInsertMode, m.App.Terminal.Mode)
}

func TestApplyResultDoesNotClobberListOnNilResult(t *testing.T) {
	m := NewModel(nil)
	m.App.Todos = []proto.TodoItem{{ID: "t1"}}

	m.applyResult(AsyncResultMsg{Action: AsyncAction{Kind: AsyncToggleTodo}})

	assert.Len(t, m.App.Todos, 1)
}

func TestTerminalOutputMsgAppendsOnlyForActiveSession(t *testing.T) {
	m := NewModel(nil)
	m.App.Terminal.ActiveSessionID = "sess-1"

	updated, _ := m.Update(TerminalOutputMsg{SessionID: "sess-1", Data: []byte("hello")})
	mm := updated.(Model)
	assert.Equal(t, "hello", string(mm.App.Terminal.Output))

	updated, _ = mm.Update(TerminalOutputMsg{SessionID: "sess-2", Data: []byte("ignored")})
	mm = updated.(Model)
	assert.Equal(t, "hello", string(mm.App.Terminal.Output))
}

func TestTerminalClosedMsgClearsActiveSession(t *testing.T) {
	m := NewModel(nil)
	m.App.Terminal.ActiveSessionID = "sess-1"
	m.App.Terminal.Output = []byte("some output")

	updated, _ := m.Update(TerminalClosedMsg{SessionID: "sess-1"})
	mm := updated.(Model)

	assert.Equal(t, "", mm.App.Terminal.ActiveSessionID)
	assert.Nil(t, mm.App.Terminal.Output)
}
