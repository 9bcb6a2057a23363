package tui

import (
	"github.com/amux-dev/amux/internal/keybind"
	"github.com/amux-dev/amux/internal/proto"
)

// PrefixLatch mirrors the Rust PrefixMode enum: either idle or waiting for
// the next key to resolve against the Prefix context.
type PrefixLatch int

const (
	PrefixNone PrefixLatch = iota
	PrefixWaitingForCommand
)

// App is the complete, serializable-in-spirit state of the TUI front end.
// Handlers mutate it synchronously and hand off side effects via
// AsyncAction, per spec.md §4.9.
type App struct {
	Keybinds *keybind.KeybindMap

	Focus      Focus
	PrefixMode PrefixLatch
	InputMode  InputMode
	savedFocus Focus

	Terminal TerminalState

	Repos       []proto.RepoInfo
	CurrentRepo int
	Worktrees   []proto.WorktreeInfo
	Sidebar     VirtualList

	DiffFiles []proto.DiffFileInfo
	DiffList  VirtualList
	DiffLines []proto.DiffLine

	GitStatus     []proto.GitFileStatus
	GitStatusList VirtualList

	Todos    []proto.TodoItem
	TodoList VirtualList

	StatusMessage string
	ShouldQuit    bool
}

// maxTerminalOutput bounds the client-side scrollback kept for the terminal
// pane, mirroring the daemon's own ring cap (session.go's maxRingBytes) at a
// smaller size since this copy only needs to cover what's on screen.
const maxTerminalOutput = 1 << 16

// TerminalState tracks the attached-session widget's own sub-mode and
// target, independent of the outer Focus/InputMode machine.
type TerminalState struct {
	Mode            TerminalMode
	ActiveSessionID string
	Fullscreen      bool
	Output          []byte
}

// AppendOutput appends a chunk of PTY output, trimming from the front so
// Output never exceeds maxTerminalOutput.
func (t *TerminalState) AppendOutput(b []byte) {
	t.Output = append(t.Output, b...)
	if len(t.Output) > maxTerminalOutput {
		t.Output = t.Output[len(t.Output)-maxTerminalOutput:]
	}
}

// NewApp builds a fresh App with default keybindings and Normal/Sidebar
// state.
func NewApp() *App {
	return &App{
		Keybinds:  keybind.NewDefaultKeybindMap(),
		Focus:     FocusSidebar,
		InputMode: normalMode(),
		Terminal:  TerminalState{Mode: TerminalNormalMode},
	}
}

func (a *App) currentRepoID() string {
	if a.CurrentRepo < 0 || a.CurrentRepo >= len(a.Repos) {
		return ""
	}
	return a.Repos[a.CurrentRepo].ID
}

func (a *App) currentBranch() string {
	if a.Sidebar.Cursor < 0 || a.Sidebar.Cursor >= len(a.Worktrees) {
		return ""
	}
	return a.Worktrees[a.Sidebar.Cursor].Branch
}

func (a *App) saveFocus() { a.savedFocus = a.Focus }

func (a *App) exitTerminal() {
	a.Terminal.Fullscreen = false
}

func (a *App) toggleFullscreen() {
	if a.Focus == FocusTerminal || a.Terminal.ActiveSessionID != "" {
		a.Terminal.Fullscreen = !a.Terminal.Fullscreen
	}
}

// detectContext mirrors resolver::detect_context: dialog modes take
// priority, then terminal sub-mode, then focus.
func (a *App) detectContext() keybind.BindingContext {
	switch a.InputMode.Kind {
	case ModeNewBranch, ModeAddWorktree, ModeRenameSession, ModeAddLineComment,
		ModeEditLineComment, ModeAddTodo, ModeEditTodo, ModeEditTodoDescription:
		return keybind.DialogText
	case ModeConfirmDelete, ModeConfirmDeleteBranch, ModeConfirmDeleteWorktreeSessions, ModeConfirmDeleteTodo:
		return keybind.DialogConfirm
	case ModeTodoPopup:
		return keybind.Todo
	}

	if a.Focus == FocusTerminal {
		if a.Terminal.Mode == TerminalInsertMode {
			return keybind.TerminalInsert
		}
		return keybind.TerminalNormal
	}

	switch a.Focus {
	case FocusDiffFiles:
		return keybind.Diff
	case FocusGitStatus:
		return keybind.GitStatus
	default:
		return keybind.Sidebar
	}
}
