package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/amux-dev/amux/internal/keybind"
)

// HandleKey implements the dispatch order from spec.md §4.9:
//  1. Drop Ctrl+C / Ctrl+Z globally.
//  2. Prefix key outside text input latches PrefixMode.
//  3. PrefixMode resolves against Prefix only, then clears.
//  4. Each active non-Normal input mode in priority order.
//  5. Else dispatch by focus.
func (a *App) HandleKey(key tea.KeyMsg) *AsyncAction {
	if key.Type == tea.KeyCtrlC || key.Type == tea.KeyCtrlZ {
		return nil
	}

	pattern, ok := keybind.KeyEventToPattern(key)
	if !ok {
		// Keys with no canonical pattern (Ctrl+@/NUL, multi-rune input,
		// non-ASCII runes) still reach the PTY in terminal insert mode.
		if a.PrefixMode == PrefixNone && a.InputMode.Kind == ModeNormal &&
			a.Focus == FocusTerminal && a.Terminal.Mode == TerminalInsertMode {
			return a.handleTerminalInsert(key)
		}
		return nil
	}

	if a.Keybinds.IsPrefixKey(pattern) && !a.InputMode.IsTextInput() {
		a.PrefixMode = PrefixWaitingForCommand
		return nil
	}

	if a.PrefixMode == PrefixWaitingForCommand {
		a.PrefixMode = PrefixNone
		if key.Type == tea.KeyEsc {
			return nil
		}
		action, ok := a.Keybinds.Resolve(pattern, keybind.Prefix)
		if !ok {
			a.StatusMessage = "Prefix: w=sidebar g=git v=diff t=terminal n=new d=delete r=refresh q=quit"
			return nil
		}
		return a.executePrefixAction(action)
	}

	switch a.InputMode.Kind {
	case ModeNewBranch, ModeAddWorktree, ModeRenameSession, ModeAddLineComment, ModeEditLineComment:
		return a.handleTextDialog(key)
	case ModeConfirmDelete, ModeConfirmDeleteBranch, ModeConfirmDeleteWorktreeSessions, ModeConfirmDeleteTodo:
		return a.handleConfirmDialog(key)
	case ModeTodoPopup, ModeAddTodo, ModeEditTodo, ModeEditTodoDescription:
		return a.handleTodoMode(key, pattern)
	}

	if a.Focus == FocusTerminal {
		if a.Terminal.Mode == TerminalInsertMode {
			return a.handleTerminalInsert(key)
		}
		a.handleTerminalNormal(pattern)
		return nil
	}

	if a.Focus == FocusDiffFiles {
		return a.handleDiffMode(pattern)
	}
	if a.Focus == FocusGitStatus {
		return a.handleGitStatusMode(pattern)
	}
	return a.handleSidebarMode(pattern)
}

// executePrefixAction mirrors execute_prefix_action: a small, synchronous
// state machine over Action that optionally requests async work.
func (a *App) executePrefixAction(action keybind.Action) *AsyncAction {
	switch action {
	case keybind.ActionFocusSidebar:
		if a.Focus == FocusTerminal {
			a.exitTerminal()
		}
		a.Focus = FocusSidebar
		return nil

	case keybind.ActionFocusTerminal:
		if a.Terminal.ActiveSessionID != "" {
			return &AsyncAction{Kind: AsyncConnectStream}
		}
		return nil

	case keybind.ActionCreateSession:
		if a.Focus == FocusTerminal {
			a.exitTerminal()
		}
		return &AsyncAction{Kind: AsyncCreateSession}

	case keybind.ActionSelectProviderCreate:
		a.saveFocus()
		if a.Focus == FocusTerminal {
			a.exitTerminal()
		}
		a.Focus = FocusSidebar
		repoID, branch := a.currentRepoID(), a.currentBranch()
		if repoID == "" || branch == "" {
			a.StatusMessage = "No worktree selected"
			return nil
		}
		return &AsyncAction{Kind: AsyncFetchProviders, RepoID: repoID, Branch: branch}

	case keybind.ActionAddWorktree:
		a.saveFocus()
		if a.Focus == FocusTerminal {
			a.exitTerminal()
		}
		a.Focus = FocusSidebar
		a.InputMode = InputMode{Kind: ModeAddWorktree}
		return nil

	case keybind.ActionDeleteCurrent:
		a.saveFocus()
		if a.Focus == FocusTerminal {
			a.exitTerminal()
		}
		a.InputMode = InputMode{Kind: ModeConfirmDelete, TargetID: a.currentBranch()}
		return nil

	case keybind.ActionRefreshAll:
		return &AsyncAction{Kind: AsyncRefreshAll}

	case keybind.ActionToggleFullscreen:
		if a.Focus == FocusTerminal || a.Terminal.ActiveSessionID != "" {
			a.toggleFullscreen()
		}
		return nil

	case keybind.ActionNormalMode:
		if a.Focus == FocusTerminal && a.Terminal.Mode == TerminalInsertMode {
			a.Terminal.Mode = TerminalNormalMode
		}
		return nil

	case keybind.ActionFocusGitStatus:
		a.saveFocus()
		if a.Focus == FocusTerminal {
			a.exitTerminal()
		}
		a.Focus = FocusGitStatus
		return &AsyncAction{Kind: AsyncLoadGitStatus, RepoID: a.currentRepoID(), Branch: a.currentBranch()}

	case keybind.ActionFocusDiff:
		a.saveFocus()
		if a.Focus == FocusTerminal {
			a.exitTerminal()
		}
		a.Focus = FocusDiffFiles
		return &AsyncAction{Kind: AsyncLoadDiffFiles, RepoID: a.currentRepoID(), Branch: a.currentBranch()}

	case keybind.ActionOpenTodo:
		a.saveFocus()
		if a.Focus == FocusTerminal {
			a.exitTerminal()
		}
		a.InputMode = InputMode{Kind: ModeTodoPopup}
		return &AsyncAction{Kind: AsyncLoadTodos, RepoID: a.currentRepoID()}

	case keybind.ActionSwitchRepoNext:
		if a.Focus == FocusTerminal {
			a.exitTerminal()
		}
		return a.switchRepo(1)

	case keybind.ActionSwitchRepoPrev:
		if a.Focus == FocusTerminal {
			a.exitTerminal()
		}
		return a.switchRepo(-1)

	case keybind.ActionQuit:
		a.ShouldQuit = true
		return nil
	}

	a.StatusMessage = "Prefix: w=sidebar g=git v=diff t=terminal n=new d=delete r=refresh q=quit"
	return nil
}

func (a *App) switchRepo(delta int) *AsyncAction {
	if len(a.Repos) == 0 {
		return nil
	}
	idx := (a.CurrentRepo + delta + len(a.Repos)) % len(a.Repos)
	a.CurrentRepo = idx
	a.Sidebar = VirtualList{}
	return &AsyncAction{Kind: AsyncSwitchRepo, RepoID: a.Repos[idx].ID, Index: idx}
}

func (a *App) handleSidebarMode(pattern string) *AsyncAction {
	action, ok := a.Keybinds.Resolve(pattern, keybind.Sidebar)
	if !ok {
		return nil
	}
	a.Sidebar.Len = len(a.Worktrees)
	switch action {
	case keybind.ActionMoveUp:
		a.Sidebar.MoveUp()
	case keybind.ActionMoveDown:
		a.Sidebar.MoveDown()
	case keybind.ActionGotoTop:
		a.Sidebar.GotoTop()
	case keybind.ActionGotoBottom:
		a.Sidebar.GotoBottom()
	case keybind.ActionPageUp:
		a.Sidebar.PageUp(10)
	case keybind.ActionPageDown:
		a.Sidebar.PageDown(10)
	case keybind.ActionSelect:
		a.Focus = FocusTerminal
		return &AsyncAction{Kind: AsyncConnectStream, RepoID: a.currentRepoID(), Branch: a.currentBranch()}
	case keybind.ActionCreateSession:
		return &AsyncAction{Kind: AsyncCreateSession, RepoID: a.currentRepoID(), Branch: a.currentBranch()}
	case keybind.ActionAddWorktree:
		a.InputMode = InputMode{Kind: ModeAddWorktree}
	case keybind.ActionDeleteCurrent:
		a.InputMode = InputMode{Kind: ModeConfirmDelete, TargetID: a.currentBranch()}
	}
	return nil
}

func (a *App) handleDiffMode(pattern string) *AsyncAction {
	action, ok := a.Keybinds.Resolve(pattern, keybind.Diff)
	if !ok {
		return nil
	}
	a.DiffList.Len = len(a.DiffFiles)
	switch action {
	case keybind.ActionMoveUp:
		a.DiffList.MoveUp()
		return a.loadCurrentFileDiff()
	case keybind.ActionMoveDown:
		a.DiffList.MoveDown()
		return a.loadCurrentFileDiff()
	case keybind.ActionAddLineComment:
		a.InputMode = InputMode{Kind: ModeAddLineComment, FilePath: a.currentDiffFilePath()}
	case keybind.ActionSubmitReviewToClaude:
		return &AsyncAction{Kind: AsyncSubmitReviewToClaude, RepoID: a.currentRepoID(), Branch: a.currentBranch()}
	case keybind.ActionFocusSidebar:
		a.Focus = FocusSidebar
	}
	return nil
}

func (a *App) currentDiffFilePath() string {
	if a.DiffList.Cursor < 0 || a.DiffList.Cursor >= len(a.DiffFiles) {
		return ""
	}
	return a.DiffFiles[a.DiffList.Cursor].Path
}

func (a *App) loadCurrentFileDiff() *AsyncAction {
	path := a.currentDiffFilePath()
	if path == "" {
		return nil
	}
	return &AsyncAction{Kind: AsyncLoadFileDiff, RepoID: a.currentRepoID(), Branch: a.currentBranch(), Path: path}
}

func (a *App) handleGitStatusMode(pattern string) *AsyncAction {
	action, ok := a.Keybinds.Resolve(pattern, keybind.GitStatus)
	if !ok {
		return nil
	}
	a.GitStatusList.Len = len(a.GitStatus)
	repoID, branch := a.currentRepoID(), a.currentBranch()
	switch action {
	case keybind.ActionMoveUp:
		a.GitStatusList.MoveUp()
	case keybind.ActionMoveDown:
		a.GitStatusList.MoveDown()
	case keybind.ActionStageFile:
		if p := a.currentGitStatusPath(); p != "" {
			return &AsyncAction{Kind: AsyncStageFile, RepoID: repoID, Branch: branch, Path: p}
		}
	case keybind.ActionUnstageFile:
		if p := a.currentGitStatusPath(); p != "" {
			return &AsyncAction{Kind: AsyncUnstageFile, RepoID: repoID, Branch: branch, Path: p}
		}
	case keybind.ActionStageAll:
		return &AsyncAction{Kind: AsyncStageAll, RepoID: repoID, Branch: branch}
	case keybind.ActionUnstageAll:
		return &AsyncAction{Kind: AsyncUnstageAll, RepoID: repoID, Branch: branch}
	case keybind.ActionFocusSidebar:
		a.Focus = FocusSidebar
	}
	return nil
}

func (a *App) currentGitStatusPath() string {
	if a.GitStatusList.Cursor < 0 || a.GitStatusList.Cursor >= len(a.GitStatus) {
		return ""
	}
	return a.GitStatus[a.GitStatusList.Cursor].Path
}

func (a *App) handleTerminalNormal(pattern string) {
	action, ok := a.Keybinds.Resolve(pattern, keybind.TerminalNormal)
	if !ok {
		return
	}
	switch action {
	case keybind.ActionInsertMode:
		a.Terminal.Mode = TerminalInsertMode
	case keybind.ActionFocusSidebar:
		a.Focus = FocusSidebar
	case keybind.ActionToggleFullscreen:
		a.toggleFullscreen()
	}
}

// handleTerminalInsert converts the key to PTY bytes, except for the
// SwitchToShell interception and the Esc-to-Normal-mode transition (spec.md
// §4.9).
func (a *App) handleTerminalInsert(key tea.KeyMsg) *AsyncAction {
	if key.Type == tea.KeyEsc {
		a.Terminal.Mode = TerminalNormalMode
		return nil
	}
	data, switchToShell := keybind.KeyToBytes(key)
	if switchToShell {
		return &AsyncAction{Kind: AsyncCreateSession, RepoID: a.currentRepoID(), Branch: a.currentBranch()}
	}
	if len(data) == 0 {
		return nil
	}
	return &AsyncAction{Kind: AsyncConnectStream, Path: string(data)}
}

func (a *App) handleTextDialog(key tea.KeyMsg) *AsyncAction {
	switch key.Type {
	case tea.KeyEsc:
		a.InputMode = normalMode()
		return nil
	case tea.KeyBackspace:
		if n := len(a.InputMode.Text); n > 0 {
			a.InputMode.Text = a.InputMode.Text[:n-1]
		}
		return nil
	case tea.KeyEnter:
		return a.submitTextDialog()
	}
	if key.Type == tea.KeyRunes {
		a.InputMode.Text += string(key.Runes)
	} else if p, ok := keybind.KeyEventToPattern(key); ok && a.Keybinds.IsPrefixKey(p) &&
		len(p) == 3 && strings.HasPrefix(p, "C-") {
		// The prefix key does not latch inside a text dialog; a Ctrl+letter
		// prefix is typed as its plain letter instead.
		a.InputMode.Text += p[2:]
	}
	return nil
}

func (a *App) submitTextDialog() *AsyncAction {
	mode := a.InputMode
	a.InputMode = normalMode()
	switch mode.Kind {
	case ModeNewBranch:
		return &AsyncAction{Kind: AsyncSubmitNewBranch, RepoID: a.currentRepoID(), Branch: mode.Text}
	case ModeAddWorktree:
		return &AsyncAction{Kind: AsyncSubmitAddWorktree, RepoID: a.currentRepoID(), Branch: mode.Text}
	case ModeRenameSession:
		return &AsyncAction{Kind: AsyncSubmitRenameSession, Path: mode.Text, RepoID: mode.SessionID}
	case ModeAddLineComment, ModeEditLineComment:
		return &AsyncAction{Kind: AsyncSubmitLineComment, RepoID: a.currentRepoID(), Branch: a.currentBranch(), Path: mode.FilePath}
	}
	return nil
}

func (a *App) handleConfirmDialog(key tea.KeyMsg) *AsyncAction {
	mode := a.InputMode
	confirm := key.Type == tea.KeyEnter || (key.Type == tea.KeyRunes && len(key.Runes) == 1 && (key.Runes[0] == 'y' || key.Runes[0] == 'Y'))
	cancel := key.Type == tea.KeyEsc || (key.Type == tea.KeyRunes && len(key.Runes) == 1 && key.Runes[0] == 'n')
	if !confirm && !cancel {
		return nil
	}
	a.InputMode = normalMode()
	if cancel {
		return nil
	}
	switch mode.Kind {
	case ModeConfirmDelete:
		return &AsyncAction{Kind: AsyncConfirmDelete, RepoID: a.currentRepoID(), Branch: mode.TargetID}
	case ModeConfirmDeleteBranch:
		return &AsyncAction{Kind: AsyncConfirmDeleteBranch, RepoID: a.currentRepoID(), Branch: mode.TargetID}
	case ModeConfirmDeleteWorktreeSessions:
		return &AsyncAction{Kind: AsyncConfirmDelete, RepoID: a.currentRepoID(), Branch: mode.TargetID}
	case ModeConfirmDeleteTodo:
		return &AsyncAction{Kind: AsyncDeleteTodo, Path: mode.TargetID}
	}
	return nil
}

func (a *App) handleTodoMode(key tea.KeyMsg, pattern string) *AsyncAction {
	switch a.InputMode.Kind {
	case ModeAddTodo, ModeEditTodo, ModeEditTodoDescription:
		return a.handleTextDialog(key)
	}

	action, ok := a.Keybinds.Resolve(pattern, keybind.Todo)
	if !ok {
		return nil
	}
	a.TodoList.Len = len(a.Todos)
	switch action {
	case keybind.ActionMoveUp:
		a.TodoList.MoveUp()
	case keybind.ActionMoveDown:
		a.TodoList.MoveDown()
	case keybind.ActionAddTodo:
		a.InputMode = InputMode{Kind: ModeAddTodo}
	case keybind.ActionEditTodo:
		if id := a.currentTodoID(); id != "" {
			a.InputMode = InputMode{Kind: ModeEditTodo, TodoID: id}
		}
	case keybind.ActionToggleTodo:
		if id := a.currentTodoID(); id != "" {
			return &AsyncAction{Kind: AsyncToggleTodo, Path: id}
		}
	case keybind.ActionDeleteTodo:
		if id := a.currentTodoID(); id != "" {
			a.InputMode = InputMode{Kind: ModeConfirmDeleteTodo, TargetID: id}
		}
	case keybind.ActionCancel:
		a.InputMode = normalMode()
	}
	return nil
}

func (a *App) currentTodoID() string {
	if a.TodoList.Cursor < 0 || a.TodoList.Cursor >= len(a.Todos) {
		return ""
	}
	return a.Todos[a.TodoList.Cursor].ID
}
