package tui

// Focus is the right/left panel focus target, per spec.md §4.9.
type Focus string

const (
	FocusSidebar   Focus = "sidebar"
	FocusGitStatus Focus = "git_status"
	FocusTerminal  Focus = "terminal"
	FocusDiffFiles Focus = "diff_files"
)

// TerminalMode is the terminal pane's own sub-mode when Focus is Terminal.
type TerminalMode string

const (
	TerminalInsertMode TerminalMode = "insert"
	TerminalNormalMode TerminalMode = "normal"
)

// InputModeKind tags the variant of InputMode; payload fields below are
// only meaningful for the matching kind, mirroring the Rust enum's
// per-variant data without needing a sum type.
type InputModeKind string

const (
	ModeNormal                        InputModeKind = "normal"
	ModeNewBranch                     InputModeKind = "new_branch"
	ModeAddWorktree                   InputModeKind = "add_worktree"
	ModeRenameSession                 InputModeKind = "rename_session"
	ModeConfirmDelete                 InputModeKind = "confirm_delete"
	ModeConfirmDeleteBranch           InputModeKind = "confirm_delete_branch"
	ModeConfirmDeleteWorktreeSessions InputModeKind = "confirm_delete_worktree_sessions"
	ModeAddLineComment                InputModeKind = "add_line_comment"
	ModeEditLineComment               InputModeKind = "edit_line_comment"
	ModeTodoPopup                     InputModeKind = "todo_popup"
	ModeAddTodo                       InputModeKind = "add_todo"
	ModeEditTodo                      InputModeKind = "edit_todo"
	ModeEditTodoDescription           InputModeKind = "edit_todo_description"
	ModeConfirmDeleteTodo             InputModeKind = "confirm_delete_todo"
)

// InputMode is the active dialog/overlay state machine.
type InputMode struct {
	Kind InputModeKind

	// Shared free-text buffer for whichever text dialog is active.
	Text string

	// ConfirmDelete* / ConfirmDeleteWorktreeSessions / ConfirmDeleteTodo target.
	TargetID   string
	TargetName string

	// AddWorktree's optional base branch.
	BaseBranch string

	// RenameSession's session id being renamed.
	SessionID string

	// AddLineComment / EditLineComment location.
	FilePath   string
	LineNumber int
	LineType   string
	CommentID  string

	// Add/EditTodo parent and target.
	ParentID *string
	TodoID   string
}

func normalMode() InputMode { return InputMode{Kind: ModeNormal} }

// IsTextInput reports whether the active mode is a free-text entry dialog
// (these suppress the prefix-key latch, per spec.md §4.7).
func (m InputMode) IsTextInput() bool {
	switch m.Kind {
	case ModeNewBranch, ModeAddWorktree, ModeRenameSession, ModeAddLineComment,
		ModeEditLineComment, ModeAddTodo, ModeEditTodo, ModeEditTodoDescription:
		return true
	}
	return false
}

// AsyncActionKind tags an AsyncAction request for the async runtime loop.
type AsyncActionKind string

const (
	AsyncConnectStream        AsyncActionKind = "connect_stream"
	AsyncCreateSession        AsyncActionKind = "create_session"
	AsyncFetchProviders       AsyncActionKind = "fetch_providers"
	AsyncSubmitAddWorktree    AsyncActionKind = "submit_add_worktree"
	AsyncSubmitNewBranch      AsyncActionKind = "submit_new_branch"
	AsyncSubmitRenameSession  AsyncActionKind = "submit_rename_session"
	AsyncConfirmDelete        AsyncActionKind = "confirm_delete"
	AsyncConfirmDeleteBranch  AsyncActionKind = "confirm_delete_branch"
	AsyncLoadDiffFiles        AsyncActionKind = "load_diff_files"
	AsyncLoadFileDiff         AsyncActionKind = "load_file_diff"
	AsyncLoadGitStatus        AsyncActionKind = "load_git_status"
	AsyncStageFile            AsyncActionKind = "stage_file"
	AsyncUnstageFile          AsyncActionKind = "unstage_file"
	AsyncStageAll             AsyncActionKind = "stage_all"
	AsyncUnstageAll           AsyncActionKind = "unstage_all"
	AsyncSubmitLineComment    AsyncActionKind = "submit_line_comment"
	AsyncSubmitReviewToClaude AsyncActionKind = "submit_review_to_claude"
	AsyncLoadTodos            AsyncActionKind = "load_todos"
	AsyncSubmitTodo            AsyncActionKind = "submit_todo"
	AsyncToggleTodo            AsyncActionKind = "toggle_todo"
	AsyncDeleteTodo            AsyncActionKind = "delete_todo"
	AsyncRefreshAll            AsyncActionKind = "refresh_all"
	AsyncSwitchRepo            AsyncActionKind = "switch_repo"
)

// AsyncAction is returned by a (pure, synchronous) handler when the RPC
// runtime needs to perform work and feed the result back into state. This
// split keeps input handling deterministic and test-friendly, per
// spec.md §4.9.
type AsyncAction struct {
	Kind     AsyncActionKind
	Path     string
	RepoID   string
	Branch   string
	Index    int
}
