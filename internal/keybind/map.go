package keybind

// BindingContext is one of the ten input contexts a key pattern resolves
// against, per spec.md §4.7.
type BindingContext string

const (
	Global         BindingContext = "global"
	Prefix         BindingContext = "prefix"
	Sidebar        BindingContext = "sidebar"
	TerminalNormal BindingContext = "terminal_normal"
	TerminalInsert BindingContext = "terminal_insert"
	Diff           BindingContext = "diff"
	GitStatus      BindingContext = "git_status"
	Todo           BindingContext = "todo"
	DialogText     BindingContext = "dialog_text"
	DialogConfirm  BindingContext = "dialog_confirm"
)

// Action is a high-level intent a key pattern resolves to. Handlers act on
// these rather than on raw key patterns, so rebinding never touches
// behavior.
type Action string

const (
	ActionFocusSidebar          Action = "focus_sidebar"
	ActionFocusTerminal         Action = "focus_terminal"
	ActionFocusGitStatus        Action = "focus_git_status"
	ActionFocusDiff             Action = "focus_diff"
	ActionCreateSession         Action = "create_session"
	ActionSelectProviderCreate  Action = "select_provider_and_create"
	ActionAddWorktree           Action = "add_worktree"
	ActionDeleteCurrent         Action = "delete_current"
	ActionRefreshAll            Action = "refresh_all"
	ActionToggleFullscreen      Action = "toggle_fullscreen"
	ActionNormalMode            Action = "normal_mode"
	ActionInsertMode            Action = "insert_mode"
	ActionOpenTodo              Action = "open_todo"
	ActionSwitchRepoNext        Action = "switch_repo_next"
	ActionSwitchRepoPrev        Action = "switch_repo_prev"
	ActionQuit                  Action = "quit"
	ActionMoveUp                Action = "move_up"
	ActionMoveDown              Action = "move_down"
	ActionGotoTop               Action = "goto_top"
	ActionGotoBottom            Action = "goto_bottom"
	ActionPageUp                Action = "page_up"
	ActionPageDown              Action = "page_down"
	ActionSelect                Action = "select"
	ActionCancel                Action = "cancel"
	ActionConfirm               Action = "confirm"
	ActionDeleteBranch          Action = "delete_branch"
	ActionStageFile             Action = "stage_file"
	ActionUnstageFile           Action = "unstage_file"
	ActionStageAll              Action = "stage_all"
	ActionUnstageAll            Action = "unstage_all"
	ActionAddLineComment        Action = "add_line_comment"
	ActionSubmitReviewToClaude  Action = "submit_review_to_claude"
	ActionAddTodo               Action = "add_todo"
	ActionEditTodo              Action = "edit_todo"
	ActionToggleTodo            Action = "toggle_todo"
	ActionDeleteTodo            Action = "delete_todo"
	ActionSwitchToShell         Action = "switch_to_shell"
)

// KeybindMap holds one pattern→Action map per context plus the latching
// prefix key. Resolution falls back to Global when a context's map misses.
type KeybindMap struct {
	prefixKey string
	contexts  map[BindingContext]map[string]Action
}

// NewDefaultKeybindMap builds the default bindings, grounded on the
// original TUI's configured defaults (prefix C-s; w/g/v/t/n/d/r/q under
// Prefix; j/k/arrows for navigation; i to enter terminal insert mode).
func NewDefaultKeybindMap() *KeybindMap {
	m := &KeybindMap{
		prefixKey: "C-s",
		contexts:  map[BindingContext]map[string]Action{},
	}

	m.contexts[Global] = map[string]Action{
		"q": ActionQuit,
	}

	m.contexts[Prefix] = map[string]Action{
		"w": ActionFocusSidebar,
		"t": ActionFocusTerminal,
		"n": ActionCreateSession,
		"N": ActionSelectProviderCreate,
		"a": ActionAddWorktree,
		"d": ActionDeleteCurrent,
		"r": ActionRefreshAll,
		"f": ActionToggleFullscreen,
		"g": ActionFocusGitStatus,
		"v": ActionFocusDiff,
		"T": ActionOpenTodo,
		"]": ActionSwitchRepoNext,
		"[": ActionSwitchRepoPrev,
		"q": ActionQuit,
	}

	m.contexts[Sidebar] = map[string]Action{
		"j":     ActionMoveDown,
		"k":     ActionMoveUp,
		"Down":  ActionMoveDown,
		"Up":    ActionMoveUp,
		"g":     ActionGotoTop,
		"G":     ActionGotoBottom,
		"C-d":   ActionPageDown,
		"C-u":   ActionPageUp,
		"Enter": ActionSelect,
		"n":     ActionCreateSession,
		"a":     ActionAddWorktree,
		"d":     ActionDeleteCurrent,
	}

	m.contexts[TerminalNormal] = map[string]Action{
		"i":     ActionInsertMode,
		"j":     ActionMoveDown,
		"k":     ActionMoveUp,
		"Esc":   ActionFocusSidebar,
		"f":     ActionToggleFullscreen,
	}

	m.contexts[TerminalInsert] = map[string]Action{
		"Esc": ActionNormalMode,
	}

	m.contexts[Diff] = map[string]Action{
		"j":     ActionMoveDown,
		"k":     ActionMoveUp,
		"Down":  ActionMoveDown,
		"Up":    ActionMoveUp,
		"c":     ActionAddLineComment,
		"C-s":   ActionSubmitReviewToClaude,
		"Esc":   ActionFocusSidebar,
	}

	m.contexts[GitStatus] = map[string]Action{
		"j":     ActionMoveDown,
		"k":     ActionMoveUp,
		"s":     ActionStageFile,
		"u":     ActionUnstageFile,
		"S":     ActionStageAll,
		"U":     ActionUnstageAll,
		"Esc":   ActionFocusSidebar,
	}

	m.contexts[Todo] = map[string]Action{
		"j":     ActionMoveDown,
		"k":     ActionMoveUp,
		"a":     ActionAddTodo,
		"e":     ActionEditTodo,
		"Space": ActionToggleTodo,
		"d":     ActionDeleteTodo,
		"Esc":   ActionCancel,
	}

	m.contexts[DialogText] = map[string]Action{
		"Enter": ActionConfirm,
		"Esc":   ActionCancel,
	}

	m.contexts[DialogConfirm] = map[string]Action{
		"y":     ActionConfirm,
		"Y":     ActionConfirm,
		"Enter": ActionConfirm,
		"n":     ActionCancel,
		"Esc":   ActionCancel,
	}

	return m
}

// Resolve looks up pattern in context's map, falling back to Global.
func (m *KeybindMap) Resolve(pattern string, context BindingContext) (Action, bool) {
	if ctx, ok := m.contexts[context]; ok {
		if action, ok := ctx[pattern]; ok {
			return action, true
		}
	}
	if action, ok := m.contexts[Global][pattern]; ok {
		return action, true
	}
	return "", false
}

// IsPrefixKey reports whether pattern matches the configured prefix key.
func (m *KeybindMap) IsPrefixKey(pattern string) bool {
	return pattern == m.prefixKey
}

// PrefixKey returns the configured prefix key pattern, for status-line hints.
func (m *KeybindMap) PrefixKey() string { return m.prefixKey }
