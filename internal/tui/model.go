package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amux-dev/amux/internal/proto"
)

// Client is the minimal RPC surface the render/async loop needs; cmd/amux
// supplies the real Unix-socket-backed implementation.
type Client interface {
	Do(action AsyncAction) tea.Msg
}

// AsyncResultMsg carries an AsyncAction's outcome back into Update. Only the
// fields relevant to Action.Kind are populated; see applyResult for which
// kinds treat a nil slice as "nothing to apply" and which as an empty list.
type AsyncResultMsg struct {
	Action AsyncAction
	Err    error

	Repos     []proto.RepoInfo
	Worktrees []proto.WorktreeInfo
	DiffFiles []proto.DiffFileInfo
	DiffLines []proto.DiffLine
	GitStatus []proto.GitFileStatus
	Todos     []proto.TodoItem
	Providers []proto.ProviderInfo
	SessionID string
}

// TerminalOutputMsg carries one chunk of PTY output read off the attach
// stream by a background goroutine (the Client owns that goroutine and
// feeds the running tea.Program via Program.Send, since Do only runs inside
// a single tea.Cmd invocation and can't push follow-up messages itself).
type TerminalOutputMsg struct {
	SessionID string
	Data      []byte
}

// TerminalClosedMsg reports that the attach stream backing the active
// terminal pane ended, whether by detach, daemon disconnect, or error.
type TerminalClosedMsg struct {
	SessionID string
}

// Model is the bubbletea entry point: it owns the pure App state plus the
// terminal dimensions needed to render it.
type Model struct {
	App    *App
	client Client
	width  int
	height int
}

func NewModel(client Client) Model {
	return Model{App: NewApp(), client: client}
}

// Init kicks off the initial repo/worktree listing so the sidebar isn't
// empty on first paint.
func (m Model) Init() tea.Cmd {
	return m.runAsync(AsyncAction{Kind: AsyncRefreshAll})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		action := m.App.HandleKey(msg)
		if m.App.ShouldQuit {
			return m, tea.Quit
		}
		if action != nil {
			return m, m.runAsync(*action)
		}
		return m, nil

	case AsyncResultMsg:
		if msg.Err != nil {
			m.App.StatusMessage = msg.Err.Error()
			return m, nil
		}
		m.applyResult(msg)
		return m, nil

	case TerminalOutputMsg:
		if msg.SessionID == m.App.Terminal.ActiveSessionID {
			m.App.Terminal.AppendOutput(msg.Data)
		}
		return m, nil

	case TerminalClosedMsg:
		if msg.SessionID == m.App.Terminal.ActiveSessionID {
			m.App.Terminal.ActiveSessionID = ""
			m.App.Terminal.Output = nil
			m.App.exitTerminal()
		}
		return m, nil
	}
	return m, nil
}

// applyResult folds an RPC outcome into App state, keyed by which
// AsyncAction requested it. For repo, worktree and todo results, absent
// (nil) slices are left untouched rather than clearing existing state, since
// several actions (e.g. toggling a single todo) don't always have the full
// list to hand back. Diff-file, diff-line and git-status results always
// replace the current list, so a nil slice clears it.
func (m Model) applyResult(msg AsyncResultMsg) {
	a := m.App
	switch msg.Action.Kind {
	case AsyncRefreshAll:
		if msg.Repos != nil {
			a.Repos = msg.Repos
			if a.CurrentRepo >= len(a.Repos) {
				a.CurrentRepo = 0
			}
		}
		if msg.Worktrees != nil {
			a.Worktrees = msg.Worktrees
			a.Sidebar.Len = len(a.Worktrees)
		}

	case AsyncSwitchRepo, AsyncSubmitAddWorktree, AsyncSubmitNewBranch,
		AsyncConfirmDelete, AsyncConfirmDeleteBranch:
		if msg.Worktrees != nil {
			a.Worktrees = msg.Worktrees
			a.Sidebar.Len = len(a.Worktrees)
			a.Sidebar.ClampCursor()
		}

	case AsyncConnectStream, AsyncCreateSession:
		if msg.SessionID != "" {
			a.Terminal.ActiveSessionID = msg.SessionID
			a.Terminal.Mode = TerminalInsertMode
			a.Focus = FocusTerminal
		}

	case AsyncFetchProviders:
		if len(msg.Providers) > 0 {
			names := make([]string, len(msg.Providers))
			for i, p := range msg.Providers {
				names[i] = p.Name
			}
			a.StatusMessage = "providers: " + strings.Join(names, ", ")
		}

	case AsyncLoadDiffFiles:
		a.DiffFiles = msg.DiffFiles
		a.DiffList.Len = len(a.DiffFiles)

	case AsyncLoadFileDiff:
		a.DiffLines = msg.DiffLines

	case AsyncLoadGitStatus, AsyncStageFile, AsyncUnstageFile, AsyncStageAll, AsyncUnstageAll:
		a.GitStatus = msg.GitStatus
		a.GitStatusList.Len = len(a.GitStatus)

	case AsyncLoadTodos, AsyncSubmitTodo:
		if msg.Todos != nil {
			a.Todos = msg.Todos
			a.TodoList.Len = len(a.Todos)
		}

	case AsyncSubmitReviewToClaude:
		if msg.SessionID != "" {
			a.Terminal.ActiveSessionID = msg.SessionID
			a.Terminal.Mode = TerminalInsertMode
			a.Focus = FocusTerminal
		}
	}
}

func (m Model) runAsync(action AsyncAction) tea.Cmd {
	if m.client == nil {
		return nil
	}
	return func() tea.Msg { return m.client.Do(action) }
}

var (
	sidebarStyle = lipgloss.NewStyle().Width(30).Border(lipgloss.NormalBorder())
	mainStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder())
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBF24"))
)

func (m Model) View() string {
	sidebarWidth := 30
	mainWidth := m.width - sidebarWidth
	if mainWidth < 0 {
		mainWidth = 0
	}

	sidebar := sidebarStyle.Height(m.height - 2).Render(m.renderSidebar())
	main := mainStyle.Width(mainWidth).Height(m.height - 2).Render(m.renderMain())

	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, main)
	status := statusStyle.Render(m.App.StatusMessage)
	return lipgloss.JoinVertical(lipgloss.Left, body, status)
}

func (m Model) renderSidebar() string {
	var b strings.Builder
	for i, wt := range m.App.Worktrees {
		cursor := "  "
		if i == m.App.Sidebar.Cursor && m.App.Focus == FocusSidebar {
			cursor = "> "
		}
		fmt.Fprintf(&b, "%s%s\n", cursor, wt.Branch)
	}
	return b.String()
}

func (m Model) renderMain() string {
	switch m.App.Focus {
	case FocusTerminal:
		if m.App.Terminal.ActiveSessionID == "" {
			return "not attached"
		}
		return string(m.App.Terminal.Output)
	case FocusDiffFiles:
		var b strings.Builder
		for _, f := range m.App.DiffFiles {
			fmt.Fprintf(&b, "%s  %s\n", f.Status, f.Path)
		}
		return b.String()
	case FocusGitStatus:
		var b strings.Builder
		for _, f := range m.App.GitStatus {
			fmt.Fprintf(&b, "%s  %s\n", f.Status, f.Path)
		}
		return b.String()
	default:
		return "select a worktree"
	}
}
