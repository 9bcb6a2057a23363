package tui

import "github.com/amux-dev/amux/internal/proto"

// Reconcile applies one event-bus event to local state, per spec.md §4.10.
// It returns an AsyncAction only for two idempotent refreshes: LoadGitStatus
// on GitStatusChanged while the git panel is focused, and RefreshAll after a
// Lagged notice. Every other event is applied locally with no RPC.
func (a *App) Reconcile(ev proto.Event) *AsyncAction {
	switch ev.Kind {
	case proto.EventSessionCreated:
		if ev.Session != nil {
			a.Sidebar.Len = len(a.Worktrees)
		}

	case proto.EventSessionDestroyed:
		if a.Terminal.ActiveSessionID == ev.SessionID {
			a.Terminal.ActiveSessionID = ""
			a.exitTerminal()
		}

	case proto.EventSessionStatusChange:
		if ev.SessionID == a.Terminal.ActiveSessionID && ev.NewStatus == "stopped" {
			a.Terminal.ActiveSessionID = ""
			a.exitTerminal()
		}

	case proto.EventSessionNameUpdated:
		// Name-only change; the sidebar renders branches, not session
		// names, so there is nothing to mutate locally.

	case proto.EventWorktreeAdded, proto.EventWorktreeRemoved:
		a.Sidebar.ClampCursor()

	case proto.EventGitStatusChanged:
		if a.Focus == FocusGitStatus {
			return &AsyncAction{Kind: AsyncLoadGitStatus, RepoID: ev.RepoID, Branch: ev.Branch}
		}

	case proto.EventLagged:
		return &AsyncAction{Kind: AsyncRefreshAll}
	}
	return nil
}
