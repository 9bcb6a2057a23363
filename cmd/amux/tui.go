package main

import (
	"fmt"
	"net"
	"os"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/amux-dev/amux/internal/client"
	"github.com/amux-dev/amux/internal/proto"
	"github.com/amux-dev/amux/internal/tui"
)

// RPCClient implements tui.Client by dispatching each AsyncAction over a
// unary amuxd RPC, and owns the single attach connection backing the
// terminal pane's raw-byte stream.
type RPCClient struct {
	c *client.Client

	mu              sync.Mutex
	program         *tea.Program
	attachConn      net.Conn
	attachSessionID string
}

func newRPCClient(c *client.Client) *RPCClient {
	return &RPCClient{c: c}
}

// SetProgram must be called after tea.NewProgram but before Run, so the
// attach-stream reader goroutine can push output back into the Update loop.
func (rc *RPCClient) SetProgram(p *tea.Program) {
	rc.mu.Lock()
	rc.program = p
	rc.mu.Unlock()
}

// Close detaches any open attach stream; used when the program exits.
func (rc *RPCClient) Close() {
	rc.closeAttach()
}

func (rc *RPCClient) Do(action tui.AsyncAction) tea.Msg {
	switch action.Kind {
	case tui.AsyncConnectStream:
		return rc.connectStream(action)
	case tui.AsyncCreateSession:
		return rc.createSession(action)
	case tui.AsyncFetchProviders:
		return rc.fetchProviders(action)
	case tui.AsyncSubmitAddWorktree, tui.AsyncSubmitNewBranch:
		return rc.submitAddWorktree(action)
	case tui.AsyncSubmitRenameSession:
		return rc.submitRenameSession(action)
	case tui.AsyncConfirmDelete:
		return rc.confirmDeleteWorktree(action)
	case tui.AsyncConfirmDeleteBranch:
		return rc.confirmDeleteBranch(action)
	case tui.AsyncLoadDiffFiles:
		return rc.loadDiffFiles(action)
	case tui.AsyncLoadFileDiff:
		return rc.loadFileDiff(action)
	case tui.AsyncLoadGitStatus:
		return rc.loadGitStatus(action)
	case tui.AsyncStageFile, tui.AsyncUnstageFile, tui.AsyncStageAll, tui.AsyncUnstageAll:
		return rc.mutateGitStatus(action)
	case tui.AsyncSubmitLineComment:
		return rc.submitLineComment(action)
	case tui.AsyncSubmitReviewToClaude:
		return rc.submitReviewToClaude(action)
	case tui.AsyncLoadTodos:
		return rc.loadTodos(action)
	case tui.AsyncSubmitTodo:
		return rc.submitTodo(action)
	case tui.AsyncToggleTodo:
		return rc.toggleTodo(action)
	case tui.AsyncDeleteTodo:
		return rc.deleteTodo(action)
	case tui.AsyncRefreshAll:
		return rc.refreshAll(action)
	case tui.AsyncSwitchRepo:
		return rc.listWorktreesResult(action)
	}
	return tui.AsyncResultMsg{Action: action}
}

func errMsg(action tui.AsyncAction, err error) tui.AsyncResultMsg {
	return tui.AsyncResultMsg{Action: action, Err: err}
}

// respErr returns a non-nil AsyncResultMsg when the call itself failed or
// the daemon rejected the request; callers return it as-is in that case.
func respErr(action tui.AsyncAction, resp proto.Response, err error) *tui.AsyncResultMsg {
	if err != nil {
		msg := errMsg(action, err)
		return &msg
	}
	if !resp.OK {
		msg := errMsg(action, fmt.Errorf("%s", resp.Error))
		return &msg
	}
	return nil
}

func (rc *RPCClient) connectStream(action tui.AsyncAction) tea.Msg {
	if action.Path != "" {
		rc.mu.Lock()
		conn := rc.attachConn
		rc.mu.Unlock()
		if conn != nil {
			_ = proto.WriteFrame(conn, proto.AttachFrameData, []byte(action.Path))
		}
		return tui.AsyncResultMsg{Action: action}
	}

	sessionID, err := rc.resolveOrCreateSession(action.RepoID, action.Branch)
	if err != nil {
		return errMsg(action, err)
	}
	if err := rc.attachSession(sessionID); err != nil {
		return errMsg(action, err)
	}
	return tui.AsyncResultMsg{Action: action, SessionID: sessionID}
}

func (rc *RPCClient) resolveOrCreateSession(repoID, branch string) (string, error) {
	resp, err := rc.c.Call(proto.Request{Type: proto.ReqListSessions, RepoID: repoID})
	if err != nil {
		return "", err
	}
	for _, s := range resp.Sessions {
		if s.Branch == branch {
			return s.ID, nil
		}
	}
	resp, err = rc.c.Call(proto.Request{Type: proto.ReqCreateSession, RepoID: repoID, Branch: branch, Mode: "new"})
	if err != nil {
		return "", err
	}
	if !resp.OK {
		return "", fmt.Errorf("%s", resp.Error)
	}
	return resp.Session.ID, nil
}

func (rc *RPCClient) createSession(action tui.AsyncAction) tea.Msg {
	resp, err := rc.c.Call(proto.Request{Type: proto.ReqCreateSession, RepoID: action.RepoID, Branch: action.Branch, Mode: "new"})
	if errMsgP := respErr(action, resp, err); errMsgP != nil {
		return *errMsgP
	}
	if err := rc.attachSession(resp.Session.ID); err != nil {
		return errMsg(action, err)
	}
	return tui.AsyncResultMsg{Action: action, SessionID: resp.Session.ID}
}

// attachSession closes any prior attach connection, opens a new one, and
// starts the background pump that feeds output back into the tea.Program.
func (rc *RPCClient) attachSession(sessionID string) error {
	rc.closeAttach()
	conn, _, err := rc.c.Attach(sessionID, 80, 24)
	if err != nil {
		return err
	}
	rc.mu.Lock()
	rc.attachConn = conn
	rc.attachSessionID = sessionID
	rc.mu.Unlock()
	go rc.pumpAttachOutput(sessionID, conn)
	return nil
}

func (rc *RPCClient) closeAttach() {
	rc.mu.Lock()
	conn := rc.attachConn
	rc.attachConn = nil
	rc.attachSessionID = ""
	rc.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// pumpAttachOutput mirrors claude-cells' PTY reader goroutine: Do only runs
// inside a single tea.Cmd invocation, so follow-up chunks have to reach the
// Update loop via Program.Send instead of a return value.
func (rc *RPCClient) pumpAttachOutput(sessionID string, conn net.Conn) {
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			data := append([]byte(nil), buf[:n]...)
			rc.send(tui.TerminalOutputMsg{SessionID: sessionID, Data: data})
		}
		if err != nil {
			rc.send(tui.TerminalClosedMsg{SessionID: sessionID})
			return
		}
	}
}

func (rc *RPCClient) send(msg tea.Msg) {
	rc.mu.Lock()
	p := rc.program
	rc.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (rc *RPCClient) fetchProviders(action tui.AsyncAction) tea.Msg {
	resp, err := rc.c.Call(proto.Request{Type: proto.ReqListProviders})
	if errMsgP := respErr(action, resp, err); errMsgP != nil {
		return *errMsgP
	}
	return tui.AsyncResultMsg{Action: action, Providers: resp.Providers}
}

func (rc *RPCClient) submitAddWorktree(action tui.AsyncAction) tea.Msg {
	resp, err := rc.c.Call(proto.Request{Type: proto.ReqCreateWorktree, RepoID: action.RepoID, Branch: action.Branch})
	if errMsgP := respErr(action, resp, err); errMsgP != nil {
		return *errMsgP
	}
	return rc.listWorktreesResult(action)
}

func (rc *RPCClient) submitRenameSession(action tui.AsyncAction) tea.Msg {
	resp, err := rc.c.Call(proto.Request{Type: proto.ReqRenameSession, SessionID: action.RepoID, Name: action.Path})
	if errMsgP := respErr(action, resp, err); errMsgP != nil {
		return *errMsgP
	}
	return tui.AsyncResultMsg{Action: action}
}

func (rc *RPCClient) confirmDeleteWorktree(action tui.AsyncAction) tea.Msg {
	resp, err := rc.c.Call(proto.Request{Type: proto.ReqRemoveWorktree, RepoID: action.RepoID, Branch: action.Branch})
	if errMsgP := respErr(action, resp, err); errMsgP != nil {
		return *errMsgP
	}
	return rc.listWorktreesResult(action)
}

func (rc *RPCClient) confirmDeleteBranch(action tui.AsyncAction) tea.Msg {
	resp, err := rc.c.Call(proto.Request{Type: proto.ReqDeleteBranch, RepoID: action.RepoID, Branch: action.Branch})
	if errMsgP := respErr(action, resp, err); errMsgP != nil {
		return *errMsgP
	}
	return rc.listWorktreesResult(action)
}

func (rc *RPCClient) loadDiffFiles(action tui.AsyncAction) tea.Msg {
	resp, err := rc.c.Call(proto.Request{Type: proto.ReqGetDiffFiles, RepoID: action.RepoID, Branch: action.Branch})
	if errMsgP := respErr(action, resp, err); errMsgP != nil {
		return *errMsgP
	}
	return tui.AsyncResultMsg{Action: action, DiffFiles: resp.DiffFiles}
}

func (rc *RPCClient) loadFileDiff(action tui.AsyncAction) tea.Msg {
	resp, err := rc.c.Call(proto.Request{Type: proto.ReqGetFileDiff, RepoID: action.RepoID, Branch: action.Branch, FilePath: action.Path})
	if errMsgP := respErr(action, resp, err); errMsgP != nil {
		return *errMsgP
	}
	return tui.AsyncResultMsg{Action: action, DiffLines: resp.DiffLines}
}

func (rc *RPCClient) loadGitStatus(action tui.AsyncAction) tea.Msg {
	resp, err := rc.c.Call(proto.Request{Type: proto.ReqGetGitStatus, RepoID: action.RepoID, Branch: action.Branch})
	if errMsgP := respErr(action, resp, err); errMsgP != nil {
		return *errMsgP
	}
	return tui.AsyncResultMsg{Action: action, GitStatus: resp.GitStatus}
}

func (rc *RPCClient) mutateGitStatus(action tui.AsyncAction) tea.Msg {
	var reqType string
	switch action.Kind {
	case tui.AsyncStageFile:
		reqType = proto.ReqStageFile
	case tui.AsyncUnstageFile:
		reqType = proto.ReqUnstageFile
	case tui.AsyncStageAll:
		reqType = proto.ReqStageAll
	case tui.AsyncUnstageAll:
		reqType = proto.ReqUnstageAll
	}
	resp, err := rc.c.Call(proto.Request{Type: reqType, RepoID: action.RepoID, Branch: action.Branch, FilePath: action.Path})
	if errMsgP := respErr(action, resp, err); errMsgP != nil {
		return *errMsgP
	}
	return rc.loadGitStatus(action)
}

func (rc *RPCClient) submitLineComment(action tui.AsyncAction) tea.Msg {
	resp, err := rc.c.Call(proto.Request{Type: proto.ReqCreateComment, RepoID: action.RepoID, Branch: action.Branch, FilePath: action.Path})
	if errMsgP := respErr(action, resp, err); errMsgP != nil {
		return *errMsgP
	}
	return tui.AsyncResultMsg{Action: action}
}

func (rc *RPCClient) submitReviewToClaude(action tui.AsyncAction) tea.Msg {
	resp, err := rc.c.Call(proto.Request{Type: proto.ReqListComments, RepoID: action.RepoID, Branch: action.Branch})
	if errMsgP := respErr(action, resp, err); errMsgP != nil {
		return *errMsgP
	}
	resp2, err := rc.c.Call(proto.Request{
		Type:   proto.ReqCreateSession,
		RepoID: action.RepoID,
		Branch: action.Branch,
		Mode:   "oneshot",
		Prompt: buildReviewPrompt(resp.Comments),
	})
	if errMsgP := respErr(action, resp2, err); errMsgP != nil {
		return *errMsgP
	}
	return tui.AsyncResultMsg{Action: action, SessionID: resp2.Session.ID}
}

func buildReviewPrompt(comments []proto.LineCommentInfo) string {
	var b strings.Builder
	b.WriteString("Address the following review comments:\n")
	for _, c := range comments {
		fmt.Fprintf(&b, "- %s:%d: %s\n", c.FilePath, c.LineNumber, c.Comment)
	}
	return b.String()
}

func (rc *RPCClient) loadTodos(action tui.AsyncAction) tea.Msg {
	resp, err := rc.c.Call(proto.Request{Type: proto.ReqListTodos, RepoID: action.RepoID})
	if errMsgP := respErr(action, resp, err); errMsgP != nil {
		return *errMsgP
	}
	return tui.AsyncResultMsg{Action: action, Todos: resp.Todos}
}

func (rc *RPCClient) submitTodo(action tui.AsyncAction) tea.Msg {
	resp, err := rc.c.Call(proto.Request{Type: proto.ReqCreateTodo, RepoID: action.RepoID, Title: action.Path})
	if errMsgP := respErr(action, resp, err); errMsgP != nil {
		return *errMsgP
	}
	return rc.loadTodos(action)
}

func (rc *RPCClient) toggleTodo(action tui.AsyncAction) tea.Msg {
	resp, err := rc.c.Call(proto.Request{Type: proto.ReqToggleTodo, TodoID: action.Path})
	if errMsgP := respErr(action, resp, err); errMsgP != nil {
		return *errMsgP
	}
	return rc.loadTodos(tui.AsyncAction{Kind: tui.AsyncLoadTodos, RepoID: resp.Todo.RepoID})
}

func (rc *RPCClient) deleteTodo(action tui.AsyncAction) tea.Msg {
	resp, err := rc.c.Call(proto.Request{Type: proto.ReqDeleteTodo, TodoID: action.Path})
	if errMsgP := respErr(action, resp, err); errMsgP != nil {
		return *errMsgP
	}
	return tui.AsyncResultMsg{Action: action}
}

func (rc *RPCClient) refreshAll(action tui.AsyncAction) tea.Msg {
	resp, err := rc.c.Call(proto.Request{Type: proto.ReqListRepos})
	if errMsgP := respErr(action, resp, err); errMsgP != nil {
		return *errMsgP
	}
	result := tui.AsyncResultMsg{Action: action, Repos: resp.Repos}

	repoID := action.RepoID
	if repoID == "" && len(resp.Repos) > 0 {
		repoID = resp.Repos[0].ID
	}
	if repoID != "" {
		if wtResp, err := rc.c.Call(proto.Request{Type: proto.ReqListWorktrees, RepoID: repoID}); err == nil && wtResp.OK {
			result.Worktrees = wtResp.Worktrees
		}
	}
	return result
}

func (rc *RPCClient) listWorktreesResult(action tui.AsyncAction) tea.Msg {
	resp, err := rc.c.Call(proto.Request{Type: proto.ReqListWorktrees, RepoID: action.RepoID})
	if errMsgP := respErr(action, resp, err); errMsgP != nil {
		return *errMsgP
	}
	return tui.AsyncResultMsg{Action: action, Worktrees: resp.Worktrees}
}

// runTUI is the root command's default RunE: launch the bubbletea front
// end, auto-registering the current directory first if it's a Git worktree
// not yet known to the daemon. Registration failures (not a repo, already
// registered) are not fatal.
func runTUI(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	if cwd, err := os.Getwd(); err == nil {
		_, _ = c.Call(proto.Request{Type: proto.ReqAddRepo, Path: cwd})
	}

	rc := newRPCClient(c)
	model := tui.NewModel(rc)
	program := tea.NewProgram(model, tea.WithAltScreen())
	rc.SetProgram(program)
	defer rc.Close()

	_, err = program.Run()
	return err
}
