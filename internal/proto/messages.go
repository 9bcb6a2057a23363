// Package proto defines the IPC message shapes and attach/event stream
// framing used between amux (client) and amuxd (daemon) over a Unix domain
// socket.
//
// Unary commands use newline-delimited JSON: client sends one Request,
// daemon sends one Response, then the connection closes. Attach and
// Subscribe are special: after the JSON handshake the connection enters a
// streaming mode described below.
package proto

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// Request type constants.
const (
	ReqPing = "ping"

	ReqAddRepo    = "add_repo"
	ReqListRepos  = "list_repos"
	ReqRemoveRepo = "remove_repo"

	ReqListWorktrees  = "list_worktrees"
	ReqCreateWorktree = "create_worktree"
	ReqRemoveWorktree = "remove_worktree"
	ReqDeleteBranch   = "delete_branch"

	ReqCreateSession  = "create_session"
	ReqDestroySession = "destroy_session"
	ReqRenameSession  = "rename_session"
	ReqListSessions   = "list_sessions"
	ReqGetSession     = "get_session"
	ReqStopSession    = "stop_session"
	ReqAttachSession  = "attach_session"

	ReqCreateComment = "create_comment"
	ReqUpdateComment = "update_comment"
	ReqDeleteComment = "delete_comment"
	ReqListComments  = "list_comments"

	ReqCreateTodo = "create_todo"
	ReqUpdateTodo = "update_todo"
	ReqDeleteTodo = "delete_todo"
	ReqListTodos  = "list_todos"
	ReqToggleTodo = "toggle_todo"
	ReqReorderTodo = "reorder_todo"

	ReqGetDiffFiles = "get_diff_files"
	ReqGetFileDiff  = "get_file_diff"

	ReqGetGitStatus = "get_git_status"
	ReqStageFile    = "stage_file"
	ReqUnstageFile  = "unstage_file"
	ReqStageAll     = "stage_all"
	ReqUnstageAll   = "unstage_all"

	ReqListProviders = "list_providers"

	ReqSubscribeEvents = "subscribe_events"
)

// Request is the JSON payload sent from amux to amuxd for unary commands.
// Not every field is meaningful for every request type; handlers read only
// the fields their operation needs.
type Request struct {
	Type string `json:"type"`

	// Repo / worktree / session addressing.
	Path       string `json:"path,omitempty"`
	RepoID     string `json:"repo_id,omitempty"`
	Branch     string `json:"branch,omitempty"`
	BaseBranch string `json:"base_branch,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	Name       string `json:"name,omitempty"`

	// Attach handshake initial window size.
	Cols uint16 `json:"cols,omitempty"`
	Rows uint16 `json:"rows,omitempty"`

	// Session creation.
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	Mode     string `json:"mode,omitempty"` // "shell" | "new" | "resume" | "oneshot"
	Prompt   string `json:"prompt,omitempty"`
	ResumeID string `json:"resume_id,omitempty"`

	// Review comments.
	CommentID  string `json:"comment_id,omitempty"`
	FilePath   string `json:"file_path,omitempty"`
	LineNumber int    `json:"line_number,omitempty"`
	LineType   string `json:"line_type,omitempty"`
	Comment    string `json:"comment,omitempty"`

	// TODO items.
	TodoID          string  `json:"todo_id,omitempty"`
	Title           string  `json:"title,omitempty"`
	Description     *string `json:"description,omitempty"`
	Completed       *bool   `json:"completed,omitempty"`
	ParentID        *string `json:"parent_id,omitempty"`
	Order           *int    `json:"order,omitempty"`
	NewOrder        int     `json:"new_order,omitempty"`
	NewParentID     *string `json:"new_parent_id,omitempty"`
	IncludeComplete *bool   `json:"include_completed,omitempty"`
}

// RepoInfo is a point-in-time snapshot of a repository's metadata.
type RepoInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Path         string `json:"path"`
	SessionCount int    `json:"session_count"`
}

// WorktreeInfo describes a (repo, branch) working directory.
type WorktreeInfo struct {
	RepoID       string `json:"repo_id"`
	Branch       string `json:"branch"`
	Path         string `json:"path"`
	IsMain       bool   `json:"is_main"`
	SessionCount int    `json:"session_count"`
}

// SessionInfo is a serializable snapshot of a session's metadata and status.
type SessionInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	RepoID       string `json:"repo_id"`
	Branch       string `json:"branch"`
	WorktreePath string `json:"worktree_path"`
	Status       string `json:"status"` // "running" | "stopped"
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}

// LineCommentInfo is a (file, line) review comment.
type LineCommentInfo struct {
	ID         string `json:"id"`
	RepoID     string `json:"repo_id"`
	Branch     string `json:"branch"`
	FilePath   string `json:"file_path"`
	LineNumber int    `json:"line_number"`
	LineType   string `json:"line_type"` // "header" | "context" | "addition" | "deletion"
	Comment    string `json:"comment"`
	CreatedAt  int64  `json:"created_at"`
}

// TodoItem is a single TODO entry; trees are built client-side from ParentID.
type TodoItem struct {
	ID          string  `json:"id"`
	RepoID      string  `json:"repo_id"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Completed   bool    `json:"completed"`
	ParentID    *string `json:"parent_id,omitempty"`
	Order       int     `json:"order"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"updated_at"`
}

// File status wire enum, fixed ordering per spec.md §4.6.
const (
	FileStatusModified  = "modified"
	FileStatusAdded     = "added"
	FileStatusDeleted   = "deleted"
	FileStatusRenamed   = "renamed"
	FileStatusUntracked = "untracked"
)

// DiffFileInfo summarizes one changed file.
type DiffFileInfo struct {
	Path      string `json:"path"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// Diff line type wire enum.
const (
	LineTypeHeader   = "header"
	LineTypeContext  = "context"
	LineTypeAddition = "addition"
	LineTypeDeletion = "deletion"
)

// DiffLine is a single rendered line of a unified diff.
type DiffLine struct {
	LineType  string `json:"line_type"`
	Content   string `json:"content"`
	OldLineNo int    `json:"old_lineno,omitempty"`
	NewLineNo int    `json:"new_lineno,omitempty"`
}

// GitFileStatus is one entry in a working tree status listing.
type GitFileStatus struct {
	Path   string `json:"path"`
	Status string `json:"status"`
	Staged bool   `json:"staged"`
}

// ProviderInfo describes one registered AI CLI provider.
type ProviderInfo struct {
	Name         string   `json:"name"`
	DisplayName  string   `json:"display_name"`
	Models       []string `json:"models"`
	DefaultModel string   `json:"default_model"`
}

// Response is the JSON payload returned by the daemon for unary requests.
type Response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`

	Repo      *RepoInfo      `json:"repo,omitempty"`
	Repos     []RepoInfo     `json:"repos,omitempty"`
	Worktree  *WorktreeInfo  `json:"worktree,omitempty"`
	Worktrees []WorktreeInfo `json:"worktrees,omitempty"`
	Session   *SessionInfo   `json:"session,omitempty"`
	Sessions  []SessionInfo  `json:"sessions,omitempty"`

	Comment  *LineCommentInfo  `json:"comment,omitempty"`
	Comments []LineCommentInfo `json:"comments,omitempty"`

	Todo  *TodoItem  `json:"todo,omitempty"`
	Todos []TodoItem `json:"todos,omitempty"`

	DiffFiles []DiffFileInfo  `json:"diff_files,omitempty"`
	DiffLines []DiffLine      `json:"diff_lines,omitempty"`
	GitStatus []GitFileStatus `json:"git_status,omitempty"`

	Providers []ProviderInfo `json:"providers,omitempty"`
}

// ─── Event bus ─────────────────────────────────────────────────────────────

// Event kind constants, per spec.md §4.4.
const (
	EventSessionCreated      = "session_created"
	EventSessionDestroyed    = "session_destroyed"
	EventSessionNameUpdated  = "session_name_updated"
	EventSessionStatusChange = "session_status_changed"
	EventWorktreeAdded       = "worktree_added"
	EventWorktreeRemoved     = "worktree_removed"
	EventGitStatusChanged    = "git_status_changed"
	EventLagged              = "lagged"
)

// Event is the envelope broadcast to every subscriber. Only the field
// matching Kind is populated.
type Event struct {
	Kind string `json:"kind"`

	Session *SessionInfo `json:"session,omitempty"`

	SessionID string `json:"session_id,omitempty"`
	OldName   string `json:"old_name,omitempty"`
	NewName   string `json:"new_name,omitempty"`
	OldStatus string `json:"old_status,omitempty"`
	NewStatus string `json:"new_status,omitempty"`

	RepoID string `json:"repo_id,omitempty"`
	Branch string `json:"branch,omitempty"`

	Worktree *WorktreeInfo `json:"worktree,omitempty"`

	Missed int `json:"missed,omitempty"`
}

// ─── Attach stream ─────────────────────────────────────────────────────────
//
// After the JSON handshake (a Request{Type: ReqAttachSession} followed by an
// OK Response), the attach connection becomes asymmetric:
//
//   Server → Client : raw PTY output bytes, unframed (terminal handles escapes)
//   Client → Server : length-prefixed frames:
//
//     [1 byte type][4 bytes big-endian length][payload]
//
//     0x00  data    – stdin bytes to write into the PTY
//     0x01  resize  – payload: 2-byte cols + 2-byte rows (big-endian uint16)
//     0x02  detach  – no payload; client wants to detach cleanly
//
// The subscribe-events stream reuses the same frame header but carries one
// JSON-encoded Event per frame, server → client only (type 0x10).

const (
	AttachFrameData   byte = 0x00
	AttachFrameResize byte = 0x01
	AttachFrameDetach byte = 0x02
	EventFrame        byte = 0x10
)

const maxFramePayload = 1 << 20 // 1 MiB sanity cap

// WriteFrame writes a single framed message to w.
func WriteFrame(w io.Writer, frameType byte, payload []byte) error {
	hdr := make([]byte, 5)
	hdr[0] = frameType
	binary.BigEndian.PutUint32(hdr[1:], uint32(len(payload)))
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	if len(payload) > 0 {
		_, err := w.Write(payload)
		return err
	}
	return nil
}

// ReadFrame reads a single framed message from r.
func ReadFrame(r io.Reader) (byte, []byte, error) {
	hdr := make([]byte, 5)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return 0, nil, err
	}
	frameType := hdr[0]
	n := binary.BigEndian.Uint32(hdr[1:])
	if n > maxFramePayload {
		return 0, nil, fmt.Errorf("attach frame too large: %d bytes", n)
	}
	if n == 0 {
		return frameType, nil, nil
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}
	return frameType, payload, nil
}

// EncodeResize packs cols/rows into an AttachFrameResize payload.
func EncodeResize(cols, rows uint16) []byte {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint16(payload[0:2], cols)
	binary.BigEndian.PutUint16(payload[2:4], rows)
	return payload
}

// DecodeResize unpacks an AttachFrameResize payload.
func DecodeResize(payload []byte) (cols, rows uint16, ok bool) {
	if len(payload) != 4 {
		return 0, 0, false
	}
	return binary.BigEndian.Uint16(payload[0:2]), binary.BigEndian.Uint16(payload[2:4]), true
}

// WriteEvent frames and writes an Event to w.
func WriteEvent(w io.Writer, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return WriteFrame(w, EventFrame, data)
}

// ReadEvent reads and decodes one framed Event from r.
func ReadEvent(r io.Reader) (Event, error) {
	frameType, payload, err := ReadFrame(r)
	if err != nil {
		return Event{}, err
	}
	if frameType != EventFrame {
		return Event{}, fmt.Errorf("unexpected frame type %d for event", frameType)
	}
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}
