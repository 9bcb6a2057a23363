package daemon

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hinshun/vt10x"

	"github.com/amux-dev/amux/internal/ptyproc"
	"github.com/amux-dev/amux/internal/provider"
)

const (
	defaultCols = 80
	defaultRows = 24

	// maxRingBytes is the raw-output scrollback cap (spec.md §3/§4.2).
	maxRingBytes = 1 << 20

	scrollbackRows = 10000
)

// Session wraps a PTY process with identity, a VT100-style parser (vt10x,
// the Go analogue of the original's vt100::Parser), and a bounded raw-byte
// ring replayed on attach.
type Session struct {
	ID           string
	Name         string
	RepoID       string
	Branch       string
	WorktreePath string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	providerRef provider.Ref

	// mu guards the parser/ring/proc/rows/cols plus the name-from-log and
	// history-flush bookkeeping — independent of the daemon's outer
	// AppState lock, per spec.md §5.
	mu     sync.Mutex
	proc   *ptyproc.Proc
	term   vt10x.Terminal
	ring   []byte
	cols   int
	rows   int
	nameFromLog bool
	lastHistoryFlush time.Time
}

// Status mirrors spec.md §3: derived, not stored. Running iff a live PTY
// handle exists.
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
)

func newSession(id, repoID, branch, worktreePath string, ref provider.Ref) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		RepoID:       repoID,
		Branch:       branch,
		WorktreePath: worktreePath,
		CreatedAt:    now,
		UpdatedAt:    now,
		providerRef:  ref,
		cols:         defaultCols,
		rows:         defaultRows,
		term:         vt10x.New(vt10x.WithSize(defaultCols, defaultRows)),
	}
}

// Status derives the session's running state from whether a PTY is attached.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil {
		return StatusStopped
	}
	return StatusRunning
}

// Start is idempotent: it spawns the PTY only if one is not already present,
// using ModeNew against the session's stored provider ref — the common case
// (re-spawning a Stopped session on attach, per spec.md §4.5).
func (s *Session) Start(reg *provider.Registry) error {
	s.mu.Lock()
	alreadyRunning := s.proc != nil
	ref := s.providerRef
	s.mu.Unlock()
	if alreadyRunning {
		return nil
	}

	command, args, err := reg.BuildCommand(ref)
	if err != nil {
		return ErrInvalidArgument("build command: %v", err)
	}
	return s.startWithCommand(command, args)
}

// startWithCommand spawns the PTY with an already-resolved argv, used both
// by Start (ModeNew re-spawn) and by CreateSession's explicit mode/prompt
// handling.
func (s *Session) startWithCommand(command string, args []string) error {
	s.mu.Lock()
	if s.proc != nil {
		s.mu.Unlock()
		return nil
	}
	cols, rows := s.cols, s.rows
	worktreePath := s.WorktreePath
	s.mu.Unlock()

	env := append(os.Environ(), "TERM=xterm-256color")
	proc, err := ptyproc.Spawn(worktreePath, command, args, env)
	if err != nil {
		return ErrInternal(err, "spawn session %s", s.ID)
	}
	_ = proc.Resize(uint16(cols), uint16(rows))

	s.mu.Lock()
	s.proc = proc
	s.mu.Unlock()
	return nil
}

// Stop kills and detaches the PTY but keeps metadata and ring intact.
func (s *Session) Stop() {
	s.mu.Lock()
	proc := s.proc
	s.proc = nil
	s.mu.Unlock()
	if proc != nil {
		proc.Kill()
	}
}

// Resize forwards to the PTY, then the parser, in that order (spec.md §4.2).
func (s *Session) Resize(cols, rows uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cols, s.rows = int(cols), int(rows)
	if s.proc != nil {
		_ = s.proc.Resize(cols, rows)
	}
	s.term = vt10x.New(vt10x.WithSize(int(cols), int(rows)))
}

// ProcessOutput feeds bytes to the terminal parser and appends them to the
// ring, trimming from the front so the ring length never exceeds
// maxRingBytes — the contiguous drop-oldest rule from spec.md §3/§8.
func (s *Session) ProcessOutput(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.term.Write(b)
	s.ring = append(s.ring, b...)
	if len(s.ring) > maxRingBytes {
		s.ring = s.ring[len(s.ring)-maxRingBytes:]
	}
}

// RingSnapshot returns a copy of the current raw-output ring, for attach
// history replay.
func (s *Session) RingSnapshot() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.ring))
	copy(out, s.ring)
	return out
}

// LoadRing seeds the ring at daemon startup from a persisted history.bin.
func (s *Session) LoadRing(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(data) > maxRingBytes {
		data = data[len(data)-maxRingBytes:]
	}
	s.ring = append([]byte(nil), data...)
}

// Write sends bytes to the PTY's stdin.
func (s *Session) Write(b []byte) (int, error) {
	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()
	if proc == nil {
		return 0, fmt.Errorf("session %s: not running", s.ID)
	}
	return proc.Write(b)
}

// Read reads from the PTY master; used by the attach output pump.
func (s *Session) Read(buf []byte) (int, error) {
	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()
	if proc == nil {
		return 0, fmt.Errorf("session %s: not running", s.ID)
	}
	return proc.Read(buf)
}

// Proc exposes the underlying process for Wait()/Killed() from the output
// pump's exit-detection path.
func (s *Session) Proc() *ptyproc.Proc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc
}

// ClearProcIfCurrent nils out proc, but only if it is still the same handle
// the caller observed — guards against a race with a concurrent explicit
// Stop()/restart replacing it out from under a crash-detection path.
func (s *Session) ClearProcIfCurrent(proc *ptyproc.Proc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc != proc {
		return false
	}
	s.proc = nil
	return true
}

// MarkNameFromLog records that the session's name was already overwritten
// once from the assistant's session log, per spec.md §3's "exactly once" rule.
func (s *Session) MarkNameFromLog() {
	s.mu.Lock()
	s.nameFromLog = true
	s.mu.Unlock()
}

func (s *Session) NameAlreadyFromLog() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nameFromLog
}

func (s *Session) ShouldFlushHistory(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.lastHistoryFlush) < time.Second {
		return false
	}
	s.lastHistoryFlush = now
	return true
}

// generateSessionName picks branch if unused, else branch-2, branch-3, ...
// (first non-colliding integer ≥ 2), per spec.md §3/§8.
func generateSessionName(branch string, existing map[string]bool) string {
	if !existing[branch] {
		return branch
	}
	for n := 2; ; n++ {
		candidate := branch + "-" + strconv.Itoa(n)
		if !existing[candidate] {
			return candidate
		}
	}
}

func newSessionID() string {
	return uuid.NewString()
}

// sortedSessionNames returns the set of names used by the given repo's
// sessions (on any branch), for uniqueness checks.
func sortedSessionNames(sessions map[string]*Session, repoID string) map[string]bool {
	names := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		if s.RepoID == repoID {
			names[s.Name] = true
		}
	}
	return names
}
