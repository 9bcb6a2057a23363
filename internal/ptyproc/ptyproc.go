// Package ptyproc spawns a process attached to a pseudo-terminal and exposes
// the primitives a Session needs on top of it: blocking reads (callers pump
// them from a goroutine), resize, write, and process-group kill.
package ptyproc

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
)

// Proc is a running (or recently-exited) PTY-backed child process.
type Proc struct {
	cmd *exec.Cmd

	mu      sync.Mutex
	ptm     *os.File // nil once the process has exited and the PTY is closed
	pid     int
	killed  bool
	exited  bool
	exitErr error
}

// Spawn starts command/args inside a new PTY, with the process's current
// working directory set to dir. The child is placed in its own session (via
// pty.Start's Setsid) so Kill can signal the whole process group.
func Spawn(dir, command string, args []string, env []string) (*Proc, error) {
	cmd := exec.Command(command, args...)
	cmd.Dir = dir
	cmd.Env = env

	ptm, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("ptyproc: start %s: %w", command, err)
	}

	return &Proc{
		cmd: cmd,
		ptm: ptm,
		pid: cmd.Process.Pid,
	}, nil
}

// Read reads available output from the PTY master. It blocks like a normal
// file read; callers run it in a dedicated goroutine.
func (p *Proc) Read(buf []byte) (int, error) {
	p.mu.Lock()
	ptm := p.ptm
	p.mu.Unlock()
	if ptm == nil {
		return 0, os.ErrClosed
	}
	return ptm.Read(buf)
}

// Write sends bytes to the PTY master (i.e. to the child's stdin).
func (p *Proc) Write(b []byte) (int, error) {
	p.mu.Lock()
	ptm := p.ptm
	p.mu.Unlock()
	if ptm == nil {
		return 0, os.ErrClosed
	}
	return ptm.Write(b)
}

// Resize updates the PTY window size.
func (p *Proc) Resize(cols, rows uint16) error {
	p.mu.Lock()
	ptm := p.ptm
	p.mu.Unlock()
	if ptm == nil {
		return os.ErrClosed
	}
	return pty.Setsize(ptm, &pty.Winsize{Cols: cols, Rows: rows})
}

// PID returns the child process id.
func (p *Proc) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// Wait blocks until the child process exits and returns its wait error.
// It is safe to call exactly once; the daemon's attach output pump
// (markSessionExited) owns the single Wait() call per teacher convention
// (instance.go's ptyReader does the same).
func (p *Proc) Wait() error {
	err := p.cmd.Wait()

	p.mu.Lock()
	if p.ptm != nil {
		p.ptm.Close()
		p.ptm = nil
	}
	p.exited = true
	p.exitErr = err
	p.mu.Unlock()

	return err
}

// Killed reports whether Kill was called for this process, so the caller can
// distinguish a deliberate stop from a crash when interpreting Wait's error.
func (p *Proc) Killed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

// killGracePeriod is how long Kill waits after SIGTERM before escalating to
// SIGKILL.
const killGracePeriod = 100 * time.Millisecond

// Kill terminates the child's entire process group: SIGTERM first, then
// SIGKILL if no exit has been recorded within killGracePeriod. Exit is
// recorded by Wait, so without a concurrent Wait call Kill always escalates.
func (p *Proc) Kill() {
	p.mu.Lock()
	pid := p.pid
	p.killed = true
	p.mu.Unlock()

	if pid <= 0 {
		return
	}

	signal := func(sig syscall.Signal) {
		if pgid, err := syscall.Getpgid(pid); err == nil && pgid > 0 {
			_ = syscall.Kill(-pgid, sig)
			return
		}
		_ = syscall.Kill(pid, sig)
	}

	signal(syscall.SIGTERM)
	if p.WaitExited(killGracePeriod) {
		return
	}
	signal(syscall.SIGKILL)
}

// WaitExited blocks up to timeout for a prior Wait() call to have recorded
// exit; used by Kill's grace period and by tests that need to synchronize
// without a channel handle.
func (p *Proc) WaitExited(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		p.mu.Lock()
		exited := p.exited
		p.mu.Unlock()
		if exited {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}
