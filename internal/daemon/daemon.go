// Package daemon implements amuxd: the background process that owns
// PTY-backed sessions across Git repositories and worktrees, persists their
// state, and serves the RPC/attach/event surface described in spec.md §4.
package daemon

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/amux-dev/amux/internal/gitops"
	"github.com/amux-dev/amux/internal/provider"
	"github.com/amux-dev/amux/internal/proto"
	"github.com/amux-dev/amux/internal/review"
	"github.com/amux-dev/amux/internal/todo"
)

// Daemon holds the single shared AppState (spec.md §5): repos and sessions
// behind one sync.RWMutex. Each Session additionally guards its own
// parser/ring/proc behind a small per-session mutex, independent of this
// outer lock.
type Daemon struct {
	dataDir string
	log     *slog.Logger

	git      *gitops.Ops
	registry *provider.Registry
	bus      *EventBus
	reviews  *review.Store
	todos    *todo.Store

	mu       sync.RWMutex
	repos    map[string]*Repo
	sessions map[string]*Session
}

// New constructs a Daemon rooted at dataDir, creating the directory layout
// from spec.md §4.3 and loading persisted repos/sessions.
func New(dataDir string, log *slog.Logger, includeMock bool) (*Daemon, error) {
	if log == nil {
		log = slog.Default()
	}
	for _, sub := range []string{"sessions", "reviews", "todos"} {
		if err := os.MkdirAll(filepath.Join(dataDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("daemon: mkdir %s: %w", sub, err)
		}
	}

	d := &Daemon{
		dataDir:  dataDir,
		log:      log,
		git:      gitops.New(),
		registry: provider.NewRegistry(includeMock),
		bus:      NewEventBus(log),
		reviews:  review.NewStore(filepath.Join(dataDir, "reviews")),
		todos:    todo.NewStore(filepath.Join(dataDir, "todos")),
		repos:    map[string]*Repo{},
		sessions: map[string]*Session{},
	}

	if err := d.loadRepos(); err != nil {
		return nil, err
	}
	if err := d.loadSessions(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Daemon) SocketPath() string { return filepath.Join(d.dataDir, "daemon.sock") }
func (d *Daemon) PIDPath() string    { return filepath.Join(d.dataDir, "daemon.pid") }

// Run removes stale socket/PID files, binds the Unix socket, writes the PID
// file, and accepts connections until the listener is closed.
func (d *Daemon) Run() error {
	socketPath := d.SocketPath()
	_ = os.Remove(socketPath)

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("daemon: listen %s: %w", socketPath, err)
	}
	defer ln.Close()
	defer os.Remove(socketPath)

	if err := os.WriteFile(d.PIDPath(), []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644); err != nil {
		d.log.Warn("write pid file", "error", err)
	}
	defer os.Remove(d.PIDPath())

	d.log.Info("amuxd listening", "socket", socketPath)

	for {
		conn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("daemon: accept: %w", err)
		}
		go d.handleConn(conn)
	}
}

// handleConn reads one newline-delimited JSON Request, dispatches it, and
// writes one Response — except for attach/subscribe requests, which hand the
// connection off to a long-lived stream after the handshake.
func (d *Daemon) handleConn(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReaderSize(conn, 64*1024)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return
	}

	var req proto.Request
	if err := json.Unmarshal(line, &req); err != nil {
		writeResponse(conn, proto.Response{OK: false, Error: "malformed request"})
		return
	}

	switch req.Type {
	case proto.ReqAttachSession:
		d.handleAttach(conn, reader, req)
		return
	case proto.ReqSubscribeEvents:
		d.handleSubscribe(conn, req)
		return
	}

	resp := d.dispatch(req)
	writeResponse(conn, resp)
}

func writeResponse(conn net.Conn, resp proto.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = conn.Write(data)
}

func errResponse(err error) proto.Response {
	return proto.Response{OK: false, Error: err.Error()}
}
