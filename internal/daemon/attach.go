package daemon

import (
	"bufio"
	"io"
	"net"
	"time"

	"github.com/amux-dev/amux/internal/proto"
	"github.com/amux-dev/amux/internal/ptyproc"
)

const (
	outputPollInterval = 10 * time.Millisecond
	outputChunkSize    = 4096

	// nameCheckEvery counts output-pump iterations, matching attach.rs's
	// ~50-iteration (~0.5s) name check at a 10ms poll interval. History is
	// saved on wall-clock time instead (~1s, see Session.ShouldFlushHistory).
	// Each iteration also blocks in Session.Read until the PTY has output,
	// so the ~0.5s cadence holds only while output is flowing.
	nameCheckEvery = 50
)

// handleAttach implements spec.md §4.5: handshake, optional restart,
// history replay, then the output and input pumps.
func (d *Daemon) handleAttach(conn net.Conn, reader *bufio.Reader, req proto.Request) {
	s, err := d.lookupSession(req.SessionID)
	if err != nil {
		writeResponse(conn, errResponse(err))
		return
	}

	if s.Status() == StatusStopped {
		if err := s.Start(d.registry); err != nil {
			writeResponse(conn, errResponse(err))
			return
		}
		d.persistSessionMeta(s)
		d.bus.EmitSessionStatusChanged(s.ID, string(StatusStopped), string(StatusRunning))
	}

	if req.Cols > 0 && req.Rows > 0 {
		s.Resize(req.Cols, req.Rows)
	}

	writeResponse(conn, proto.Response{OK: true})

	// History replay strictly precedes any post-attach bytes (spec.md §5).
	if replay := s.RingSnapshot(); len(replay) > 0 {
		if _, err := conn.Write(replay); err != nil {
			return
		}
	}

	done := make(chan struct{})
	go d.attachOutputPump(conn, s, done)
	d.attachInputPump(conn, reader, s)
	<-done
}

// attachOutputPump reads PTY output and forwards it as raw bytes; it flushes
// scrollback to disk on send failure or PTY error and exits.
func (d *Daemon) attachOutputPump(conn net.Conn, s *Session, done chan<- struct{}) {
	defer close(done)

	buf := make([]byte, outputChunkSize)
	nameCheckCounter := 0

	for {
		time.Sleep(outputPollInterval)

		nameCheckCounter++
		if nameCheckCounter >= nameCheckEvery {
			nameCheckCounter = 0
			d.maybeUpdateNameFromLog(s)
		}

		proc := s.Proc()
		if proc == nil {
			d.flushHistory(s)
			return
		}

		n, err := s.Read(buf)
		if n > 0 {
			s.ProcessOutput(buf[:n])
			if _, werr := conn.Write(buf[:n]); werr != nil {
				d.flushHistory(s)
				return
			}
			if s.ShouldFlushHistory(time.Now()) {
				d.flushHistory(s)
			}
		}
		if err != nil && err != io.EOF {
			d.flushHistory(s)
			d.markSessionExited(s, proc)
			return
		}
	}
}

// markSessionExited reaps a PTY the child exited from on its own (as
// opposed to an explicit Stop()), so a crash is reported Stopped instead of
// Running forever (spec.md §7). It is a no-op if proc was already cleared by
// a concurrent explicit Stop()/restart.
func (d *Daemon) markSessionExited(s *Session, proc *ptyproc.Proc) {
	_ = proc.Wait()
	if !s.ClearProcIfCurrent(proc) {
		return
	}
	d.persistSessionMeta(s)
	d.bus.EmitSessionStatusChanged(s.ID, string(StatusRunning), string(StatusStopped))
}

// attachInputPump writes client stdin to the PTY and applies resize frames
// until the client detaches or disconnects.
func (d *Daemon) attachInputPump(conn net.Conn, reader *bufio.Reader, s *Session) {
	for {
		frameType, payload, err := proto.ReadFrame(reader)
		if err != nil {
			return
		}
		switch frameType {
		case proto.AttachFrameData:
			_, _ = s.Write(payload)
		case proto.AttachFrameResize:
			if cols, rows, ok := proto.DecodeResize(payload); ok {
				s.Resize(cols, rows)
			}
		case proto.AttachFrameDetach:
			return
		}
	}
}

// maybeUpdateNameFromLog checks the provider's session log for a first
// meaningful user message and overwrites the session name exactly once, per
// spec.md §3/§4.5.
func (d *Daemon) maybeUpdateNameFromLog(s *Session) {
	if s.NameAlreadyFromLog() {
		return
	}
	p, ok := d.registry.Get(s.providerRef.Name)
	if !ok {
		return
	}
	info, err := p.ReadSessionInfo(s.ID, s.WorktreePath)
	if err != nil || info == nil || info.Description == "" {
		return
	}
	old := s.Name
	s.Name = info.Description
	s.MarkNameFromLog()
	d.persistSessionMeta(s)
	d.bus.EmitSessionNameUpdated(s.ID, old, s.Name)
}

// handleSubscribe serves SubscribeEvents: frames one JSON Event per
// broadcast message until the client disconnects.
func (d *Daemon) handleSubscribe(conn net.Conn, req proto.Request) {
	writeResponse(conn, proto.Response{OK: true})

	ch, unsub := d.bus.Subscribe(req.RepoID)
	defer unsub()

	for ev := range ch {
		if err := proto.WriteEvent(conn, ev); err != nil {
			return
		}
	}
}
