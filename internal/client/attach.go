package client

import (
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/amux-dev/amux/internal/proto"
)

// RunRawAttach puts the controlling terminal into raw mode and pumps bytes
// between it and the session's PTY until the user detaches with Ctrl-]
// (0x1D) or the daemon closes the connection. This is the `amux attach
// --raw` fallback for environments without a TUI.
func RunRawAttach(c *Client, sessionID string) error {
	fd := int(os.Stdin.Fd())
	cols, rows := uint16(80), uint16(24)
	if w, h, err := term.GetSize(fd); err == nil {
		cols, rows = uint16(w), uint16(h)
	}

	conn, _, err := c.Attach(sessionID, cols, rows)
	if err != nil {
		return err
	}
	defer conn.Close()

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	restore := func() { term.Restore(fd, oldState) }
	defer restore()

	os.Stdout.WriteString("\r\n[amux] attached to " + sessionID + "  (detach: Ctrl-])\r\n")

	done := make(chan struct{}, 1)
	signalDone := func() {
		select {
		case done <- struct{}{}:
		default:
		}
	}

	go func() {
		io.Copy(os.Stdout, conn)
		signalDone()
	}()

	go func() {
		buf := make([]byte, 256)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				for i := 0; i < n; i++ {
					if buf[i] == 0x1D {
						proto.WriteFrame(conn, proto.AttachFrameDetach, nil)
						signalDone()
						return
					}
				}
				proto.WriteFrame(conn, proto.AttachFrameData, buf[:n])
			}
			if err != nil {
				signalDone()
				return
			}
		}
	}()

	winchCh := make(chan os.Signal, 1)
	signal.Notify(winchCh, syscall.SIGWINCH)
	defer signal.Stop(winchCh)
	go func() {
		for range winchCh {
			if w, h, err := term.GetSize(fd); err == nil {
				proto.WriteFrame(conn, proto.AttachFrameResize, proto.EncodeResize(uint16(w), uint16(h)))
			}
		}
	}()

	<-done
	restore()
	os.Stdout.WriteString("\n[amux] detached from " + sessionID + "\n")
	return nil
}

// RunSubscribeLoop reads framed events from an event subscription
// connection and invokes handle for each, until the connection closes.
func RunSubscribeLoop(conn net.Conn, handle func(proto.Event)) error {
	defer conn.Close()
	for {
		ev, err := proto.ReadEvent(conn)
		if err != nil {
			return err
		}
		handle(ev)
	}
}
