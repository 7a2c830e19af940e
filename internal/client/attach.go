// Package client implements the foreground side of a session: the raw-mode
// attach loop bridging the invoking terminal to the daemon socket, and the
// short-lived connections behind the supervisor commands.
package client

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/zmxhq/zmx/internal/protocol"
)

// ErrNotATerminal reports an attach attempt without a controlling TTY.
var ErrNotATerminal = errors.New("client: stdin is not a terminal")

// Kitty keyboard-protocol encodings of Ctrl+\, recognized alongside the
// plain 0x1C byte as the detach key.
var kittyDetach = [][]byte{
	[]byte("\x1b[92;5u"),
	[]byte("\x1b[92;5:1u"),
}

// isDetachChunk reports whether a chunk of keyboard input is the detach key.
func isDetachChunk(p []byte) bool {
	if len(p) == 0 {
		return false
	}
	if p[0] == 0x1c {
		return true
	}
	for _, seq := range kittyDetach {
		if bytes.Contains(p, seq) {
			return true
		}
	}
	return false
}

// stdinMsg is one chunk of keyboard input, or the detach marker.
type stdinMsg struct {
	data   []byte
	detach bool
}

// Attach connects the invoking terminal to the session socket at path and
// bridges it until the user detaches, stdin closes, or the daemon goes away.
func Attach(path string) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return ErrNotATerminal
	}

	conn, err := net.Dial("unix", path)
	if err != nil {
		return fmt.Errorf("connect %s: %w", path, err)
	}
	defer conn.Close()

	state, err := makeRaw(fd)
	if err != nil {
		return fmt.Errorf("raw mode: %w", err)
	}
	defer func() {
		state.restore()
		os.Stdout.WriteString(resetModes)
	}()

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, unix.SIGWINCH)
	defer signal.Stop(winch)

	// Fresh canvas, then announce ourselves with the current window size.
	os.Stdout.WriteString("\x1b[2J\x1b[H")
	cols, rows, err := term.GetSize(fd)
	if err != nil {
		return err
	}
	ws := protocol.Winsize{Rows: uint16(rows), Cols: uint16(cols)}
	if _, err := conn.Write(protocol.Encode(protocol.TagInit, ws.Encode())); err != nil {
		return err
	}

	stdinCh := make(chan stdinMsg)
	go readStdin(stdinCh)

	outCh := make(chan []byte, 32)
	go readSocket(conn, outCh)

	for {
		select {
		case <-winch:
			cols, rows, err := term.GetSize(fd)
			if err != nil {
				continue
			}
			ws := protocol.Winsize{Rows: uint16(rows), Cols: uint16(cols)}
			if _, err := conn.Write(protocol.Encode(protocol.TagResize, ws.Encode())); err != nil {
				return nil
			}

		case msg, ok := <-stdinCh:
			if !ok {
				return nil // stdin EOF
			}
			if msg.detach {
				conn.Write(protocol.Encode(protocol.TagDetach, nil))
				return nil
			}
			if _, err := conn.Write(protocol.Encode(protocol.TagInput, msg.data)); err != nil {
				return nil
			}

		case out, ok := <-outCh:
			if !ok {
				return nil // daemon hangup
			}
			if _, err := os.Stdout.Write(out); err != nil {
				return err
			}
		}
	}
}

// readStdin forwards keyboard chunks until EOF or the detach key.
func readStdin(ch chan<- stdinMsg) {
	buf := make([]byte, 4096)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if isDetachChunk(chunk) {
				ch <- stdinMsg{detach: true}
				return
			}
			ch <- stdinMsg{data: chunk}
		}
		if err != nil {
			close(ch)
			return
		}
	}
}

// readSocket delivers Output payloads; every other tag is ignored here.
func readSocket(conn net.Conn, ch chan<- []byte) {
	buf := protocol.NewBuffer()
	for {
		frame, ok, err := buf.Next()
		if err != nil {
			close(ch)
			return
		}
		if ok {
			if frame.Tag == protocol.TagOutput {
				ch <- append([]byte(nil), frame.Payload...)
			}
			continue
		}
		if _, err := buf.Fill(conn); err != nil {
			close(ch)
			return
		}
	}
}
