package client

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/zmxhq/zmx/internal/protocol"
	"github.com/zmxhq/zmx/internal/vterm"
)

// historyTimeout bounds the wait for the first History response frame.
const historyTimeout = 5 * time.Second

// ErrTimeout reports a supervisor request whose reply never arrived.
var ErrTimeout = errors.New("client: timed out waiting for reply")

// send opens a connection, writes one frame, and closes. Used for the
// fire-and-forget supervisor messages.
func send(path string, tag protocol.Tag, payload []byte) error {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return fmt.Errorf("connect %s: %w", path, err)
	}
	defer conn.Close()
	_, err = conn.Write(protocol.Encode(tag, payload))
	return err
}

// roundTrip sends one request frame and waits for a reply with the wanted
// tag, discarding interleaved Output frames.
func roundTrip(path string, tag protocol.Tag, payload []byte, want protocol.Tag, timeout time.Duration) (protocol.Frame, error) {
	conn, err := net.DialTimeout("unix", path, timeout)
	if err != nil {
		return protocol.Frame{}, fmt.Errorf("connect %s: %w", path, err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(timeout))
	if _, err := conn.Write(protocol.Encode(tag, payload)); err != nil {
		return protocol.Frame{}, err
	}

	buf := protocol.NewBuffer()
	for {
		frame, ok, err := buf.Next()
		if err != nil {
			return protocol.Frame{}, err
		}
		if ok {
			if frame.Tag != want {
				continue
			}
			return protocol.Frame{
				Tag:     frame.Tag,
				Payload: append([]byte(nil), frame.Payload...),
			}, nil
		}
		if _, err := buf.Fill(conn); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return protocol.Frame{}, err
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return protocol.Frame{}, ErrTimeout
			}
			return protocol.Frame{}, err
		}
	}
}

// DetachAll detaches every client of the session; the session keeps running.
func DetachAll(path string) error {
	return send(path, protocol.TagDetachAll, nil)
}

// Kill terminates the session.
func Kill(path string) error {
	return send(path, protocol.TagKill, nil)
}

// History fetches the session's current screen, serialized in the given
// format. Lines that have scrolled off the top are not included.
func History(path string, format vterm.Format) ([]byte, error) {
	frame, err := roundTrip(path, protocol.TagHistory, []byte{byte(format)},
		protocol.TagHistory, historyTimeout)
	if err != nil {
		return nil, err
	}
	return frame.Payload, nil
}

// Run injects a command into the session's PTY and waits for the Ack.
func Run(path string, cmdline []byte) error {
	_, err := roundTrip(path, protocol.TagRun, cmdline, protocol.TagAck, historyTimeout)
	return err
}
