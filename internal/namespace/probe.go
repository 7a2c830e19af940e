package namespace

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/zmxhq/zmx/internal/protocol"
)

// ProbeTimeout bounds the whole liveness probe: connect, request, response.
const ProbeTimeout = time.Second

var (
	// ErrStale reports a socket file whose owning daemon is gone or not
	// speaking the protocol. The caller may unlink it.
	ErrStale = errors.New("namespace: stale session socket")
	// ErrNotFound reports a session that has no socket file at all.
	ErrNotFound = errors.New("namespace: no such session")
)

// Session describes one live, probed session.
type Session struct {
	Name    string
	Path    string
	Clients uint64
	Pid     int32
	Cmd     string
	Cwd     string
}

// Probe checks whether the socket at path belongs to a live daemon: connect
// with a short timeout, send an empty Info request, and require a well-formed
// Info response before the deadline. On success the still-open connection is
// returned along with the session attributes; the caller may keep using it or
// close it. A path with no file behind it yields ErrNotFound; every other
// failure mode maps to ErrStale.
func Probe(path string) (*Session, net.Conn, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	deadline := time.Now().Add(ProbeTimeout)
	conn, err := net.DialTimeout("unix", path, ProbeTimeout)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrStale, err)
	}
	conn.SetDeadline(deadline)

	if _, err := conn.Write(protocol.Encode(protocol.TagInfo, nil)); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("%w: %v", ErrStale, err)
	}

	buf := protocol.NewBuffer()
	for {
		frame, ok, err := buf.Next()
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("%w: %v", ErrStale, err)
		}
		if ok {
			if frame.Tag != protocol.TagInfo {
				conn.Close()
				return nil, nil, fmt.Errorf("%w: unexpected %s reply", ErrStale, frame.Tag)
			}
			info, err := protocol.ParseInfo(frame.Payload)
			if err != nil {
				conn.Close()
				return nil, nil, fmt.Errorf("%w: %v", ErrStale, err)
			}
			conn.SetDeadline(time.Time{})
			name, _ := DecodeName(filepath.Base(path))
			return &Session{
				Name:    name,
				Path:    path,
				Clients: info.Clients,
				Pid:     info.Pid,
				Cmd:     info.Cmd,
				Cwd:     info.Cwd,
			}, conn, nil
		}
		if _, err := buf.Fill(conn); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("%w: %v", ErrStale, err)
		}
	}
}

// ProbeSession probes and immediately closes the connection.
func ProbeSession(path string) (*Session, error) {
	sess, conn, err := Probe(path)
	if err != nil {
		return nil, err
	}
	conn.Close()
	return sess, nil
}

// CleanStale unlinks a socket file that failed its probe. Unlinking is
// race-tolerant: another process may have removed it already.
func CleanStale(path string) {
	_ = os.Remove(path)
}

// Discover iterates a group directory, probes every socket-typed entry, and
// returns the live sessions. Entries that fail the probe are unlinked
// opportunistically; non-socket entries are skipped.
func Discover(group string) ([]*Session, error) {
	if err := CheckGroup(group); err != nil {
		return nil, err
	}
	dir := filepath.Join(SocketRoot(), group)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var sessions []*Session
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		var st unix.Stat_t
		if err := unix.Stat(path, &st); err != nil {
			continue
		}
		if st.Mode&unix.S_IFMT != unix.S_IFSOCK {
			continue
		}
		sess, err := ProbeSession(path)
		if err != nil {
			if errors.Is(err, ErrStale) {
				CleanStale(path)
			}
			continue
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}
