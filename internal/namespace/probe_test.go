package namespace

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zmxhq/zmx/internal/protocol"
)

// serveInfo answers one probe on ln with a well-formed Info response.
func serveInfo(t *testing.T, ln net.Listener, info protocol.Info) {
	t.Helper()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := protocol.NewBuffer()
		for {
			frame, ok, err := buf.Next()
			if err != nil {
				return
			}
			if ok {
				if frame.Tag == protocol.TagInfo {
					conn.Write(protocol.Encode(protocol.TagInfo, info.Encode()))
				}
				return
			}
			if _, err := buf.Fill(conn); err != nil {
				return
			}
		}
	}()
}

func TestProbeLiveSession(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, EncodeName("sess/one"))

	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer ln.Close()
	serveInfo(t, ln, protocol.Info{Clients: 2, Pid: 999, Cmd: "vim", Cwd: "/tmp"})

	sess, conn, err := Probe(path)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "sess/one", sess.Name)
	assert.Equal(t, uint64(2), sess.Clients)
	assert.Equal(t, int32(999), sess.Pid)
	assert.Equal(t, "vim", sess.Cmd)
	assert.Equal(t, "/tmp", sess.Cwd)
}

func TestProbeMissingSocket(t *testing.T) {
	_, _, err := Probe(filepath.Join(t.TempDir(), "nothing"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProbeDeadSocketFile(t *testing.T) {
	// A socket file whose owner died: bind with the raw socket API and close
	// the fd without unlinking, leaving a connect-refusing socket entry.
	path := filepath.Join(t.TempDir(), "dead")
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	require.NoError(t, unix.Bind(fd, &unix.SockaddrUnix{Name: path}))
	require.NoError(t, unix.Close(fd))

	start := time.Now()
	_, _, err = Probe(path)
	assert.ErrorIs(t, err, ErrStale)
	assert.Less(t, time.Since(start), ProbeTimeout+500*time.Millisecond,
		"stale verdict must arrive within the probe timeout")
}

func TestProbeUnresponsivePeer(t *testing.T) {
	// Accepts but never replies: the probe must time out and declare stale.
	path := filepath.Join(t.TempDir(), "mute")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			defer conn.Close()
			time.Sleep(3 * time.Second)
		}
	}()

	_, _, err = Probe(path)
	assert.ErrorIs(t, err, ErrStale)
}

func TestProbeMalformedReply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbled")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			// Info tag with the wrong payload size.
			conn.Write(protocol.Encode(protocol.TagInfo, []byte("short")))
			conn.Close()
		}
	}()

	_, _, err = Probe(path)
	assert.ErrorIs(t, err, ErrStale)
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	t.Setenv("ZMX_DIR", root)
	group := "g"
	require.NoError(t, os.MkdirAll(filepath.Join(root, group), 0o700))

	// One live session.
	livePath := filepath.Join(root, group, EncodeName("alive"))
	ln, err := net.Listen("unix", livePath)
	require.NoError(t, err)
	defer ln.Close()
	serveInfo(t, ln, protocol.Info{Pid: 1234, Cmd: "sh"})

	// One stale socket file.
	stalePath := filepath.Join(root, group, EncodeName("stale"))
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	require.NoError(t, unix.Bind(fd, &unix.SockaddrUnix{Name: stalePath}))
	require.NoError(t, unix.Close(fd))

	// One plain file, which discovery must skip and leave alone.
	plainPath := filepath.Join(root, group, "notasocket")
	require.NoError(t, os.WriteFile(plainPath, nil, 0o600))

	sessions, err := Discover(group)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "alive", sessions[0].Name)

	// The stale socket was cleaned up opportunistically.
	_, statErr := os.Stat(stalePath)
	assert.True(t, os.IsNotExist(statErr), "stale socket should be unlinked")
	assert.FileExists(t, plainPath)
}

func TestDiscoverMissingGroupDir(t *testing.T) {
	t.Setenv("ZMX_DIR", t.TempDir())
	sessions, err := Discover("nonexistent")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestDiscoverBadGroup(t *testing.T) {
	_, err := Discover("../escape")
	assert.ErrorIs(t, err, ErrBadGroup)
}
