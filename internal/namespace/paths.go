// Package namespace maps session names to filesystem paths and probes the
// sockets behind them. A session group is a directory under the socket root;
// each live session is one Unix-domain socket entry in it.
package namespace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultGroup is used when $ZMX_GROUP is unset.
const DefaultGroup = "default"

var (
	// ErrBadGroup reports an empty or path-escaping group name.
	ErrBadGroup = errors.New("namespace: group must be non-empty and contain no '/' or '..'")
	// ErrBadEncoding reports a malformed percent escape in an encoded name.
	ErrBadEncoding = errors.New("namespace: malformed percent escape")
)

// SocketRoot resolves the directory holding session-group directories:
// $ZMX_DIR, else $XDG_STATE_HOME/zmx, else $HOME/.local/state/zmx.
func SocketRoot() string {
	if dir := os.Getenv("ZMX_DIR"); dir != "" {
		return dir
	}
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "zmx")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "state", "zmx")
}

// LogRoot resolves the directory holding session logs:
// $ZMX_LOG_DIR, else $XDG_LOG_HOME/zmx, else $HOME/.local/logs/zmx.
func LogRoot() string {
	if dir := os.Getenv("ZMX_LOG_DIR"); dir != "" {
		return dir
	}
	if dir := os.Getenv("XDG_LOG_HOME"); dir != "" {
		return filepath.Join(dir, "zmx")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "logs", "zmx")
}

// Group resolves the session group: $ZMX_GROUP, else "default".
func Group() string {
	if g := os.Getenv("ZMX_GROUP"); g != "" {
		return g
	}
	return DefaultGroup
}

// CheckGroup validates a group name for filesystem use.
func CheckGroup(group string) error {
	if group == "" || strings.Contains(group, "/") || strings.Contains(group, "..") {
		return fmt.Errorf("%w: %q", ErrBadGroup, group)
	}
	return nil
}

// EncodeName percent-encodes exactly the bytes '/', '\', '%', and NUL, so the
// result is a single path element and decodes unambiguously. Everything else
// passes through, so most names read back verbatim from a directory listing.
func EncodeName(name string) string {
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		switch c := name[i]; c {
		case '/', '\\', '%', 0:
			fmt.Fprintf(&b, "%%%02X", c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// DecodeName reverses EncodeName.
func DecodeName(encoded string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(encoded); i++ {
		c := encoded[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+2 >= len(encoded) {
			return "", ErrBadEncoding
		}
		hi, ok1 := unhex(encoded[i+1])
		lo, ok2 := unhex(encoded[i+2])
		if !ok1 || !ok2 {
			return "", ErrBadEncoding
		}
		b.WriteByte(hi<<4 | lo)
		i += 2
	}
	return b.String(), nil
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}

// SocketPath returns {socket_root}/{group}/{encoded_name}.
func SocketPath(group, name string) string {
	return filepath.Join(SocketRoot(), group, EncodeName(name))
}

// LogPath returns {log_root}/{group}/{encoded_name}.log.
func LogPath(group, name string) string {
	return filepath.Join(LogRoot(), group, EncodeName(name)+".log")
}

// GlobalLogPath returns the shared {log_root}/zmx.log.
func GlobalLogPath() string {
	return filepath.Join(LogRoot(), "zmx.log")
}

// EnsureDirs creates the socket and log directories for a group.
func EnsureDirs(group string) error {
	if err := CheckGroup(group); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(SocketRoot(), group), 0o700); err != nil {
		return err
	}
	return os.MkdirAll(filepath.Join(LogRoot(), group), 0o700)
}
