// Package protocol implements the framed binary protocol spoken between
// zmx clients and session daemons over Unix-domain sockets.
//
// A frame is a one-byte tag, a four-byte little-endian payload length, and
// the payload bytes. The codec is stateless; per-connection buffering lives
// in Buffer.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Tag identifies the kind of a frame.
type Tag byte

const (
	// TagInput carries raw keystroke bytes, client to daemon.
	TagInput Tag = iota + 1
	// TagOutput carries raw PTY bytes (or a screen snapshot), daemon to client.
	TagOutput
	// TagInit announces a new client and its window size.
	TagInit
	// TagResize announces a window-size change.
	TagResize
	// TagDetach detaches the sending client.
	TagDetach
	// TagDetachAll detaches every client; the session keeps running.
	TagDetachAll
	// TagKill terminates the session.
	TagKill
	// TagInfo requests (empty payload) or carries (fixed struct) session info.
	TagInfo
	// TagHistory requests (one format byte) or carries the serialized screen.
	TagHistory
	// TagRun injects a command into the PTY; acknowledged with TagAck.
	TagRun
	// TagAck acknowledges a TagRun.
	TagAck

	tagMax = TagAck
)

func (t Tag) String() string {
	switch t {
	case TagInput:
		return "input"
	case TagOutput:
		return "output"
	case TagInit:
		return "init"
	case TagResize:
		return "resize"
	case TagDetach:
		return "detach"
	case TagDetachAll:
		return "detach-all"
	case TagKill:
		return "kill"
	case TagInfo:
		return "info"
	case TagHistory:
		return "history"
	case TagRun:
		return "run"
	case TagAck:
		return "ack"
	}
	return fmt.Sprintf("tag(%d)", byte(t))
}

// HeaderSize is the fixed size of a frame header (tag + length).
const HeaderSize = 5

// MaxPayload bounds the declared payload length of a single frame. Frames
// claiming more are rejected before any allocation happens.
const MaxPayload = 16 << 20

var (
	// ErrBadTag reports a frame whose tag byte is outside the known range.
	ErrBadTag = errors.New("protocol: unknown frame tag")
	// ErrFrameTooLarge reports a declared payload length above MaxPayload.
	ErrFrameTooLarge = errors.New("protocol: frame exceeds maximum payload size")
	// ErrShortPayload reports a fixed-size payload of the wrong length.
	ErrShortPayload = errors.New("protocol: payload size wrong for tag")
)

// Frame is one decoded protocol unit. Payload is a view into the connection
// buffer it was parsed from and is only valid until the buffer's next Fill.
type Frame struct {
	Tag     Tag
	Payload []byte
}

// Encode returns a freshly allocated encoded frame.
func Encode(tag Tag, payload []byte) []byte {
	return Append(nil, tag, payload)
}

// Append encodes a frame onto dst and returns the extended slice.
func Append(dst []byte, tag Tag, payload []byte) []byte {
	dst = append(dst, byte(tag))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...)
}

// Winsize is the payload of Init and Resize frames.
type Winsize struct {
	Rows uint16
	Cols uint16
}

// Encode returns the four-byte wire form.
func (w Winsize) Encode() []byte {
	p := make([]byte, 4)
	binary.LittleEndian.PutUint16(p[0:], w.Rows)
	binary.LittleEndian.PutUint16(p[2:], w.Cols)
	return p
}

// ParseWinsize decodes an Init/Resize payload.
func ParseWinsize(p []byte) (Winsize, error) {
	if len(p) != 4 {
		return Winsize{}, ErrShortPayload
	}
	return Winsize{
		Rows: binary.LittleEndian.Uint16(p[0:]),
		Cols: binary.LittleEndian.Uint16(p[2:]),
	}, nil
}

// Limits for the fixed-size Info response struct.
const (
	MaxCmd = 256
	MaxCwd = 512

	// InfoSize is the exact payload size of an Info response:
	// clients u64, pid i32, cmd_len u16, cwd_len u16, cmd, cwd.
	InfoSize = 8 + 4 + 2 + 2 + MaxCmd + MaxCwd
)

// Info is the decoded form of an Info response payload.
type Info struct {
	Clients uint64
	Pid     int32
	Cmd     string
	Cwd     string
}

// Encode returns the fixed-size wire form. Cmd and Cwd are truncated to
// their field widths.
func (i Info) Encode() []byte {
	cmd := i.Cmd
	if len(cmd) > MaxCmd {
		cmd = cmd[:MaxCmd]
	}
	cwd := i.Cwd
	if len(cwd) > MaxCwd {
		cwd = cwd[:MaxCwd]
	}
	p := make([]byte, InfoSize)
	binary.LittleEndian.PutUint64(p[0:], i.Clients)
	binary.LittleEndian.PutUint32(p[8:], uint32(i.Pid))
	binary.LittleEndian.PutUint16(p[12:], uint16(len(cmd)))
	binary.LittleEndian.PutUint16(p[14:], uint16(len(cwd)))
	copy(p[16:16+MaxCmd], cmd)
	copy(p[16+MaxCmd:], cwd)
	return p
}

// ParseInfo decodes an Info response payload.
func ParseInfo(p []byte) (Info, error) {
	if len(p) != InfoSize {
		return Info{}, ErrShortPayload
	}
	cmdLen := binary.LittleEndian.Uint16(p[12:])
	cwdLen := binary.LittleEndian.Uint16(p[14:])
	if cmdLen > MaxCmd || cwdLen > MaxCwd {
		return Info{}, ErrShortPayload
	}
	return Info{
		Clients: binary.LittleEndian.Uint64(p[0:]),
		Pid:     int32(binary.LittleEndian.Uint32(p[8:])),
		Cmd:     string(p[16 : 16+cmdLen]),
		Cwd:     string(p[16+MaxCmd : 16+MaxCmd+int(cwdLen)]),
	}, nil
}
