// Package vterm provides the in-memory terminal model the daemon feeds with
// PTY output, plus serializers that reproduce the live screen for newly
// attached clients and for history queries.
//
// Two interchangeable backends satisfy Terminal: a full emulator built on
// hinshun/vt10x (the default) and a thinner one built on vito/midterm. The
// backend is chosen at daemon start; dispatch goes through the interface.
package vterm

import "fmt"

// Format selects a serialization flavor. The byte values are wire values
// carried in History request payloads.
type Format byte

const (
	// FormatPlain is trimmed UTF-8 text.
	FormatPlain Format = 0
	// FormatVT is a self-contained escape stream that reproduces the screen
	// on a freshly reset terminal.
	FormatVT Format = 1
	// FormatHTML is a standalone HTML rendering. Optional per backend.
	FormatHTML Format = 2
)

// ParseFormat maps a wire byte to a Format; unknown bytes fall back to plain.
func ParseFormat(b byte) Format {
	switch Format(b) {
	case FormatVT, FormatHTML:
		return Format(b)
	}
	return FormatPlain
}

// Terminal is the daemon's model of everything the PTY has written. It is fed
// every PTY byte in order, exactly once, and never client input.
type Terminal interface {
	// Resize reflows the model to the new dimensions; may move the cursor.
	Resize(cols, rows int)
	// Feed appends PTY output to the state machine.
	Feed(p []byte)
	// Serialize renders the current state in the given format. It returns
	// nil when the screen is empty or the format is unsupported.
	Serialize(f Format) []byte
	// SerializeState is the snapshot used on re-attach: the VT form with the
	// cursor included.
	SerializeState() []byte
}

// Backend names accepted by New and $ZMX_BACKEND.
const (
	BackendVT10x   = "vt10x"
	BackendMidterm = "midterm"
)

// New creates a Terminal with the named backend. An empty name selects the
// default vt10x backend.
func New(backend string, cols, rows, maxScrollback int) (Terminal, error) {
	switch backend {
	case "", BackendVT10x:
		return newVT10x(cols, rows, maxScrollback), nil
	case BackendMidterm:
		return newMidterm(cols, rows, maxScrollback), nil
	}
	return nil, fmt.Errorf("vterm: unknown backend %q", backend)
}
