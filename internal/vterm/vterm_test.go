package vterm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackends(t *testing.T, cols, rows int) map[string]Terminal {
	t.Helper()
	out := make(map[string]Terminal)
	for _, name := range []string{BackendVT10x, BackendMidterm} {
		term, err := New(name, cols, rows, 0)
		require.NoError(t, err, name)
		out[name] = term
	}
	return out
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New("urxvt", 80, 24, 0)
	assert.Error(t, err)
}

func TestNewDefaultBackend(t *testing.T) {
	term, err := New("", 80, 24, 0)
	require.NoError(t, err)
	assert.IsType(t, &vt10xTerm{}, term)
}

func TestEmptyScreenSerializesNil(t *testing.T) {
	for name, term := range newBackends(t, 80, 24) {
		assert.Nil(t, term.Serialize(FormatPlain), "%s plain", name)
		assert.Nil(t, term.Serialize(FormatVT), "%s vt", name)
		assert.Nil(t, term.SerializeState(), "%s state", name)
	}
}

func TestPlainContainsFedText(t *testing.T) {
	for name, term := range newBackends(t, 80, 24) {
		term.Feed([]byte("$ echo hi\r\nhi\r\n"))
		got := string(term.Serialize(FormatPlain))
		assert.Contains(t, got, "$ echo hi", name)
		assert.Contains(t, got, "\nhi", name)
		// Trailing blank rows are trimmed.
		assert.False(t, strings.HasSuffix(got, "\n\n"), name)
	}
}

func TestSnapshotShape(t *testing.T) {
	for name, term := range newBackends(t, 80, 24) {
		term.Feed([]byte("hello"))
		snap := term.SerializeState()
		require.NotNil(t, snap, name)
		assert.True(t, bytes.HasPrefix(snap, []byte("\x1b[2J\x1b[H")),
			"%s snapshot must start with clear+home, got %q", name, snap[:12])
		// Ends with a cursor-position sequence.
		assert.Regexp(t, `\x1b\[\d+;\d+H$`, string(snap), name)
		assert.Contains(t, string(snap), "hello", name)
	}
}

func TestSnapshotCursorFollowsOutput(t *testing.T) {
	for name, term := range newBackends(t, 80, 24) {
		term.Feed([]byte("ab"))
		snap := string(term.SerializeState())
		// Cursor sits on row 1, column 3 after two glyphs.
		assert.True(t, strings.HasSuffix(snap, "\x1b[1;3H"), "%s: %q", name, snap[len(snap)-12:])
	}
}

func TestResizeKeepsServing(t *testing.T) {
	for name, term := range newBackends(t, 80, 24) {
		term.Feed([]byte("before resize"))
		term.Resize(100, 30)
		term.Feed([]byte(" after"))
		assert.NotNil(t, term.Serialize(FormatPlain), name)
	}
}

func TestHTMLSupport(t *testing.T) {
	backends := newBackends(t, 80, 24)
	for _, term := range backends {
		term.Feed([]byte("x < y"))
	}

	htmlOut := backends[BackendVT10x].Serialize(FormatHTML)
	require.NotNil(t, htmlOut)
	assert.Contains(t, string(htmlOut), "<pre>")
	assert.Contains(t, string(htmlOut), "x &lt; y")

	assert.Nil(t, backends[BackendMidterm].Serialize(FormatHTML),
		"midterm backend does not render html")
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatPlain, ParseFormat(0))
	assert.Equal(t, FormatVT, ParseFormat(1))
	assert.Equal(t, FormatHTML, ParseFormat(2))
	assert.Equal(t, FormatPlain, ParseFormat(9), "unknown bytes fall back to plain")
}

func TestColoredOutputRoundTrip(t *testing.T) {
	for name, term := range newBackends(t, 80, 24) {
		term.Feed([]byte("\x1b[31mred\x1b[0m plain"))
		snap := string(term.SerializeState())
		assert.Contains(t, snap, "red", name)
		assert.Contains(t, snap, "plain", name)
	}
}
