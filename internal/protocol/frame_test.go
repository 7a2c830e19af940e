package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		tag     Tag
		payload []byte
	}{
		{"empty detach", TagDetach, nil},
		{"input bytes", TagInput, []byte("ls -la\r")},
		{"output with escapes", TagOutput, []byte("\x1b[2J\x1b[Hhello")},
		{"binary payload", TagRun, []byte{0x00, 0xff, 0x1c, 0x7f}},
		{"single byte history request", TagHistory, []byte{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := NewBuffer()
			_, err := buf.Fill(bytes.NewReader(Encode(tt.tag, tt.payload)))
			require.NoError(t, err)

			f, ok, err := buf.Next()
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.tag, f.Tag)
			assert.Equal(t, tt.payload, append([]byte(nil), f.Payload...))

			_, ok, err = buf.Next()
			require.NoError(t, err)
			assert.False(t, ok, "buffer should be drained")
		})
	}
}

func TestEncodeHeader(t *testing.T) {
	raw := Encode(TagInput, []byte("ab"))
	if raw[0] != byte(TagInput) {
		t.Errorf("tag byte = %d, want %d", raw[0], TagInput)
	}
	// Length is little-endian.
	if raw[1] != 2 || raw[2] != 0 || raw[3] != 0 || raw[4] != 0 {
		t.Errorf("length bytes = %v, want [2 0 0 0]", raw[1:5])
	}
	if len(raw) != HeaderSize+2 {
		t.Errorf("frame length = %d, want %d", len(raw), HeaderSize+2)
	}
}

func TestWinsizeRoundTrip(t *testing.T) {
	w := Winsize{Rows: 48, Cols: 167}
	got, err := ParseWinsize(w.Encode())
	require.NoError(t, err)
	assert.Equal(t, w, got)
}

func TestParseWinsizeWrongSize(t *testing.T) {
	if _, err := ParseWinsize([]byte{1, 2, 3}); err != ErrShortPayload {
		t.Errorf("err = %v, want ErrShortPayload", err)
	}
}

func TestInfoRoundTrip(t *testing.T) {
	in := Info{Clients: 3, Pid: 4242, Cmd: "htop --tree", Cwd: "/home/user/src"}
	p := in.Encode()
	require.Len(t, p, InfoSize)

	got, err := ParseInfo(p)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestInfoTruncatesLongFields(t *testing.T) {
	in := Info{Cmd: string(bytes.Repeat([]byte("x"), MaxCmd+50))}
	got, err := ParseInfo(in.Encode())
	require.NoError(t, err)
	assert.Len(t, got.Cmd, MaxCmd)
}

func TestParseInfoWrongSize(t *testing.T) {
	if _, err := ParseInfo(make([]byte, InfoSize-1)); err != ErrShortPayload {
		t.Errorf("err = %v, want ErrShortPayload", err)
	}
}

func TestTagString(t *testing.T) {
	if TagDetachAll.String() != "detach-all" {
		t.Errorf("String() = %q", TagDetachAll.String())
	}
	if Tag(200).String() != "tag(200)" {
		t.Errorf("String() = %q", Tag(200).String())
	}
}
