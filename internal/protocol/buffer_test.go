package protocol

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferSplitFrame(t *testing.T) {
	payload := []byte("split across two reads")
	raw := Encode(TagOutput, payload)

	buf := NewBuffer()

	// First half: not even a full header.
	_, err := buf.Fill(bytes.NewReader(raw[:3]))
	require.NoError(t, err)
	_, ok, err := buf.Next()
	require.NoError(t, err)
	assert.False(t, ok, "incomplete header must not produce a frame")

	// Rest of the frame.
	_, err = buf.Fill(bytes.NewReader(raw[3:]))
	require.NoError(t, err)
	f, ok, err := buf.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, TagOutput, f.Tag)
	assert.Equal(t, payload, append([]byte(nil), f.Payload...))
}

func TestBufferMultipleFramesOneFill(t *testing.T) {
	var raw []byte
	raw = Append(raw, TagInput, []byte("a"))
	raw = Append(raw, TagResize, Winsize{Rows: 24, Cols: 80}.Encode())
	raw = Append(raw, TagDetach, nil)

	buf := NewBuffer()
	_, err := buf.Fill(bytes.NewReader(raw))
	require.NoError(t, err)

	var tags []Tag
	for {
		f, ok, err := buf.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		tags = append(tags, f.Tag)
	}
	assert.Equal(t, []Tag{TagInput, TagResize, TagDetach}, tags)
	assert.Zero(t, buf.Len())
}

func TestBufferRejectsBadTag(t *testing.T) {
	buf := NewBuffer()
	_, err := buf.Fill(bytes.NewReader([]byte{0x7f, 0, 0, 0, 0}))
	require.NoError(t, err)
	_, _, err = buf.Next()
	assert.ErrorIs(t, err, ErrBadTag)
}

func TestBufferRejectsZeroTag(t *testing.T) {
	buf := NewBuffer()
	_, err := buf.Fill(bytes.NewReader([]byte{0, 0, 0, 0, 0}))
	require.NoError(t, err)
	_, _, err = buf.Next()
	assert.ErrorIs(t, err, ErrBadTag)
}

func TestBufferRejectsGiantFrame(t *testing.T) {
	header := []byte{byte(TagOutput), 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(header[1:], MaxPayload+1)

	buf := NewBuffer()
	_, err := buf.Fill(bytes.NewReader(header))
	require.NoError(t, err)
	_, _, err = buf.Next()
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestBufferGrowsForLargePayload(t *testing.T) {
	payload := bytes.Repeat([]byte("z"), 64*1024)
	raw := Encode(TagOutput, payload)

	buf := NewBuffer()
	r := bytes.NewReader(raw)
	for {
		f, ok, err := buf.Next()
		require.NoError(t, err)
		if ok {
			assert.Equal(t, len(payload), len(f.Payload))
			return
		}
		if _, err := buf.Fill(r); err != nil {
			t.Fatalf("Fill: %v", err)
		}
	}
}

func TestBufferCompaction(t *testing.T) {
	buf := NewBuffer()

	// Interleave fills and drains; consumed bytes must never accumulate
	// without bound.
	frame := Encode(TagInput, bytes.Repeat([]byte("k"), 100))
	for i := 0; i < 200; i++ {
		_, err := buf.Fill(bytes.NewReader(frame))
		require.NoError(t, err)
		_, ok, err := buf.Next()
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Zero(t, buf.Len())
	assert.Less(t, cap(buf.data), 64*1024, "drained buffer should not keep growing")
}
