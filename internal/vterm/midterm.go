package vterm

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/vito/midterm"
)

// midtermTerm is the thin backend. It serializes plain text and VT streams;
// HTML is unsupported and returns nil.
type midtermTerm struct {
	vt *midterm.Terminal
}

func newMidterm(cols, rows, maxScrollback int) *midtermTerm {
	_ = maxScrollback
	return &midtermTerm{vt: midterm.NewTerminal(rows, cols)}
}

func (t *midtermTerm) Resize(cols, rows int) {
	t.vt.Resize(rows, cols)
}

func (t *midtermTerm) Feed(p []byte) {
	t.vt.Write(p)
}

func (t *midtermTerm) SerializeState() []byte {
	return t.Serialize(FormatVT)
}

func (t *midtermTerm) Serialize(f Format) []byte {
	switch f {
	case FormatPlain:
		return t.plain()
	case FormatVT:
		return t.snapshot()
	}
	return nil
}

func (t *midtermTerm) plain() []byte {
	lines := make([]string, 0, t.vt.Height)
	for row := 0; row < t.vt.Height && row < len(t.vt.Content); row++ {
		lines = append(lines, strings.TrimRight(string(t.vt.Content[row]), " "))
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}

func (t *midtermTerm) snapshot() []byte {
	if t.plain() == nil {
		return nil
	}

	var buf bytes.Buffer
	buf.WriteString("\x1b[2J\x1b[H")
	for row := 0; row < t.vt.Height; row++ {
		if row > 0 {
			buf.WriteString("\r\n")
		}
		t.renderLine(&buf, row)
	}
	buf.WriteString("\x1b[0m")
	fmt.Fprintf(&buf, "\x1b[%d;%dH", t.vt.Cursor.Y+1, t.vt.Cursor.X+1)
	return buf.Bytes()
}

// renderLine writes one row with an SGR reset between format regions so
// attributes from one region never bleed into the next.
func (t *midtermTerm) renderLine(buf *bytes.Buffer, row int) {
	if row >= len(t.vt.Content) {
		return
	}
	line := t.vt.Content[row]
	var pos int
	var lastFormat midterm.Format
	for region := range t.vt.Format.Regions(row) {
		f := region.F
		if f != lastFormat {
			buf.WriteString("\x1b[0m")
			buf.WriteString(f.Render())
			lastFormat = f
		}
		end := pos + region.Size

		if pos < len(line) {
			contentEnd := end
			if contentEnd > len(line) {
				contentEnd = len(line)
			}
			buf.WriteString(string(line[pos:contentEnd]))
		}

		// Pad cells beyond the content slice so erase-to-end background
		// colors survive the round trip.
		padStart := len(line)
		if padStart < pos {
			padStart = pos
		}
		if padStart < end {
			buf.WriteString(strings.Repeat(" ", end-padStart))
		}

		pos = end
	}
}
