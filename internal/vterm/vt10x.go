package vterm

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/hinshun/vt10x"
)

// vt10xTerm is the full backend. It supports all three serialization formats.
type vt10xTerm struct {
	vt vt10x.Terminal
}

func newVT10x(cols, rows, maxScrollback int) *vt10xTerm {
	_ = maxScrollback // vt10x keeps screen state only
	return &vt10xTerm{vt: vt10x.New(vt10x.WithSize(cols, rows))}
}

func (t *vt10xTerm) Resize(cols, rows int) {
	t.vt.Resize(cols, rows)
}

func (t *vt10xTerm) Feed(p []byte) {
	t.vt.Write(p)
}

func (t *vt10xTerm) SerializeState() []byte {
	return t.Serialize(FormatVT)
}

func (t *vt10xTerm) Serialize(f Format) []byte {
	switch f {
	case FormatPlain:
		return t.plain()
	case FormatVT:
		return t.snapshot()
	case FormatHTML:
		return t.renderHTML()
	}
	return nil
}

// plain returns the screen as trimmed UTF-8 text: trailing spaces stripped
// per line, trailing blank lines dropped.
func (t *vt10xTerm) plain() []byte {
	cols, rows := t.vt.Size()
	lines := make([]string, 0, rows)
	for row := 0; row < rows; row++ {
		var line strings.Builder
		for col := 0; col < cols; col++ {
			ch := t.vt.Cell(col, row).Char
			if ch == 0 {
				ch = ' '
			}
			line.WriteRune(ch)
		}
		lines = append(lines, strings.TrimRight(line.String(), " "))
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}

// snapshot emits an escape stream that reproduces the screen on a freshly
// reset terminal: clear, home, cell contents with minimized SGR changes, and
// the cursor position last. The shell's own redraw restores tab stops; the
// host terminal owns the palette.
func (t *vt10xTerm) snapshot() []byte {
	if t.plain() == nil {
		return nil
	}

	var buf bytes.Buffer
	cols, rows := t.vt.Size()

	buf.WriteString("\x1b[2J\x1b[H")

	lastFG, lastBG := vt10x.DefaultFG, vt10x.DefaultBG
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			cell := t.vt.Cell(col, row)
			if cell.FG != lastFG || cell.BG != lastBG {
				buf.WriteString("\x1b[0m")
				if cell.FG != vt10x.DefaultFG && cell.FG < 256 {
					fmt.Fprintf(&buf, "\x1b[38;5;%dm", cell.FG)
				}
				if cell.BG != vt10x.DefaultBG && cell.BG < 256 {
					fmt.Fprintf(&buf, "\x1b[48;5;%dm", cell.BG)
				}
				lastFG, lastBG = cell.FG, cell.BG
			}
			if cell.Char == 0 {
				buf.WriteByte(' ')
			} else {
				buf.WriteRune(cell.Char)
			}
		}
		if row < rows-1 {
			buf.WriteString("\r\n")
		}
	}
	buf.WriteString("\x1b[0m")

	cursor := t.vt.Cursor()
	fmt.Fprintf(&buf, "\x1b[%d;%dH", cursor.Y+1, cursor.X+1)
	return buf.Bytes()
}

func (t *vt10xTerm) renderHTML() []byte {
	if t.plain() == nil {
		return nil
	}

	var buf bytes.Buffer
	cols, rows := t.vt.Size()

	buf.WriteString("<!DOCTYPE html>\n<html><body style=\"background:#000;color:#ccc\"><pre>\n")
	for row := 0; row < rows; row++ {
		open := false
		lastFG, lastBG := vt10x.DefaultFG, vt10x.DefaultBG
		for col := 0; col < cols; col++ {
			cell := t.vt.Cell(col, row)
			if cell.FG != lastFG || cell.BG != lastBG {
				if open {
					buf.WriteString("</span>")
					open = false
				}
				var styles []string
				if cell.FG != vt10x.DefaultFG && cell.FG < 256 {
					styles = append(styles, fmt.Sprintf("color:%s", ansiCSS(cell.FG)))
				}
				if cell.BG != vt10x.DefaultBG && cell.BG < 256 {
					styles = append(styles, fmt.Sprintf("background:%s", ansiCSS(cell.BG)))
				}
				if len(styles) > 0 {
					fmt.Fprintf(&buf, "<span style=%q>", strings.Join(styles, ";"))
					open = true
				}
				lastFG, lastBG = cell.FG, cell.BG
			}
			ch := cell.Char
			if ch == 0 {
				ch = ' '
			}
			buf.WriteString(html.EscapeString(string(ch)))
		}
		if open {
			buf.WriteString("</span>")
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("</pre></body></html>\n")
	return buf.Bytes()
}

// ansiCSS maps a 256-color index to a CSS color.
func ansiCSS(c vt10x.Color) string {
	base := [16]string{
		"#000000", "#cd0000", "#00cd00", "#cdcd00",
		"#0000ee", "#cd00cd", "#00cdcd", "#e5e5e5",
		"#7f7f7f", "#ff0000", "#00ff00", "#ffff00",
		"#5c5cff", "#ff00ff", "#00ffff", "#ffffff",
	}
	if c < 16 {
		return base[c]
	}
	if c < 232 {
		n := int(c) - 16
		levels := [6]int{0, 95, 135, 175, 215, 255}
		return fmt.Sprintf("#%02x%02x%02x", levels[n/36], levels[n/6%6], levels[n%6])
	}
	v := 8 + (int(c)-232)*10
	return fmt.Sprintf("#%02x%02x%02x", v, v, v)
}
