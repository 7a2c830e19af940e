package client

import "golang.org/x/sys/unix"

// resetModes is written to the terminal after detaching: mouse reporting
// (1000/1002/1003/1006), bracketed paste (2004), focus events (1004), and the
// alternate screen (1049) off, cursor visible. The screen itself is left
// untouched so a later snapshot replay starts from known contents.
const resetModes = "\x1b[?1000l\x1b[?1002l\x1b[?1003l\x1b[?1006l" +
	"\x1b[?2004l\x1b[?1004l\x1b[?1049l\x1b[?25h"

// termState remembers the terminal settings captured before raw mode.
type termState struct {
	fd    int
	saved unix.Termios
}

// makeRaw puts the controlling terminal into raw mode: no canonical
// processing, echo, signal generation, or flow control, byte-at-a-time reads
// (VMIN=1, VTIME=0). With ISIG and IEXTEN off, Ctrl+\ arrives as a plain
// 0x1C byte (the detach key) and the literal-next key is inert.
func makeRaw(fd int) (*termState, error) {
	tio, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, err
	}
	state := &termState{fd: fd, saved: *tio}

	raw := *tio
	raw.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	raw.Oflag &^= unix.OPOST
	raw.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	raw.Cflag &^= unix.CSIZE | unix.PARENB
	raw.Cflag |= unix.CS8
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return nil, err
	}
	return state, nil
}

// restore reinstates the saved settings, discarding unread input (TCSAFLUSH
// semantics). It does not write resetModes; Attach does that after restore.
func (s *termState) restore() {
	unix.IoctlSetTermios(s.fd, unix.TCSETSF, &s.saved)
}
