package daemon

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// killGrace is how long the shell's process group gets between SIGHUP and
// SIGKILL during teardown.
const killGrace = 500 * time.Millisecond

// spawnShell starts the session's command (or a login shell) under a fresh
// PTY sized to the creating client's window. The child runs in its own
// session, so its process group can be signalled as -pid.
func spawnShell(cfg Config) (*os.File, *exec.Cmd, error) {
	var cmd *exec.Cmd
	if len(cfg.Command) > 0 {
		cmd = exec.Command(cfg.Command[0], cfg.Command[1:]...)
	} else {
		shell := os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/sh"
		}
		cmd = exec.Command(shell)
		// Login-shell convention: argv[0] is "-basename".
		cmd.Args = []string{"-" + filepath.Base(shell)}
	}
	cmd.Dir = cfg.Dir
	cmd.Env = append(os.Environ(),
		"ZMX_SESSION="+cfg.Name,
		"ZMX_GROUP="+cfg.Group,
	)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(cfg.Rows),
		Cols: uint16(cfg.Cols),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("spawn shell: %w", err)
	}
	return ptmx, cmd, nil
}

// setWinsize pushes a new window size to the PTY. Failure is logged, not
// fatal: the terminal model is resized regardless.
func setWinsize(ptmx *os.File, rows, cols uint16) {
	if ptmx == nil {
		return
	}
	if err := pty.Setsize(ptmx, &pty.Winsize{Rows: rows, Cols: cols}); err != nil {
		log.Printf("[pty] setsize %dx%d: %v", cols, rows, err)
	}
}

// terminateShell tears down the shell's process group: SIGHUP first for a
// clean exit, SIGKILL after the grace period, then reap.
func terminateShell(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	pgid := cmd.Process.Pid
	if err := unix.Kill(-pgid, unix.SIGHUP); err != nil && err != unix.ESRCH {
		log.Printf("[pty] SIGHUP group %d: %v", pgid, err)
	}
	time.Sleep(killGrace)
	if err := unix.Kill(-pgid, unix.SIGKILL); err != nil && err != unix.ESRCH {
		log.Printf("[pty] SIGKILL group %d: %v", pgid, err)
	}
	cmd.Wait()
}
