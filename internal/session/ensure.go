// Package session implements create-or-connect: deciding whether a named
// session is already live, and spawning a detached daemon process for it
// when it is not.
package session

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/zmxhq/zmx/internal/namespace"
)

var (
	// ErrSpawnTimeout reports a daemon that never brought its socket up.
	ErrSpawnTimeout = errors.New("session: daemon did not come up in time")
	// ErrAlreadyExists reports a fork target that is already live.
	ErrAlreadyExists = errors.New("session: session already exists")
)

// spawnWait bounds how long Ensure waits for a freshly spawned daemon's
// socket to accept its first probe.
const spawnWait = 5 * time.Second

// Options carries the creation parameters for a new session.
type Options struct {
	Command []string // empty means login shell
	Dir     string   // empty means inherit the caller's cwd
	Cols    int
	Rows    int
}

// Ensure makes the named session exist. If a live daemon answers the probe
// the caller should connect as a client (created=false). Otherwise any stale
// socket is unlinked and a detached daemon is spawned by re-executing this
// binary with the hidden daemon entry point; Ensure returns once the new
// socket answers a probe.
func Ensure(group, name string, opts Options) (created bool, err error) {
	if err := namespace.EnsureDirs(group); err != nil {
		return false, err
	}

	path := namespace.SocketPath(group, name)
	if _, err := namespace.ProbeSession(path); err == nil {
		return false, nil
	} else if errors.Is(err, namespace.ErrStale) {
		namespace.CleanStale(path)
	}

	if err := spawnDaemon(group, name, opts); err != nil {
		return false, err
	}

	deadline := time.Now().Add(spawnWait)
	for time.Now().Before(deadline) {
		if _, err := namespace.ProbeSession(path); err == nil {
			return true, nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return false, fmt.Errorf("%w: %s", ErrSpawnTimeout, name)
}

// spawnDaemon re-executes the zmx binary as a detached session daemon. The
// child runs in its own session (no controlling terminal) with stdio pointed
// at the global log; it re-opens the per-session log itself.
func spawnDaemon(group, name string, opts Options) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	args := []string{"__daemon", name,
		"--group", group,
		"--cols", strconv.Itoa(opts.Cols),
		"--rows", strconv.Itoa(opts.Rows),
	}
	if opts.Dir != "" {
		args = append(args, "--dir", opts.Dir)
	}
	if len(opts.Command) > 0 {
		args = append(args, "--")
		args = append(args, opts.Command...)
	}

	logFile, err := os.OpenFile(namespace.GlobalLogPath(),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer logFile.Close()

	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer devnull.Close()

	cmd := exec.Command(exe, args...)
	cmd.Stdin = devnull
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn daemon: %w", err)
	}
	// Detached: the daemon outlives us, and init reaps it. Release so the
	// exec.Cmd does not expect a Wait.
	return cmd.Process.Release()
}
