package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zmxhq/zmx/internal/namespace"
)

// maxForkSuffix bounds the auto-generated fork-name search.
const maxForkSuffix = 1000

// Fork creates a new session inheriting a live source session's command and
// working directory. When target is empty, the smallest free "{source}-{N}"
// is used. The new session's name is returned; the caller does not attach.
func Fork(group, source, target string, cols, rows int) (string, error) {
	src, err := namespace.ProbeSession(namespace.SocketPath(group, source))
	if err != nil {
		return "", err
	}

	if target == "" {
		target, err = nextForkName(source, func(name string) bool {
			_, probeErr := namespace.ProbeSession(namespace.SocketPath(group, name))
			return probeErr == nil
		})
		if err != nil {
			return "", err
		}
	} else if _, err := namespace.ProbeSession(namespace.SocketPath(group, target)); err == nil {
		return "", fmt.Errorf("%w: %s", ErrAlreadyExists, target)
	}

	var command []string
	if src.Cmd != "" {
		command = strings.Fields(src.Cmd)
	}
	_, err = Ensure(group, target, Options{
		Command: command,
		Dir:     src.Cwd,
		Cols:    cols,
		Rows:    rows,
	})
	if err != nil {
		return "", err
	}
	return target, nil
}

// nextForkName finds the smallest "{source}-{N}" the taken predicate rejects.
func nextForkName(source string, taken func(string) bool) (string, error) {
	for n := 1; n < maxForkSuffix; n++ {
		candidate := fmt.Sprintf("%s-%d", source, n)
		if !taken(candidate) {
			return candidate, nil
		}
	}
	return "", errors.New("session: no free fork name")
}
