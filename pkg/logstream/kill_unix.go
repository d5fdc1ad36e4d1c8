//go:build !windows

package logstream

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// killProcessGroup kills the whole group led by p. Processes started on a
// pty are session leaders, so the group includes anything they forked.
func killProcessGroup(p *os.Process) error {
	if p == nil {
		return nil
	}

	err := unix.Kill(-p.Pid, unix.SIGKILL)
	switch {
	case err == nil, errors.Is(err, unix.ESRCH):
		return nil
	default:
		// Group kill refused (e.g. the leader runs under sudo); fall back
		// to the direct child.
		if kerr := p.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
			return kerr
		}
		return nil
	}
}
