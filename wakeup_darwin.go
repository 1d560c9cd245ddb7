//go:build darwin

package pollmux

import (
	"golang.org/x/sys/unix"
)

// createWakeFd creates a self-pipe for wake-up notifications (Darwin).
// Returns the read end and the write end of the pipe. Both ends are
// close-on-exec and non-blocking; the read end must be non-blocking so
// draining can read until exhaustion without stalling the cycle.
func createWakeFd() (int, int, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return 0, 0, err
	}

	cleanup := func() {
		_ = closeFD(fds[0])
		_ = closeFD(fds[1])
	}

	unix.CloseOnExec(fds[0])
	unix.CloseOnExec(fds[1])

	if err := unix.SetNonblock(fds[0], true); err != nil {
		cleanup()
		return 0, 0, err
	}
	if err := unix.SetNonblock(fds[1], true); err != nil {
		cleanup()
		return 0, 0, err
	}

	return fds[0], fds[1], nil
}

// wakeWrite posts one wake-up byte to the write endpoint.
func wakeWrite(fd int) error {
	_, err := writeFD(fd, []byte{0})
	return err
}
