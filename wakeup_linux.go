//go:build linux

package pollmux

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// createWakeFd creates an eventfd for wake-up notifications (Linux).
// Returns the single eventfd as both read and write endpoints.
func createWakeFd() (int, int, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	return fd, fd, err
}

// wakeWrite posts one wake-up to the write endpoint. eventfd is a counting
// primitive: concurrent posts coalesce into a single readable counter.
func wakeWrite(fd int) error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	_, err := writeFD(fd, buf[:])
	return err
}
