//go:build linux

package pollmux

import (
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// readyBufSize is the capacity of the preallocated ready-event buffer.
const readyBufSize = 256

// epollDriver is the default Linux driver, backed by epoll. Readiness is
// level-triggered (no EPOLLET): a still-ready fd is reported every poll.
type epollDriver struct {
	epfd     int32
	eventBuf [readyBufSize]unix.EpollEvent
	closed   atomic.Bool
}

// newPlatformDriver opens an epoll instance.
func newPlatformDriver() (Driver, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollDriver{epfd: int32(epfd)}, nil
}

func (d *epollDriver) Register(c Change) error {
	if d.closed.Load() {
		return ErrDriverClosed
	}
	if c.Remove {
		return unix.EpollCtl(int(d.epfd), unix.EPOLL_CTL_DEL, c.FD, nil)
	}
	ev := unix.EpollEvent{
		Events: opsToEpoll(c.Interest),
		Fd:     int32(c.FD),
	}
	return unix.EpollCtl(int(d.epfd), unix.EPOLL_CTL_ADD, c.FD, &ev)
}

// RegisterBatch applies changes in order. epoll has no bulk control call, so
// the batch collapses to sequential epoll_ctl invocations; ordering within
// the batch (remove before add for the same fd) is preserved.
func (d *epollDriver) RegisterBatch(changes []Change) error {
	for _, c := range changes {
		if err := d.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (d *epollDriver) Poll(timeout time.Duration) (int, error) {
	if d.closed.Load() {
		return 0, ErrDriverClosed
	}
	n, err := unix.EpollWait(int(d.epfd), d.eventBuf[:], timeoutMillis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

func (d *epollDriver) Entry(i int) (int, Events) {
	ev := &d.eventBuf[i]
	return int(ev.Fd), epollToEvents(ev.Events)
}

func (d *epollDriver) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	return unix.Close(int(d.epfd))
}

// opsToEpoll converts an abstract interest mask to epoll event flags.
// Accept interest is readable interest and connect interest is writable
// interest at the OS level. Error and hangup conditions are always reported
// by epoll and need no registration.
func opsToEpoll(ops Ops) uint32 {
	var events uint32
	if ops&(OpRead|OpAccept) != 0 {
		events |= unix.EPOLLIN
	}
	if ops&(OpWrite|OpConnect) != 0 {
		events |= unix.EPOLLOUT
	}
	return events
}

// epollToEvents converts epoll event flags to raw readiness.
func epollToEvents(epollEvents uint32) Events {
	var events Events
	if epollEvents&unix.EPOLLIN != 0 {
		events |= EventReadable
	}
	if epollEvents&unix.EPOLLOUT != 0 {
		events |= EventWritable
	}
	if epollEvents&unix.EPOLLERR != 0 {
		events |= EventError
	}
	if epollEvents&unix.EPOLLHUP != 0 {
		events |= EventHangup
	}
	return events
}
