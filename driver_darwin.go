//go:build darwin

package pollmux

import (
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// readyBufSize is the capacity of the preallocated ready-event buffer.
const readyBufSize = 256

// kqueueDriver is the default Darwin driver, backed by kqueue. Interest is
// tracked per filter: a readable interest is an EVFILT_READ registration and
// a writable interest an EVFILT_WRITE registration, so one Change may expand
// to two kevents.
type kqueueDriver struct {
	kq        int32
	changeBuf []unix.Kevent_t
	eventBuf  [readyBufSize]unix.Kevent_t
	closed    atomic.Bool
}

// newPlatformDriver opens a kqueue instance.
func newPlatformDriver() (Driver, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(kq)
	return &kqueueDriver{kq: int32(kq)}, nil
}

func (d *kqueueDriver) Register(c Change) error {
	if d.closed.Load() {
		return ErrDriverClosed
	}
	changes := appendKevents(d.changeBuf[:0], c)
	d.changeBuf = changes[:0]
	if len(changes) == 0 {
		return nil
	}
	_, err := unix.Kevent(int(d.kq), changes, nil, nil)
	return err
}

// RegisterBatch applies changes in a single kevent call. The changelist is
// processed in order by the kernel, preserving remove-before-add for the
// same fd within the batch.
func (d *kqueueDriver) RegisterBatch(changes []Change) error {
	if d.closed.Load() {
		return ErrDriverClosed
	}
	kevents := d.changeBuf[:0]
	for _, c := range changes {
		kevents = appendKevents(kevents, c)
	}
	d.changeBuf = kevents[:0]
	if len(kevents) == 0 {
		return nil
	}
	_, err := unix.Kevent(int(d.kq), kevents, nil, nil)
	return err
}

func (d *kqueueDriver) Poll(timeout time.Duration) (int, error) {
	if d.closed.Load() {
		return 0, ErrDriverClosed
	}
	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(int64(timeout))
		ts = &t
	}
	n, err := unix.Kevent(int(d.kq), nil, d.eventBuf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

func (d *kqueueDriver) Entry(i int) (int, Events) {
	ev := &d.eventBuf[i]
	var events Events
	switch ev.Filter {
	case unix.EVFILT_READ:
		events |= EventReadable
	case unix.EVFILT_WRITE:
		events |= EventWritable
	}
	if ev.Flags&unix.EV_EOF != 0 {
		events |= EventHangup
	}
	if ev.Flags&unix.EV_ERROR != 0 {
		events |= EventError
	}
	return int(ev.Ident), events
}

func (d *kqueueDriver) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	return unix.Close(int(d.kq))
}

// appendKevents expands one Change into its per-filter kevents. Accept
// interest maps to the read filter and connect interest to the write filter.
func appendKevents(dst []unix.Kevent_t, c Change) []unix.Kevent_t {
	flags := uint16(unix.EV_ADD)
	if c.Remove {
		flags = unix.EV_DELETE
	}
	if c.Interest&(OpRead|OpAccept) != 0 {
		dst = append(dst, unix.Kevent_t{
			Ident:  uint64(c.FD),
			Filter: unix.EVFILT_READ,
			Flags:  flags,
		})
	}
	if c.Interest&(OpWrite|OpConnect) != 0 {
		dst = append(dst, unix.Kevent_t{
			Ident:  uint64(c.FD),
			Filter: unix.EVFILT_WRITE,
			Flags:  flags,
		})
	}
	return dst
}
