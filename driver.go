package pollmux

import "time"

// Change is one interest update for a [Driver]. A removal carries the
// interest mask previously registered for the fd, so drivers that track
// interest per condition (kqueue filters) know exactly what to delete.
type Change struct {
	// FD is the file descriptor the change applies to.
	FD int
	// Interest is the mask being added, or, for removals, the mask that was
	// previously registered.
	Interest Ops
	// Remove indicates the fd's existing interest should be removed.
	// Drivers support add and remove only; an interest modification is
	// encoded by the multiplexer as a removal followed by an addition.
	Remove bool
}

// Driver is the OS-level readiness facility the multiplexer batches interest
// updates to and reads ready entries from. Implementations are not required
// to be safe for concurrent use: the multiplexer guarantees a single
// goroutine talks to the driver, and only between polls.
//
// The default platform driver (epoll on Linux, kqueue on Darwin) is used by
// [Open] unless [WithDriver] overrides it.
type Driver interface {
	// Register applies a single interest change.
	Register(c Change) error

	// RegisterBatch applies a sequence of interest changes in order. Entries
	// for the same fd must be applied in the order given (the multiplexer
	// relies on remove-before-add within a batch).
	RegisterBatch(changes []Change) error

	// Poll blocks until at least one registered fd is ready or the timeout
	// elapses, and returns the number of ready entries retrievable via
	// Entry. A zero timeout polls without blocking; a negative timeout
	// blocks indefinitely.
	Poll(timeout time.Duration) (int, error)

	// Entry returns the fd and raw readiness of the i-th ready entry from
	// the most recent Poll. Valid only for i < the count Poll returned.
	Entry(i int) (fd int, events Events)

	// Close releases the driver's resources.
	Close() error
}

// timeoutMillis converts a Select timeout to poll-facility milliseconds:
// negative blocks indefinitely (-1), zero polls without blocking, and a
// positive duration is rounded up so a sub-millisecond wait still blocks.
func timeoutMillis(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	if timeout == 0 {
		return 0
	}
	ms := int((timeout + time.Millisecond - 1) / time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	return ms
}
