package pollmux

import (
	"errors"
	"fmt"
)

var (
	// ErrMultiplexerClosed is returned by any operation other than Close on
	// a multiplexer that has been closed.
	ErrMultiplexerClosed = errors.New("pollmux: multiplexer closed")
	// ErrDriverClosed is returned by driver operations after the driver has
	// been closed.
	ErrDriverClosed = errors.New("pollmux: driver closed")
)

// DriverError wraps a failure reported by the underlying readiness driver
// during a select cycle. The multiplexer does not retry; the caller decides
// whether to retry the cycle or tear the instance down. A DriverError does
// not by itself mean the instance is unusable.
type DriverError struct {
	// Op names the driver operation that failed ("poll", "register",
	// "register batch").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *DriverError) Error() string {
	return fmt.Sprintf("pollmux: driver %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for use with [errors.Is] and
// [errors.As].
func (e *DriverError) Unwrap() error {
	return e.Err
}

// invariant reports a broken internal invariant. These indicate a caller or
// core bug (duplicate registration of an fd already in the table, paired
// queue-length mismatch, wake channel write failure) and must fail loudly:
// continuing would corrupt the readiness model.
func invariant(format string, args ...any) {
	panic(fmt.Sprintf("pollmux: invariant violation: "+format, args...))
}
