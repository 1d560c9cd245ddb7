package pollmux

import "sync/atomic"

// Registration is the tracking record for one registered resource. It is
// created by [Multiplexer.Register], becomes live at the start of the next
// select cycle, and is destroyed by deregistration.
type Registration struct {
	mux    *Multiplexer
	handle Handle
	fd     int

	// registered is the interest mask currently known to the driver (0 if
	// none has been pushed yet). Owning goroutine only.
	registered Ops

	// interest is the desired interest the owner last requested. It may lag
	// registered until the next cycle applies it.
	interest atomic.Uint32

	// ready and selected are guarded by the selected set's lock.
	ready    Ops
	selected bool

	valid     atomic.Bool
	cancelled atomic.Bool
}

// Handle returns the registered resource's handle.
func (r *Registration) Handle() Handle { return r.handle }

// Interest returns the desired interest mask the owner last requested.
func (r *Registration) Interest() Ops { return Ops(r.interest.Load()) }

// Ready returns the accumulated ready-operations mask last observed for the
// record. It is meaningful while the record is in the selected set.
func (r *Registration) Ready() Ops {
	s := &r.mux.selected
	s.mu.Lock()
	defer s.mu.Unlock()
	return r.ready
}

// Valid reports whether the record is still live. A cancelled or
// deregistered record is invalid but may remain visible until the next cycle
// boundary cleans it up.
func (r *Registration) Valid() bool { return r.valid.Load() }

// Cancel invalidates the record from any goroutine. The record is removed
// from the registration table and the driver at the next poll boundary
// (immediately before or after the next blocking poll). Cancelling an
// already-cancelled record is a no-op.
func (r *Registration) Cancel() {
	if !r.cancelled.CompareAndSwap(false, true) {
		return
	}
	r.valid.Store(false)
	m := r.mux
	m.cancelMu.Lock()
	m.cancelledRegs = append(m.cancelledRegs, r)
	m.cancelMu.Unlock()
}
