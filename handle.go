package pollmux

// Handle identifies a pollable resource. The fd must be stable for the
// resource's lifetime; the translation rule is the resource's own mapping
// from raw driver readiness to its abstract operations (a listening socket
// translates readable into OpAccept, a connecting socket translates writable
// into OpConnect, and so on).
type Handle interface {
	// FD returns the resource's file descriptor.
	FD() int

	// TranslateReady translates raw readiness into the resource's abstract
	// ready operations. It may return ops the owner has no current interest
	// in; the multiplexer intersects with the desired interest before
	// exposing the record in the selected set.
	TranslateReady(events Events) Ops
}

// SocketHandle is a ready-made Handle for an established socket: readable
// maps to OpRead, writable to OpWrite, and an error or hangup condition maps
// to every operation so that a consumer waiting on any interest observes the
// failure.
type SocketHandle int

// FD returns the socket's file descriptor.
func (h SocketHandle) FD() int { return int(h) }

// TranslateReady implements Handle.
func (h SocketHandle) TranslateReady(events Events) Ops {
	var ops Ops
	if events&EventReadable != 0 {
		ops |= OpRead
	}
	if events&EventWritable != 0 {
		ops |= OpWrite
	}
	if events&(EventError|EventHangup) != 0 {
		ops |= OpRead | OpWrite | OpAccept | OpConnect
	}
	return ops
}
