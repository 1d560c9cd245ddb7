package pollmux

// Ops is a bitmask of abstract operations on a registered resource. Interest
// masks and ready-op masks share this bit-space, so readiness can be
// intersected with the owner's current interest directly.
type Ops uint32

const (
	// OpRead indicates interest in, or readiness for, reading.
	OpRead Ops = 1 << iota
	// OpWrite indicates interest in, or readiness for, writing.
	OpWrite
	// OpAccept indicates interest in, or readiness for, accepting an
	// inbound connection. Drivers map it to readable at the OS level.
	OpAccept
	// OpConnect indicates interest in, or readiness for, completing an
	// outbound connection. Drivers map it to writable at the OS level.
	OpConnect
)

// Events is a bitmask of raw readiness conditions as reported by a [Driver].
// A [Handle] translates Events into its own Ops via TranslateReady.
type Events uint32

const (
	// EventReadable indicates the resource is ready for reading.
	EventReadable Events = 1 << iota
	// EventWritable indicates the resource is ready for writing.
	EventWritable
	// EventError indicates an error condition on the resource.
	EventError
	// EventHangup indicates the peer closed its end of the connection.
	EventHangup
)
