// Package pollmux implements a readiness-based I/O event multiplexer: a
// registration/update/poll/translate cycle over an OS-level readiness driver,
// with thread-safe registration and interest changes, a wake channel for
// interrupting a blocked poll, and a consumer-facing selected set.
//
// # Architecture
//
// A [Multiplexer] owns a registration table (fd to [Registration]) and a
// pending-update log fed by any goroutine. The polling goroutine runs one
// [Multiplexer.Select] cycle at a time: queued registrations and interest
// changes are applied first (interest changes are written to the [Driver] in
// bulk, encoded remove-then-add), pending cancellations are applied both
// before and after the blocking poll, and the driver's ready entries are then
// translated into the [SelectedSet].
//
// Readiness reporting is level-triggered: a still-ready resource is reported
// every cycle until its readiness or the registered interest changes.
//
// # Platform Support
//
// The default driver uses platform-native readiness facilities:
//   - Linux: epoll, with an eventfd wake channel
//   - Darwin/BSD: kqueue, with a self-pipe wake channel
//
// Alternative drivers can be injected via [WithDriver].
//
// # Thread Safety
//
// Exactly one goroutine at a time may call [Multiplexer.Select]; callers
// serialize their own poll invocations. Any other goroutine may concurrently
// call [Multiplexer.Register], [Multiplexer.SetInterest],
// [Registration.Cancel], and [Multiplexer.Wakeup]; these touch only narrow
// locks and never block on a poll in progress.
package pollmux
