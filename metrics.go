package pollmux

import "sync/atomic"

// metrics tracks runtime counters for a multiplexer. All fields are atomics;
// recording is safe from any goroutine and costs one uncontended atomic add
// per event.
type metrics struct {
	cycles     atomic.Uint64
	wakeups    atomic.Uint64
	interrupts atomic.Uint64
	flushes    atomic.Uint64
	changes    atomic.Uint64
	translated atomic.Uint64
	updated    atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of a multiplexer's counters,
// returned by [Multiplexer.Metrics].
type MetricsSnapshot struct {
	// Cycles is the number of completed select cycles.
	Cycles uint64
	// Wakeups is the number of caller-requested wake-ups that wrote to the
	// wake channel. Coalesced duplicates and the internal unblock posted by
	// Close are not counted.
	Wakeups uint64
	// Interrupts is the number of cycles that observed the wake channel
	// among the ready entries.
	Interrupts uint64
	// BatchFlushes is the number of bulk writes to the driver.
	BatchFlushes uint64
	// ChangesWritten is the total number of interest-change entries written
	// to the driver across all flushes.
	ChangesWritten uint64
	// EventsTranslated is the total number of ready entries translated.
	EventsTranslated uint64
	// RecordsUpdated is the cumulative sum of select cycle return values.
	RecordsUpdated uint64
}

func (m *metrics) snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Cycles:           m.cycles.Load(),
		Wakeups:          m.wakeups.Load(),
		Interrupts:       m.interrupts.Load(),
		BatchFlushes:     m.flushes.Load(),
		ChangesWritten:   m.changes.Load(),
		EventsTranslated: m.translated.Load(),
		RecordsUpdated:   m.updated.Load(),
	}
}

// Metrics returns a snapshot of the multiplexer's counters. Metrics
// collection must be enabled via [WithMetrics]; otherwise the zero snapshot
// is returned.
func (m *Multiplexer) Metrics() MetricsSnapshot {
	if m.metrics == nil {
		return MetricsSnapshot{}
	}
	return m.metrics.snapshot()
}
