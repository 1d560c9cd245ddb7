package pollmux

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// Multiplexer tracks a set of registered resources, polls the driver for
// their readiness, and exposes the ready subset through its [SelectedSet].
// Create instances with [Open]; see the package documentation for the
// concurrency contract.
type Multiplexer struct {
	driver    Driver
	log       *logiface.Logger[logiface.Event]
	metrics   *metrics
	batchSize int

	// Wake channel endpoints. The read end is registered with the driver so
	// a wake-up surfaces as an ordinary ready entry.
	wakeReadFD  int
	wakeWriteFD int

	// Pending-update log: new registrations and paired interest-change
	// queues, fed by any goroutine, drained only by the polling goroutine.
	// The mask is always enqueued before its record so a failed record push
	// cannot leave an orphaned mask behind.
	updateMu   sync.Mutex
	newRegs    []*Registration
	updateOps  []Ops
	updateRegs []*Registration

	// Cancelled records awaiting removal at the next poll boundary.
	cancelMu      sync.Mutex
	cancelledRegs []*Registration

	// Wake-up triggering and clearing. wakePending true means a wake-up is
	// buffered in the channel (or, after Close, that no further writes may
	// ever happen).
	wakeMu      sync.Mutex
	wakePending bool

	// ownerMu enforces the single-cycle-in-flight discipline: Select,
	// Deregister, and Close bookkeeping all hold it.
	ownerMu sync.Mutex

	// table maps fd to tracking record; mutated only under ownerMu.
	table map[int]*Registration

	selected SelectedSet

	// batch is the reusable bulk-write buffer. Polling goroutine only.
	batch []Change

	closed atomic.Bool
}

// Open creates a Multiplexer, wiring the wake channel into the driver. On
// failure every resource acquired so far is released.
func Open(opts ...Option) (*Multiplexer, error) {
	options := muxOptions{batchSize: defaultBatchSize}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyMux(&options); err != nil {
			return nil, err
		}
	}

	driver := options.driver
	if driver == nil {
		var err error
		if driver, err = newPlatformDriver(); err != nil {
			return nil, err
		}
	}

	wakeReadFD, wakeWriteFD, err := createWakeFd()
	if err != nil {
		_ = driver.Close()
		return nil, err
	}

	m := &Multiplexer{
		driver:      driver,
		log:         options.logger,
		batchSize:   options.batchSize,
		wakeReadFD:  wakeReadFD,
		wakeWriteFD: wakeWriteFD,
		table:       make(map[int]*Registration),
		batch:       make([]Change, 0, options.batchSize),
	}
	m.selected.init()
	if options.metrics {
		m.metrics = &metrics{}
	}

	// Register the read endpoint so a wake-up forces the blocked poll to
	// return with an observable ready entry.
	if err := driver.Register(Change{FD: wakeReadFD, Interest: OpRead}); err != nil {
		_ = driver.Close()
		_ = closeFD(wakeReadFD)
		if wakeWriteFD != wakeReadFD {
			_ = closeFD(wakeWriteFD)
		}
		return nil, &DriverError{Op: "register", Err: err}
	}

	m.log.Info().
		Int(`wake_read_fd`, wakeReadFD).
		Int(`wake_write_fd`, wakeWriteFD).
		Int(`batch_size`, m.batchSize).
		Log(`multiplexer open`)

	return m, nil
}

// Register queues a new registration for the handle with the given initial
// interest. The record becomes live (inserted into the registration table,
// its interest pushed to the driver) at the start of the next select
// cycle. Safe to call from any goroutine; never blocks on a poll in
// progress.
//
// Registering two handles with the same fd is a caller bug: the cycle that
// materializes the duplicate panics rather than corrupting the table.
func (m *Multiplexer) Register(h Handle, interest Ops) (*Registration, error) {
	if m.closed.Load() {
		return nil, ErrMultiplexerClosed
	}
	r := &Registration{mux: m, handle: h, fd: h.FD()}
	r.interest.Store(uint32(interest))
	r.valid.Store(true)

	m.updateMu.Lock()
	m.newRegs = append(m.newRegs, r)
	// Seed the initial interest through the same paired queues an interest
	// change uses; mask before record.
	m.updateOps = append(m.updateOps, interest)
	m.updateRegs = append(m.updateRegs, r)
	m.updateMu.Unlock()

	return r, nil
}

// SetInterest queues a change of the record's interest mask, applied at the
// start of the next select cycle. Safe to call from any goroutine.
func (m *Multiplexer) SetInterest(r *Registration, interest Ops) error {
	if m.closed.Load() {
		return ErrMultiplexerClosed
	}
	r.interest.Store(uint32(interest))

	m.updateMu.Lock()
	m.updateOps = append(m.updateOps, interest)
	m.updateRegs = append(m.updateRegs, r)
	m.updateMu.Unlock()

	return nil
}

// Deregister removes the record from the registration table immediately, and
// from the driver if an interest was registered there. Owning goroutine
// only. Deregistering an already-removed record is a no-op.
func (m *Multiplexer) Deregister(r *Registration) error {
	if m.closed.Load() {
		return ErrMultiplexerClosed
	}
	m.ownerMu.Lock()
	defer m.ownerMu.Unlock()
	r.valid.Store(false)
	return m.deregister(r)
}

// deregister must be called under ownerMu. Removal from the driver happens
// only while the table entry exists and an interest is registered, which
// keeps repeat calls free of duplicate driver removals.
func (m *Multiplexer) deregister(r *Registration) error {
	if existing, ok := m.table[r.fd]; !ok || existing != r {
		return nil
	}
	delete(m.table, r.fd)
	m.selected.Remove(r)
	if r.registered != 0 {
		registered := r.registered
		r.registered = 0
		if err := m.driver.Register(Change{FD: r.fd, Interest: registered, Remove: true}); err != nil {
			return &DriverError{Op: "register", Err: err}
		}
	}
	return nil
}

// Select runs one select cycle: apply queued updates, apply pending
// cancellations, block in the driver's poll for up to timeout, apply pending
// cancellations again, then translate ready entries into the selected set.
// It returns the number of records whose membership or ready ops changed.
//
// A zero timeout polls without blocking; a negative timeout blocks until
// readiness or a wake-up. Only one goroutine may be inside Select at a time.
func (m *Multiplexer) Select(timeout time.Duration) (int, error) {
	if m.closed.Load() {
		return 0, ErrMultiplexerClosed
	}
	m.ownerMu.Lock()
	defer m.ownerMu.Unlock()
	if m.closed.Load() {
		return 0, ErrMultiplexerClosed
	}

	if err := m.processUpdates(); err != nil {
		return 0, err
	}
	if err := m.processCancelled(); err != nil {
		return 0, err
	}

	entries, err := m.driver.Poll(timeout)
	if err != nil {
		m.log.Err().
			Err(err).
			Log(`driver poll failed`)
		return 0, &DriverError{Op: "poll", Err: err}
	}

	if err := m.processCancelled(); err != nil {
		return 0, err
	}

	updated := m.updateSelected(entries)

	if m.metrics != nil {
		m.metrics.cycles.Add(1)
		m.metrics.translated.Add(uint64(entries))
		m.metrics.updated.Add(uint64(updated))
	}
	m.log.Trace().
		Int(`entries`, entries).
		Int(`updated`, updated).
		Log(`select cycle complete`)

	return updated, nil
}

// processUpdates drains the pending-update log: materializes queued
// registrations into the table, then converts queued interest changes into
// driver writes, buffered and flushed in bulk. Runs under ownerMu; holds the
// log's lock for the whole drain so producers enqueueing concurrently land
// in the next cycle.
func (m *Multiplexer) processUpdates() error {
	m.updateMu.Lock()
	defer m.updateMu.Unlock()

	for _, r := range m.newRegs {
		if !r.valid.Load() {
			continue
		}
		if _, dup := m.table[r.fd]; dup {
			invariant("fd %d already registered", r.fd)
		}
		m.table[r.fd] = r
	}
	clear(m.newRegs)
	m.newRegs = m.newRegs[:0]

	if len(m.updateRegs) != len(m.updateOps) {
		invariant("paired update queues out of sync (%d records, %d masks)",
			len(m.updateRegs), len(m.updateOps))
	}

	batch := m.batch[:0]
	var err error
	next := 0
	for ; next < len(m.updateRegs); next++ {
		r := m.updateRegs[next]
		interest := m.updateOps[next]
		// Stale entries: cancelled records and records already deregistered
		// are silently skipped.
		if !r.valid.Load() {
			continue
		}
		if existing, ok := m.table[r.fd]; !ok || existing != r {
			continue
		}
		if interest == r.registered {
			continue
		}
		// The driver supports add and remove only, so a mask change is a
		// removal of the old mask followed by an addition of the new, in
		// that order, within the same flush.
		if r.registered != 0 {
			batch = append(batch, Change{FD: r.fd, Interest: r.registered, Remove: true})
		}
		if interest != 0 {
			batch = append(batch, Change{FD: r.fd, Interest: interest})
		}
		r.registered = interest

		if len(batch) > m.batchSize-2 {
			if err = m.flush(batch); err != nil {
				next++
				break
			}
			batch = batch[:0]
		}
	}
	if err == nil && len(batch) > 0 {
		err = m.flush(batch)
	}
	m.batch = batch[:0]

	if err != nil && next < len(m.updateRegs) {
		// Keep the unprocessed remainder queued so a retried cycle applies
		// it; the failed flush itself is the caller's to deal with.
		n := copy(m.updateRegs, m.updateRegs[next:])
		copy(m.updateOps, m.updateOps[next:])
		clear(m.updateRegs[n:])
		m.updateRegs = m.updateRegs[:n]
		m.updateOps = m.updateOps[:n]
		return err
	}

	clear(m.updateRegs)
	m.updateRegs = m.updateRegs[:0]
	m.updateOps = m.updateOps[:0]

	return err
}

func (m *Multiplexer) flush(batch []Change) error {
	if err := m.driver.RegisterBatch(batch); err != nil {
		return &DriverError{Op: "register batch", Err: err}
	}
	if m.metrics != nil {
		m.metrics.flushes.Add(1)
		m.metrics.changes.Add(uint64(len(batch)))
	}
	return nil
}

// processCancelled removes cancelled records. It runs immediately before the
// blocking poll, so a resource cancelled after the caller decided to poll is
// not presented to the driver, and immediately after, so a cancellation
// raced with the poll cannot leave a stale entry visible to translation.
func (m *Multiplexer) processCancelled() error {
	m.cancelMu.Lock()
	pending := m.cancelledRegs
	m.cancelledRegs = nil
	m.cancelMu.Unlock()

	for _, r := range pending {
		if err := m.deregister(r); err != nil {
			return err
		}
	}
	return nil
}

// updateSelected translates the driver's ready entries into the selected
// set, in driver-reported order, and returns the number of records counted
// as updated. The asymmetry below is deliberate: a record already visible to
// the consumer accumulates readiness (OR), while a record entering the set
// starts from a fresh mask and is admitted only if the owner currently cares.
func (m *Multiplexer) updateSelected(entries int) int {
	interrupted := false
	updated := 0

	s := &m.selected
	s.mu.Lock()
	for i := 0; i < entries; i++ {
		fd, events := m.driver.Entry(i)
		if fd == m.wakeReadFD {
			interrupted = true
			continue
		}
		r := m.table[fd]
		if r == nil {
			// Raced deregistration.
			continue
		}
		ops := r.handle.TranslateReady(events)
		if r.selected {
			merged := r.ready | ops
			if merged != r.ready {
				r.ready = merged
				updated++
			}
		} else {
			r.ready = ops
			if ops&r.Interest() != 0 {
				r.selected = true
				s.members[r] = struct{}{}
				updated++
			}
		}
	}
	s.mu.Unlock()

	if interrupted {
		m.clearWake()
		if m.metrics != nil {
			m.metrics.interrupts.Add(1)
		}
	}

	return updated
}

// Wakeup forces a blocked Select to return promptly. It is idempotent:
// wake-ups requested while one is already buffered coalesce into the same
// single unblock. Safe to call from any goroutine. After Close it returns
// ErrMultiplexerClosed without touching the channel.
func (m *Multiplexer) Wakeup() error {
	if m.closed.Load() {
		return ErrMultiplexerClosed
	}
	m.wakeMu.Lock()
	defer m.wakeMu.Unlock()
	// Re-checked under wakeMu: Close marks closed and then tears the wake
	// channel down, so the decision to write is only safe while holding the
	// lock with the closed flag still clear.
	if m.closed.Load() {
		return ErrMultiplexerClosed
	}
	if m.wakePending {
		return nil
	}
	m.wake()
	if m.metrics != nil {
		m.metrics.wakeups.Add(1)
	}
	return nil
}

// wake must be called with wakeMu held. The wake channel is process-owned;
// a failed write breaks the liveness guarantee and cannot be recovered from.
func (m *Multiplexer) wake() {
	if err := wakeWrite(m.wakeWriteFD); err != nil {
		m.log.Err().
			Err(err).
			Int(`wake_write_fd`, m.wakeWriteFD).
			Log(`wake channel write failed`)
		invariant("wake channel write failed: %v", err)
	}
	m.wakePending = true
}

// clearWake drains the wake channel and resets the pending flag, so the next
// requested wake-up writes again. Called only when translation observed the
// read endpoint among the ready entries.
func (m *Multiplexer) clearWake() {
	m.wakeMu.Lock()
	defer m.wakeMu.Unlock()
	var buf [8]byte
	for {
		if _, err := readFD(m.wakeReadFD, buf[:]); err != nil {
			break
		}
	}
	m.wakePending = false
}

// Selected returns the multiplexer's selected set for iteration and pruning
// by the consumer between cycles.
func (m *Multiplexer) Selected() *SelectedSet {
	return &m.selected
}

// Close is terminal: it wakes any blocked Select, waits for the in-flight
// cycle to finish, releases the driver, and closes both wake channel
// endpoints. Close is idempotent; every other operation on a closed
// multiplexer returns ErrMultiplexerClosed.
func (m *Multiplexer) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}

	// Unblock a poll in progress so ownerMu can be acquired.
	m.wakeMu.Lock()
	if !m.wakePending {
		m.wake()
	}
	m.wakeMu.Unlock()

	m.ownerMu.Lock()
	defer m.ownerMu.Unlock()

	// The unblocked cycle may have drained the wake channel and cleared the
	// pending flag on its way out. Mark it permanently pending before the
	// endpoints close, so a wake-up that raced the closed flag can never
	// write to a torn-down descriptor.
	m.wakeMu.Lock()
	m.wakePending = true
	m.wakeMu.Unlock()

	err := m.driver.Close()
	_ = closeFD(m.wakeReadFD)
	if m.wakeWriteFD != m.wakeReadFD {
		_ = closeFD(m.wakeWriteFD)
	}

	m.log.Info().Log(`multiplexer closed`)

	if err != nil {
		return &DriverError{Op: "close", Err: err}
	}
	return nil
}
