package pollmux

import (
	"sort"
	"testing"
)

func TestSelectedSet_RangeSnapshot(t *testing.T) {
	d := &fakeDriver{}
	m := newTestMux(t, d)

	regs := make(map[*Registration]int)
	for i := 0; i < 3; i++ {
		reg, err := m.Register(SocketHandle(3000+i), OpRead)
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		regs[reg] = 3000 + i
	}

	d.setEntries(
		fakeEntry{fd: 3000, events: EventReadable},
		fakeEntry{fd: 3001, events: EventReadable},
		fakeEntry{fd: 3002, events: EventReadable},
	)
	n, err := m.Select(0)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 updated records, got %d", n)
	}

	// Range may call back into the set; removal mid-iteration must not
	// disturb the snapshot.
	s := m.Selected()
	var seen []int
	s.Range(func(r *Registration, ready Ops) bool {
		if ready != OpRead {
			t.Errorf("ready = %v, want OpRead", ready)
		}
		seen = append(seen, regs[r])
		s.Remove(r)
		return true
	})
	sort.Ints(seen)
	if len(seen) != 3 || seen[0] != 3000 || seen[2] != 3002 {
		t.Errorf("unexpected iteration: %v", seen)
	}
	if s.Len() != 0 {
		t.Errorf("set should be empty after removals, has %d", s.Len())
	}
}

func TestSelectedSet_RangeEarlyStop(t *testing.T) {
	d := &fakeDriver{}
	m := newTestMux(t, d)

	for i := 0; i < 3; i++ {
		if _, err := m.Register(SocketHandle(3000+i), OpRead); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}
	d.setEntries(
		fakeEntry{fd: 3000, events: EventReadable},
		fakeEntry{fd: 3001, events: EventReadable},
		fakeEntry{fd: 3002, events: EventReadable},
	)
	if _, err := m.Select(0); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	calls := 0
	m.Selected().Range(func(*Registration, Ops) bool {
		calls++
		return false
	})
	if calls != 1 {
		t.Errorf("expected early stop after 1 call, got %d", calls)
	}
}

func TestSelectedSet_RemoveThenReenterViaOverwrite(t *testing.T) {
	d := &fakeDriver{}
	m := newTestMux(t, d)

	reg, err := m.Register(SocketHandle(3000), OpRead|OpWrite)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	d.setEntries(fakeEntry{fd: 3000, events: EventReadable | EventWritable})
	if _, err := m.Select(0); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if got := reg.Ready(); got != OpRead|OpWrite {
		t.Fatalf("ready = %v, want OpRead|OpWrite", got)
	}

	m.Selected().Remove(reg)
	if m.Selected().Contains(reg) {
		t.Fatal("record should be removed")
	}

	// Re-entry goes through the overwrite path: a fresh mask, not an
	// accumulation over the old one.
	d.setEntries(fakeEntry{fd: 3000, events: EventReadable})
	n, err := m.Select(0)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 updated record, got %d", n)
	}
	if !m.Selected().Contains(reg) {
		t.Error("record should have re-entered the set")
	}
	if got := reg.Ready(); got != OpRead {
		t.Errorf("ready = %v, want a fresh OpRead mask", got)
	}
}

func TestSelectedSet_Prune(t *testing.T) {
	d := &fakeDriver{}
	m := newTestMux(t, d)

	keep, err := m.Register(SocketHandle(3000), OpRead)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	drop, err := m.Register(SocketHandle(3001), OpWrite)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	d.setEntries(
		fakeEntry{fd: 3000, events: EventReadable},
		fakeEntry{fd: 3001, events: EventWritable},
	)
	if _, err := m.Select(0); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if m.Selected().Len() != 2 {
		t.Fatalf("expected 2 selected records, got %d", m.Selected().Len())
	}

	// The consumer handled the write and no longer cares about it.
	if err := m.SetInterest(drop, 0); err != nil {
		t.Fatalf("SetInterest failed: %v", err)
	}
	m.Selected().Prune()

	if !m.Selected().Contains(keep) {
		t.Error("record with intersecting interest must survive pruning")
	}
	if m.Selected().Contains(drop) {
		t.Error("record with no intersecting interest must be pruned")
	}
}

func TestSelectedSet_Clear(t *testing.T) {
	d := &fakeDriver{}
	m := newTestMux(t, d)

	for i := 0; i < 2; i++ {
		if _, err := m.Register(SocketHandle(3000+i), OpRead); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}
	d.setEntries(
		fakeEntry{fd: 3000, events: EventReadable},
		fakeEntry{fd: 3001, events: EventReadable},
	)
	if _, err := m.Select(0); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	m.Selected().Clear()
	if m.Selected().Len() != 0 {
		t.Errorf("set should be empty after Clear, has %d", m.Selected().Len())
	}
}

func TestSocketHandle_TranslateReady(t *testing.T) {
	for _, tc := range []struct {
		name   string
		events Events
		want   Ops
	}{
		{"readable", EventReadable, OpRead},
		{"writable", EventWritable, OpWrite},
		{"both", EventReadable | EventWritable, OpRead | OpWrite},
		{"hangup", EventHangup, OpRead | OpWrite | OpAccept | OpConnect},
		{"error", EventError, OpRead | OpWrite | OpAccept | OpConnect},
		{"none", 0, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := SocketHandle(1).TranslateReady(tc.events); got != tc.want {
				t.Errorf("TranslateReady(%v) = %v, want %v", tc.events, got, tc.want)
			}
		})
	}
}
