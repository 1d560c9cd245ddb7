//go:build darwin

package pollmux

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestAppendKevents(t *testing.T) {
	for _, tc := range []struct {
		name    string
		change  Change
		filters []int16
		flags   uint16
	}{
		{"read", Change{FD: 7, Interest: OpRead}, []int16{unix.EVFILT_READ}, unix.EV_ADD},
		{"accept", Change{FD: 7, Interest: OpAccept}, []int16{unix.EVFILT_READ}, unix.EV_ADD},
		{"write", Change{FD: 7, Interest: OpWrite}, []int16{unix.EVFILT_WRITE}, unix.EV_ADD},
		{"connect", Change{FD: 7, Interest: OpConnect}, []int16{unix.EVFILT_WRITE}, unix.EV_ADD},
		{"both", Change{FD: 7, Interest: OpRead | OpWrite}, []int16{unix.EVFILT_READ, unix.EVFILT_WRITE}, unix.EV_ADD},
		{"remove", Change{FD: 7, Interest: OpRead, Remove: true}, []int16{unix.EVFILT_READ}, unix.EV_DELETE},
		{"empty", Change{FD: 7}, nil, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := appendKevents(nil, tc.change)
			if len(got) != len(tc.filters) {
				t.Fatalf("got %d kevents, want %d", len(got), len(tc.filters))
			}
			for i, kev := range got {
				if kev.Ident != 7 {
					t.Errorf("kevent %d ident = %d, want 7", i, kev.Ident)
				}
				if kev.Filter != tc.filters[i] {
					t.Errorf("kevent %d filter = %d, want %d", i, kev.Filter, tc.filters[i])
				}
				if kev.Flags != tc.flags {
					t.Errorf("kevent %d flags = %#x, want %#x", i, kev.Flags, tc.flags)
				}
			}
		})
	}
}

func TestKqueueDriver_RegisterEmptyInterest(t *testing.T) {
	d, err := newPlatformDriver()
	if err != nil {
		t.Fatalf("newPlatformDriver failed: %v", err)
	}
	defer d.Close()

	// A change that expands to no kevents must be a no-op, the same as an
	// all-empty batch.
	if err := d.Register(Change{FD: 0}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := d.RegisterBatch(nil); err != nil {
		t.Fatalf("RegisterBatch failed: %v", err)
	}
}
