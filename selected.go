package pollmux

import "sync"

// SelectedSet is the consumer-facing collection of records currently deemed
// ready. Membership grows during a select cycle's translation step and is
// pruned by the consumer between cycles. All methods are safe for concurrent
// use with a cycle in progress.
type SelectedSet struct {
	mu      sync.Mutex
	members map[*Registration]struct{}
}

func (s *SelectedSet) init() {
	s.members = make(map[*Registration]struct{})
}

// Len returns the number of records currently selected.
func (s *SelectedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}

// Contains reports whether the record is currently selected.
func (s *SelectedSet) Contains(r *Registration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return r.selected
}

// Range calls fn for each selected record with its ready-operations mask at
// snapshot time, stopping early if fn returns false. The snapshot is taken
// up front, so fn may call back into the set (or the multiplexer) freely.
func (s *SelectedSet) Range(fn func(r *Registration, ready Ops) bool) {
	type entry struct {
		r     *Registration
		ready Ops
	}
	s.mu.Lock()
	snapshot := make([]entry, 0, len(s.members))
	for r := range s.members {
		snapshot = append(snapshot, entry{r, r.ready})
	}
	s.mu.Unlock()
	for _, e := range snapshot {
		if !fn(e.r, e.ready) {
			return
		}
	}
}

// Remove removes the record from the set. The record's accumulated ready
// ops are kept; a later cycle that finds it ready again re-adds it through
// the overwrite path.
func (s *SelectedSet) Remove(r *Registration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(r)
}

// Prune removes every record whose ready ops no longer intersect its desired
// interest, the usual between-cycles cleanup for a consumer that adjusts
// interest masks as it drains readiness.
func (s *SelectedSet) Prune() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for r := range s.members {
		if r.ready&r.Interest() == 0 {
			s.remove(r)
		}
	}
}

// Clear empties the set.
func (s *SelectedSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for r := range s.members {
		s.remove(r)
	}
}

// remove must be called with mu held.
func (s *SelectedSet) remove(r *Registration) {
	if r.selected {
		r.selected = false
		delete(s.members, r)
	}
}
