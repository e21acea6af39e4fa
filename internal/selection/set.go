// Package selection holds the operator's checked candidates for one session.
package selection

import "sync"

// Set is a set of application IDs that remembers insertion order. The order
// is what interview batches use to assign time slots.
type Set struct {
	mu    sync.RWMutex
	index map[int]struct{}
	order []int
}

// New returns a set holding ids.
func New(ids ...int) *Set {
	s := &Set{index: make(map[int]struct{})}
	for _, id := range ids {
		s.addLocked(id)
	}
	return s
}

// Toggle flips id and reports whether it is selected afterwards.
func (s *Set) Toggle(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[id]; ok {
		s.removeLocked(id)
		return false
	}
	s.addLocked(id)
	return true
}

// Add selects ids. Already-selected IDs keep their position.
func (s *Set) Add(ids ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.addLocked(id)
	}
}

// Remove deselects ids.
func (s *Set) Remove(ids ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.removeLocked(id)
	}
}

// Has reports whether id is selected.
func (s *Set) Has(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[id]
	return ok
}

// Clear empties the set.
func (s *Set) Clear() {
	s.mu.Lock()
	s.index = make(map[int]struct{})
	s.order = nil
	s.mu.Unlock()
}

// Len returns the number of selected IDs.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// IDs returns a copy of the selection in insertion order.
func (s *Set) IDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, len(s.order))
	copy(out, s.order)
	return out
}

// SelectAllVisible adds every visible ID. Selections outside the visible
// list are kept.
func (s *Set) SelectAllVisible(visible []int) {
	s.Add(visible...)
}

// AllVisibleSelected reports whether every visible ID is selected. An empty
// visible list reports false.
func (s *Set) AllVisibleSelected(visible []int) bool {
	if len(visible) == 0 {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range visible {
		if _, ok := s.index[id]; !ok {
			return false
		}
	}
	return true
}

// ToggleAllVisible deselects the visible IDs when all of them are selected,
// and selects them otherwise. It reports whether they are selected afterwards.
func (s *Set) ToggleAllVisible(visible []int) bool {
	if s.AllVisibleSelected(visible) {
		s.Remove(visible...)
		return false
	}
	s.Add(visible...)
	return len(visible) > 0
}

func (s *Set) addLocked(id int) {
	if _, ok := s.index[id]; ok {
		return
	}
	s.index[id] = struct{}{}
	s.order = append(s.order, id)
}

func (s *Set) removeLocked(id int) {
	if _, ok := s.index[id]; !ok {
		return
	}
	delete(s.index, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
