// Package optimistic applies tentative mutations to the local candidate view
// and commits or rolls them back once the authoritative result is known.
package optimistic

import (
	"errors"
	"fmt"
	"sync"

	"github.com/lucasnoah/hirepipe/internal/pipeline"
)

// ErrNotFound is returned when a candidate is not in the local view.
var ErrNotFound = errors.New("application not found in local view")

// Store is the local candidate view. Only the optimistic protocol, bulk
// reconciliation and a full authoritative refresh write to it.
type Store interface {
	Get(id int) (pipeline.Application, bool)
	// ApplyOptimistic mutates the entry in place and returns the entry as it
	// was before the mutation.
	ApplyOptimistic(id int, mutate func(*pipeline.Application)) (pipeline.Application, error)
	// Commit accepts the optimistic state. A non-nil authoritative value
	// replaces the entry so server-side fields win.
	Commit(id int, authoritative *pipeline.Application) error
	// Rollback restores previous verbatim.
	Rollback(id int, previous pipeline.Application) error
}

// MemoryStore is an in-process Store that preserves list order.
type MemoryStore struct {
	mu    sync.RWMutex
	apps  map[int]pipeline.Application
	order []int
}

// NewMemoryStore returns a store holding apps.
func NewMemoryStore(apps []pipeline.Application) *MemoryStore {
	s := &MemoryStore{}
	s.Replace(apps)
	return s
}

// Replace swaps the whole view for an authoritative list.
func (s *MemoryStore) Replace(apps []pipeline.Application) {
	m := make(map[int]pipeline.Application, len(apps))
	order := make([]int, 0, len(apps))
	for _, a := range apps {
		if _, dup := m[a.ID]; !dup {
			order = append(order, a.ID)
		}
		m[a.ID] = a.Clone()
	}
	s.mu.Lock()
	s.apps = m
	s.order = order
	s.mu.Unlock()
}

// List returns copies of every candidate in list order.
func (s *MemoryStore) List() []pipeline.Application {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]pipeline.Application, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.apps[id].Clone())
	}
	return out
}

// Len returns the number of candidates in the view.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *MemoryStore) Get(id int) (pipeline.Application, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.apps[id]
	if !ok {
		return pipeline.Application{}, false
	}
	return a.Clone(), true
}

func (s *MemoryStore) ApplyOptimistic(id int, mutate func(*pipeline.Application)) (pipeline.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.apps[id]
	if !ok {
		return pipeline.Application{}, fmt.Errorf("apply optimistic %d: %w", id, ErrNotFound)
	}
	previous := cur.Clone()
	next := cur.Clone()
	mutate(&next)
	next.ID = id
	s.apps[id] = next
	return previous, nil
}

func (s *MemoryStore) Commit(id int, authoritative *pipeline.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apps[id]; !ok {
		return fmt.Errorf("commit %d: %w", id, ErrNotFound)
	}
	if authoritative != nil {
		a := authoritative.Clone()
		a.ID = id
		s.apps[id] = a
	}
	return nil
}

func (s *MemoryStore) Rollback(id int, previous pipeline.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apps[id]; !ok {
		return fmt.Errorf("rollback %d: %w", id, ErrNotFound)
	}
	s.apps[id] = previous.Clone()
	return nil
}
