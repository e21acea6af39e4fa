package optimistic

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/lucasnoah/hirepipe/internal/pipeline"
)

var (
	// ErrMutationInFlight is returned by Begin when the candidate already has
	// an unresolved optimistic mutation.
	ErrMutationInFlight = errors.New("optimistic mutation already in flight")
	// ErrResolved is returned when a Mutation is resolved twice.
	ErrResolved = errors.New("optimistic mutation already resolved")
)

// RollbackError reports an authoritative failure whose optimistic change was
// reverted. Err is the collaborator's error.
type RollbackError struct {
	ApplicationID int
	Err           error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("application %d reverted: %v", e.ApplicationID, e.Err)
}

func (e *RollbackError) Unwrap() error { return e.Err }

// Manager runs the begin → apply → commit/rollback protocol against a Store.
type Manager struct {
	store      Store
	mu         sync.Mutex
	inflight   map[int]struct{}
	onRollback func(id int, err error)
}

// NewManager creates a Manager over store.
func NewManager(store Store) *Manager {
	return &Manager{store: store, inflight: make(map[int]struct{})}
}

// OnRollback registers a hook called after every rollback.
func (m *Manager) OnRollback(fn func(id int, err error)) {
	m.onRollback = fn
}

// Mutation is a tentative change that has been applied but not yet resolved.
type Mutation struct {
	m        *Manager
	ID       int
	Previous pipeline.Application
	mu       sync.Mutex
	done     bool
}

// Begin snapshots the candidate and applies mutate to the visible state
// before any authoritative call is made.
func (m *Manager) Begin(id int, mutate func(*pipeline.Application)) (*Mutation, error) {
	m.mu.Lock()
	if _, busy := m.inflight[id]; busy {
		m.mu.Unlock()
		return nil, fmt.Errorf("application %d: %w", id, ErrMutationInFlight)
	}
	m.inflight[id] = struct{}{}
	m.mu.Unlock()

	previous, err := m.store.ApplyOptimistic(id, mutate)
	if err != nil {
		m.release(id)
		return nil, err
	}
	return &Mutation{m: m, ID: id, Previous: previous}, nil
}

// Resolve commits on a nil callErr and otherwise restores the snapshot,
// returning a *RollbackError that wraps callErr.
func (mu *Mutation) Resolve(authoritative *pipeline.Application, callErr error) error {
	mu.mu.Lock()
	defer mu.mu.Unlock()
	if mu.done {
		return ErrResolved
	}
	mu.done = true
	defer mu.m.release(mu.ID)

	if callErr == nil {
		return mu.m.store.Commit(mu.ID, authoritative)
	}

	if err := mu.m.store.Rollback(mu.ID, mu.Previous); err != nil {
		return fmt.Errorf("rollback after %v: %w", callErr, err)
	}
	zap.S().Named("optimistic").Warnw("reverted optimistic change", "application_id", mu.ID, "error", callErr)
	if mu.m.onRollback != nil {
		mu.m.onRollback(mu.ID, callErr)
	}
	return &RollbackError{ApplicationID: mu.ID, Err: callErr}
}

// Do runs the full protocol: apply mutate, call the collaborator, then commit
// or roll back. It returns the candidate as it stands afterwards.
func (m *Manager) Do(
	ctx context.Context,
	id int,
	mutate func(*pipeline.Application),
	call func(ctx context.Context) (*pipeline.Application, error),
) (pipeline.Application, error) {
	mut, err := m.Begin(id, mutate)
	if err != nil {
		return pipeline.Application{}, err
	}
	authoritative, callErr := call(ctx)
	resolveErr := mut.Resolve(authoritative, callErr)
	cur, _ := m.store.Get(id)
	return cur, resolveErr
}

// InFlight reports whether id has an unresolved mutation.
func (m *Manager) InFlight(id int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.inflight[id]
	return ok
}

func (m *Manager) release(id int) {
	m.mu.Lock()
	delete(m.inflight, id)
	m.mu.Unlock()
}
