// Package dragdrop turns a drag gesture, from a pointer or the keyboard, into
// a validated stage move.
package dragdrop

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/lucasnoah/hirepipe/internal/pipeline"
	"github.com/lucasnoah/hirepipe/internal/transition"
)

var (
	// ErrAlreadyDragging is returned by Start while another card is lifted.
	ErrAlreadyDragging = errors.New("a card is already being dragged")
	// ErrNotDragging is returned by Drop and Cancel when nothing is lifted.
	ErrNotDragging = errors.New("no card is being dragged")
)

// State is the resolver's gesture state.
type State int

const (
	StateIdle State = iota
	StateDragging
)

func (s State) String() string {
	if s == StateDragging {
		return "dragging"
	}
	return "idle"
}

// TargetKind says what the pointer was over when the card was released.
type TargetKind string

const (
	TargetNone   TargetKind = "none"
	TargetColumn TargetKind = "column"
	TargetCard   TargetKind = "card"
)

// Target is a drop location.
type Target struct {
	Kind    TargetKind
	StageID int                   // for TargetColumn
	Card    *pipeline.Application // for TargetCard
}

// Column targets a stage container.
func Column(stageID int) Target { return Target{Kind: TargetColumn, StageID: stageID} }

// Card targets another candidate's card; it resolves to that card's column.
func Card(app pipeline.Application) Target { return Target{Kind: TargetCard, Card: &app} }

// Nowhere is a release outside any valid target.
var Nowhere = Target{Kind: TargetNone}

// stage returns the stage the target resolves to, or false for no target.
func (t Target) stage() (int, bool) {
	switch t.Kind {
	case TargetColumn:
		return t.StageID, true
	case TargetCard:
		if t.Card == nil {
			return 0, false
		}
		return t.Card.StageID(), true
	}
	return 0, false
}

// Outcome is how a gesture step ended.
type Outcome string

const (
	OutcomeMoved     Outcome = "moved"
	OutcomeRejected  Outcome = "rejected"  // silent snap-back
	OutcomeCancelled Outcome = "cancelled" // notice shown, nothing changed
	OutcomeFailed    Outcome = "failed"    // accepted but the move was rolled back
	OutcomePickedUp  Outcome = "picked-up"
	OutcomeHovering  Outcome = "hovering"
	OutcomeIgnored   Outcome = "ignored"
)

// Terminal reports whether the outcome returned the resolver to Idle.
func (o Outcome) Terminal() bool {
	switch o {
	case OutcomeMoved, OutcomeRejected, OutcomeCancelled, OutcomeFailed:
		return true
	}
	return false
}

// Resolution describes one gesture step.
type Resolution struct {
	Outcome       Outcome               `json:"outcome"`
	ApplicationID int                   `json:"application_id,omitempty"`
	FromStage     int                   `json:"from_stage"`
	ToStage       int                   `json:"to_stage"`
	Reason        transition.Reason     `json:"reason,omitempty"`
	Notice        string                `json:"notice,omitempty"`
	Application   *pipeline.Application `json:"application,omitempty"`
	Err           error                 `json:"-"`
}

// Mover performs an accepted move through the optimistic protocol. On error
// the local state has already been restored.
type Mover interface {
	Move(ctx context.Context, app pipeline.Application, stageID int) (pipeline.Application, error)
}

// MoverFunc adapts a function to Mover.
type MoverFunc func(ctx context.Context, app pipeline.Application, stageID int) (pipeline.Application, error)

func (f MoverFunc) Move(ctx context.Context, app pipeline.Application, stageID int) (pipeline.Application, error) {
	return f(ctx, app, stageID)
}

// Resolver is the Idle → Dragging → Dropped|Cancelled → Idle state machine.
type Resolver struct {
	mover     Mover
	stageName func(id int) string

	mu        sync.Mutex
	state     State
	active    pipeline.Application
	columns   []int
	cursor    int
	onOutcome func(Outcome)
}

// NewResolver creates an idle resolver. stageName is used for notices and
// may be nil.
func NewResolver(mover Mover, stageName func(id int) string) *Resolver {
	if stageName == nil {
		stageName = func(id int) string { return fmt.Sprintf("stage %d", id) }
	}
	return &Resolver{mover: mover, stageName: stageName, cursor: -1}
}

// OnOutcome registers a hook called after every terminal outcome.
func (r *Resolver) OnOutcome(fn func(Outcome)) {
	r.mu.Lock()
	r.onOutcome = fn
	r.mu.Unlock()
}

// SetColumns sets the displayed column order used by keyboard navigation.
func (r *Resolver) SetColumns(ids []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.columns = append([]int(nil), ids...)
	if r.state == StateDragging {
		r.cursor = indexOf(r.columns, r.active.StageID())
	}
}

// State returns the current gesture state.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Active returns the lifted card, if any.
func (r *Resolver) Active() (pipeline.Application, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateDragging {
		return pipeline.Application{}, false
	}
	return r.active.Clone(), true
}

// Start lifts app.
func (r *Resolver) Start(app pipeline.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateDragging {
		return fmt.Errorf("start drag of application %d: %w", app.ID, ErrAlreadyDragging)
	}
	r.state = StateDragging
	r.active = app.Clone()
	r.cursor = indexOf(r.columns, app.StageID())
	return nil
}

// Drop releases the lifted card over target. A release with no target
// cancels. Rejected transitions snap back silently without calling the
// mover.
func (r *Resolver) Drop(ctx context.Context, target Target) (Resolution, error) {
	app, err := r.release()
	if err != nil {
		return Resolution{}, err
	}
	stageID, ok := target.stage()
	if !ok {
		return r.finish(r.cancelled(app)), nil
	}

	res := Resolution{ApplicationID: app.ID, FromStage: app.StageID(), ToStage: stageID}
	if dec := transition.Validate(app, stageID); !dec.Accepted {
		res.Outcome = OutcomeRejected
		res.Reason = dec.Reason
		return r.finish(res), nil
	}

	moved, err := r.mover.Move(ctx, app, stageID)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		zap.S().Named("dragdrop").Infow("drop reverted", "application_id", app.ID, "to_stage", stageID, "error", err)
		return r.finish(res), nil
	}
	res.Outcome = OutcomeMoved
	res.Application = &moved
	return r.finish(res), nil
}

// Cancel abandons the gesture and returns a notice for the operator.
func (r *Resolver) Cancel() (Resolution, error) {
	app, err := r.release()
	if err != nil {
		return Resolution{}, err
	}
	return r.finish(r.cancelled(app)), nil
}

func (r *Resolver) release() (pipeline.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateDragging {
		return pipeline.Application{}, ErrNotDragging
	}
	app := r.active
	r.state = StateIdle
	r.active = pipeline.Application{}
	r.cursor = -1
	return app, nil
}

func (r *Resolver) cancelled(app pipeline.Application) Resolution {
	from := app.StageID()
	name := app.Name
	if name == "" {
		name = fmt.Sprintf("Application %d", app.ID)
	}
	return Resolution{
		Outcome:       OutcomeCancelled,
		ApplicationID: app.ID,
		FromStage:     from,
		ToStage:       from,
		Notice:        fmt.Sprintf("Move cancelled. %s was returned to %s.", name, r.stageName(from)),
	}
}

func (r *Resolver) finish(res Resolution) Resolution {
	r.mu.Lock()
	hook := r.onOutcome
	r.mu.Unlock()
	if hook != nil {
		hook(res.Outcome)
	}
	return res
}

func indexOf(ids []int, id int) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
