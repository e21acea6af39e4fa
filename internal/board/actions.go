package board

import (
	"context"
	"fmt"

	"github.com/lucasnoah/hirepipe/internal/bulk"
	"github.com/lucasnoah/hirepipe/internal/collab"
	"github.com/lucasnoah/hirepipe/internal/dragdrop"
	"github.com/lucasnoah/hirepipe/internal/events"
	"github.com/lucasnoah/hirepipe/internal/metrics"
	"github.com/lucasnoah/hirepipe/internal/optimistic"
	"github.com/lucasnoah/hirepipe/internal/pipeline"
	"github.com/lucasnoah/hirepipe/internal/reports"
	"github.com/lucasnoah/hirepipe/internal/transition"
)

// MoveResult is the outcome of a single-candidate move.
type MoveResult struct {
	Decision    transition.Decision  `json:"decision"`
	Application pipeline.Application `json:"application"`
}

// QuickMove validates and applies a single move. Rejected moves return the
// decision with a nil error and touch nothing. A failed collaborator call
// restores the candidate and returns an *optimistic.RollbackError.
func (b *Board) QuickMove(ctx context.Context, id, stageID int, notes string) (MoveResult, error) {
	app, ok := b.store.Get(id)
	if !ok {
		return MoveResult{}, fmt.Errorf("application %d: %w", id, optimistic.ErrNotFound)
	}
	dec := transition.Validate(app, stageID)
	if !dec.Accepted {
		return MoveResult{Decision: dec, Application: app}, nil
	}
	if !b.Graph().Contains(stageID) {
		return MoveResult{Decision: dec, Application: app}, fmt.Errorf("stage %d: %w", stageID, ErrUnknownStage)
	}
	cur, err := b.move(ctx, app, stageID, notes)
	return MoveResult{Decision: dec, Application: cur}, err
}

// move runs the optimistic protocol for an already accepted move.
func (b *Board) move(ctx context.Context, app pipeline.Application, stageID int, notes string) (pipeline.Application, error) {
	cur, err := b.manager.Do(ctx, app.ID,
		func(a *pipeline.Application) { a.CurrentStage = pipeline.StagePtr(stageID) },
		func(ctx context.Context) (*pipeline.Application, error) {
			return b.actions.MoveStage(ctx, app.ID, stageID, notes)
		},
	)
	if err != nil {
		return cur, err
	}
	b.publish(events.TypeCardMoved, map[string]any{
		"application_id": app.ID,
		"from":           app.StageID(),
		"to":             stageID,
	})
	b.log().Infow("application moved", "application_id", app.ID, "from", app.StageID(), "to", stageID)
	return cur, nil
}

func (b *Board) moveForDrag(ctx context.Context, app pipeline.Application, stageID int) (pipeline.Application, error) {
	if !b.Graph().Contains(stageID) {
		return app, fmt.Errorf("stage %d: %w", stageID, ErrUnknownStage)
	}
	return b.move(ctx, app, stageID, "")
}

// ─── Bulk ────────────────────────────────────────────────────────────────────

// RunBulkCommand runs cmd through the coordinator. Successful moves and
// archives are reconciled into the local view as they settle. The selection
// is cleared only when no item failed.
func (b *Board) RunBulkCommand(ctx context.Context, cmd bulk.Command, progress bulk.ProgressFunc) bulk.Result {
	if cmd.Kind() == bulk.KindMoveStage && !b.Graph().Contains(cmd.Payload().StageID) {
		b.log().Warnw("bulk move targets a stage outside the board", "stage_id", cmd.Payload().StageID)
	}

	d := bulk.Dispatch{
		Actions: b.actions,
		Lookup:  b.store.Get,
		Reconcile: func(app *pipeline.Application) {
			if err := b.store.Commit(app.ID, app); err != nil {
				b.log().Debugw("reconcile skipped", "application_id", app.ID, "error", err)
			}
		},
	}

	res := b.coordinator.Run(ctx, cmd, d.ItemFunc(cmd), func(done, total int) {
		b.publish(events.TypeBulkProgress, map[string]any{
			"kind":      cmd.Kind(),
			"completed": done,
			"total":     total,
		})
		if progress != nil {
			progress(done, total)
		}
	})

	if res.OK() {
		b.selection.Clear()
	}
	result := "ok"
	if !res.OK() {
		result = "partial"
	}
	metrics.IncreaseBulkRunsMetric(string(res.Kind), result)

	if b.reports != nil {
		if err := b.reports.Save(reports.FromResult(res, b.actor)); err != nil {
			b.log().Warnw("save run report failed", "run_id", res.RunID, "error", err)
		}
	}
	b.publish(events.TypeBulkCompleted, res)
	b.log().Infow(res.Summary(), "run_id", res.RunID, "kind", res.Kind)
	return res
}

// RunOnSelection builds a command of kind over the current selection and runs it.
func (b *Board) RunOnSelection(ctx context.Context, kind bulk.Kind, payload bulk.Payload, progress bulk.ProgressFunc) (bulk.Result, error) {
	cmd, err := bulk.NewCommand(kind, b.selection.IDs(), payload)
	if err != nil {
		return bulk.Result{}, err
	}
	return b.RunBulkCommand(ctx, cmd, progress), nil
}

// ScheduleInterviews dispatches plan as one collaborator call and refreshes
// the local view afterwards. The selection is cleared when nothing failed.
func (b *Board) ScheduleInterviews(ctx context.Context, plan bulk.InterviewPlan) (*collab.InterviewBatchResult, error) {
	res, err := b.actions.ScheduleInterviewBatch(ctx, plan.Request())
	if err != nil {
		return nil, fmt.Errorf("schedule interviews: %w", err)
	}
	metrics.AddInterviewsMetric(res.Scheduled, res.Failed)
	if res.Failed == 0 {
		b.selection.Clear()
	}
	b.publish(events.TypeInterviewsScheduled, res)
	b.log().Infow("interviews scheduled", "scheduled", res.Scheduled, "failed", res.Failed, "total", res.Total)
	if err := b.Refresh(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// History returns a candidate's stage transitions.
func (b *Board) History(ctx context.Context, id int) ([]pipeline.StageTransition, error) {
	return b.actions.History(ctx, id)
}

// ─── Drag ────────────────────────────────────────────────────────────────────

// DragEventType names one step of a drag gesture.
type DragEventType string

const (
	DragStart  DragEventType = "start"
	DragDrop   DragEventType = "drop"
	DragCancel DragEventType = "cancel"
	DragKey    DragEventType = "key"
)

// DragEvent is a gesture step from a UI caller. Candidates are referenced by
// ID and resolved against the local view.
type DragEvent struct {
	Type          DragEventType       `json:"type"`
	ApplicationID int                 `json:"application_id,omitempty"` // start, key focus
	Target        dragdrop.TargetKind `json:"target,omitempty"`         // drop
	StageID       int                 `json:"stage_id,omitempty"`       // drop on column
	CardID        int                 `json:"card_id,omitempty"`        // drop on card
	Key           string              `json:"key,omitempty"`            // key
}

// ResolveDrag feeds one gesture step to the drag resolver.
func (b *Board) ResolveDrag(ctx context.Context, ev DragEvent) (dragdrop.Resolution, error) {
	switch ev.Type {
	case DragStart:
		app, ok := b.store.Get(ev.ApplicationID)
		if !ok {
			return dragdrop.Resolution{}, fmt.Errorf("application %d: %w", ev.ApplicationID, optimistic.ErrNotFound)
		}
		if err := b.drag.Start(app); err != nil {
			return dragdrop.Resolution{}, err
		}
		return dragdrop.Resolution{
			Outcome:       dragdrop.OutcomePickedUp,
			ApplicationID: app.ID,
			FromStage:     app.StageID(),
			ToStage:       app.StageID(),
		}, nil

	case DragDrop:
		target, err := b.dropTarget(ev)
		if err != nil {
			return dragdrop.Resolution{}, err
		}
		return b.drag.Drop(ctx, target)

	case DragCancel:
		return b.drag.Cancel()

	case DragKey:
		key, err := dragdrop.ParseKey(ev.Key)
		if err != nil {
			return dragdrop.Resolution{}, err
		}
		var focus *pipeline.Application
		if app, ok := b.store.Get(ev.ApplicationID); ok {
			focus = &app
		}
		return b.drag.HandleKey(ctx, key, focus)
	}
	return dragdrop.Resolution{}, fmt.Errorf("unknown drag event type %q", ev.Type)
}

func (b *Board) dropTarget(ev DragEvent) (dragdrop.Target, error) {
	switch ev.Target {
	case dragdrop.TargetColumn:
		if !b.onBoard(ev.StageID) {
			return dragdrop.Nowhere, nil
		}
		return dragdrop.Column(ev.StageID), nil
	case dragdrop.TargetCard:
		card, ok := b.store.Get(ev.CardID)
		if !ok || !b.onBoard(card.StageID()) {
			return dragdrop.Nowhere, nil
		}
		return dragdrop.Card(card), nil
	case dragdrop.TargetNone, "":
		return dragdrop.Nowhere, nil
	}
	return dragdrop.Target{}, fmt.Errorf("unknown drop target %q", ev.Target)
}

// onBoard reports whether stageID is a column a card can be dropped on or
// over: a real stage or the Unassigned column.
func (b *Board) onBoard(stageID int) bool {
	return stageID == pipeline.UnassignedStageID || b.Graph().Contains(stageID)
}
