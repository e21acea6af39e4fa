// Package board is the operator-facing surface of the pipeline: it holds the
// local view of stages and candidates and routes every change through
// validation, the optimistic protocol or the bulk coordinator.
package board

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/lucasnoah/hirepipe/internal/bulk"
	"github.com/lucasnoah/hirepipe/internal/collab"
	"github.com/lucasnoah/hirepipe/internal/dragdrop"
	"github.com/lucasnoah/hirepipe/internal/events"
	"github.com/lucasnoah/hirepipe/internal/metrics"
	"github.com/lucasnoah/hirepipe/internal/optimistic"
	"github.com/lucasnoah/hirepipe/internal/pipeline"
	"github.com/lucasnoah/hirepipe/internal/reports"
	"github.com/lucasnoah/hirepipe/internal/selection"
)

// ErrUnknownStage is returned when a move targets a stage outside the graph.
var ErrUnknownStage = errors.New("unknown stage")

// Options configures a Board. Zero values select defaults.
type Options struct {
	Actor            string
	ConcurrencyLimit int
	Publisher        events.Publisher
	Reports          *reports.Store // nil disables run reports
}

// Board wires the pipeline core together for one operator session.
type Board struct {
	actions   collab.Actions
	actor     string
	publisher events.Publisher
	reports   *reports.Store

	store       *optimistic.MemoryStore
	manager     *optimistic.Manager
	coordinator *bulk.Coordinator
	selection   *selection.Set
	drag        *dragdrop.Resolver

	mu    sync.RWMutex
	graph *pipeline.Graph
}

// New creates an empty Board. Call Refresh to load it.
func New(actions collab.Actions, opts Options) *Board {
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	b := &Board{
		actions:     actions,
		actor:       opts.Actor,
		publisher:   opts.Publisher,
		reports:     opts.Reports,
		store:       optimistic.NewMemoryStore(nil),
		coordinator: bulk.NewCoordinator(opts.ConcurrencyLimit),
		selection:   selection.New(),
		graph:       pipeline.NewGraph(nil),
	}
	b.manager = optimistic.NewManager(b.store)
	b.manager.OnRollback(func(id int, err error) {
		metrics.IncreaseRollbacksMetric()
		b.publish(events.TypeCardReverted, map[string]any{"application_id": id, "error": err.Error()})
	})
	b.coordinator.OnItem(func(kind bulk.Kind, o bulk.Outcome) {
		metrics.IncreaseBulkItemsMetric(string(kind), outcomeLabel(o))
	})
	b.drag = dragdrop.NewResolver(dragdrop.MoverFunc(b.moveForDrag), b.stageName)
	b.drag.OnOutcome(func(o dragdrop.Outcome) {
		metrics.IncreaseDragOutcomesMetric(string(o))
	})
	return b
}

func (b *Board) log() *zap.SugaredLogger {
	return zap.S().Named("board")
}

// Selection returns the session's selection set.
func (b *Board) Selection() *selection.Set { return b.selection }

// Drag returns the session's drag resolver.
func (b *Board) Drag() *dragdrop.Resolver { return b.drag }

// Graph returns the current stage graph.
func (b *Board) Graph() *pipeline.Graph {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.graph
}

// Applications returns the local candidate view in list order.
func (b *Board) Applications() []pipeline.Application {
	return b.store.List()
}

// Application returns one candidate from the local view.
func (b *Board) Application(id int) (pipeline.Application, bool) {
	return b.store.Get(id)
}

// Refresh replaces the local view with the collaborator's stages and
// candidates.
func (b *Board) Refresh(ctx context.Context) error {
	stages, err := b.actions.ListStages(ctx)
	if err != nil {
		return fmt.Errorf("refresh stages: %w", err)
	}
	apps, err := b.actions.ListApplications(ctx)
	if err != nil {
		return fmt.Errorf("refresh applications: %w", err)
	}
	g := pipeline.NewGraph(stages)
	b.mu.Lock()
	b.graph = g
	b.mu.Unlock()
	b.store.Replace(apps)
	b.log().Debugw("board refreshed", "stages", g.Len(), "applications", len(apps))
	return nil
}

func (b *Board) stageName(id int) string {
	if name := b.Graph().StageName(id); name != "" {
		return name
	}
	return fmt.Sprintf("stage %d", id)
}

func (b *Board) publish(t events.Type, data any) {
	if err := b.publisher.Publish(context.Background(), events.New(t, data)); err != nil {
		b.log().Warnw("publish event failed", "type", t, "error", err)
	}
}

func outcomeLabel(o bulk.Outcome) string {
	switch {
	case o.Skipped:
		return "skipped"
	case o.OK:
		return "ok"
	}
	return string(o.Failure)
}

// ─── Columns ─────────────────────────────────────────────────────────────────

// StageColumn is a display column with its candidates split into buckets.
type StageColumn struct {
	pipeline.Column
	Buckets  pipeline.Buckets   `json:"buckets"`
	Sections []pipeline.Section `json:"sections"`
	Flat     bool               `json:"flat"`
}

// StageColumns returns the filtered candidates laid out in display order.
// The drag resolver's keyboard navigation follows the same column order.
func (b *Board) StageColumns(f pipeline.Filter) []StageColumn {
	cols := b.Graph().ColumnsForDisplay(f.Apply(b.store.List()))
	b.drag.SetColumns(pipeline.ColumnIDs(cols))

	out := make([]StageColumn, len(cols))
	for i, c := range cols {
		buckets := pipeline.Categorize(c.Applications)
		out[i] = StageColumn{
			Column:   c,
			Buckets:  buckets,
			Sections: buckets.Sections(),
			Flat:     buckets.Flat(),
		}
	}
	return out
}

// VisibleIDs returns the IDs of the candidates matching f, in list order.
func (b *Board) VisibleIDs(f pipeline.Filter) []int {
	apps := f.Apply(b.store.List())
	ids := make([]int, len(apps))
	for i, a := range apps {
		ids[i] = a.ID
	}
	return ids
}
