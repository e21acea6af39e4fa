package bulk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the in-flight cap used when none is configured.
const DefaultConcurrency = 3

// ErrSkip tells the Coordinator an item needed no work. The item counts as a
// success with Outcome.Skipped set.
var ErrSkip = errors.New("skip item")

// ItemFunc performs the single-item action for id.
type ItemFunc func(ctx context.Context, id int) error

// ProgressFunc receives (completed, total) after each item settles. Calls are
// serialized and completed only increases.
type ProgressFunc func(completed, total int)

// Coordinator runs commands in consecutive batches of at most limit items.
// Each batch settles fully before the next one starts.
type Coordinator struct {
	limit  int
	onItem func(kind Kind, o Outcome)
}

// NewCoordinator creates a Coordinator. limit <= 0 selects DefaultConcurrency.
func NewCoordinator(limit int) *Coordinator {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	return &Coordinator{limit: limit}
}

// Limit returns the batch size.
func (c *Coordinator) Limit() int { return c.limit }

// OnItem registers a hook called once per settled item (used for metrics).
func (c *Coordinator) OnItem(fn func(kind Kind, o Outcome)) {
	c.onItem = fn
}

// Run dispatches item for every target and returns the aggregate result.
// A failing item never stops its siblings or later batches. Cancelling ctx
// does not interrupt a run once started.
func (c *Coordinator) Run(ctx context.Context, cmd Command, item ItemFunc, progress ProgressFunc) Result {
	ids := cmd.TargetIDs()
	res := Result{
		RunID:     uuid.NewString(),
		Kind:      cmd.Kind(),
		Total:     len(ids),
		PerItem:   make(map[int]Outcome, len(ids)),
		StartedAt: time.Now().UTC(),
	}
	log := zap.S().Named("bulk").With("run_id", res.RunID, "kind", res.Kind)
	log.Infow("bulk run started", "total", res.Total, "limit", c.limit)

	ctx = context.WithoutCancel(ctx)

	var mu sync.Mutex
	completed := 0
	settle := func(id int, o Outcome) {
		mu.Lock()
		defer mu.Unlock()
		res.PerItem[id] = o
		if o.OK {
			res.Succeeded++
		} else {
			res.Failed++
			log.Debugw("bulk item failed", "application_id", id, "failure", o.Failure, "reason", o.Reason)
		}
		completed++
		if c.onItem != nil {
			c.onItem(res.Kind, o)
		}
		if progress != nil {
			progress(completed, res.Total)
		}
	}

	for start := 0; start < len(ids); start += c.limit {
		end := min(start+c.limit, len(ids))
		var g errgroup.Group
		for _, id := range ids[start:end] {
			g.Go(func() error {
				settle(id, outcomeOf(res.Kind, runItem(ctx, item, id)))
				return nil
			})
		}
		_ = g.Wait()
	}

	res.FinishedAt = time.Now().UTC()
	log.Infow("bulk run finished",
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"duration", res.FinishedAt.Sub(res.StartedAt))
	return res
}

// runItem calls item, turning a panic into an ordinary failure.
func runItem(ctx context.Context, item ItemFunc, id int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return item(ctx, id)
}

func outcomeOf(kind Kind, err error) Outcome {
	switch {
	case err == nil:
		return Outcome{OK: true}
	case errors.Is(err, ErrSkip):
		return Outcome{OK: true, Skipped: true}
	default:
		return Outcome{Failure: Classify(kind, err), Reason: err.Error()}
	}
}
