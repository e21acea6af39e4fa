package bulk

import (
	"context"
	"fmt"

	"github.com/lucasnoah/hirepipe/internal/collab"
	"github.com/lucasnoah/hirepipe/internal/pipeline"
	"github.com/lucasnoah/hirepipe/internal/transition"
)

// Dispatch builds the single-item action for a command.
type Dispatch struct {
	Actions collab.Actions
	// Lookup returns the candidate's local state. Optional; when set, move
	// items already in the target stage are skipped without a call.
	Lookup func(id int) (pipeline.Application, bool)
	// Reconcile receives the authoritative candidate after a successful
	// move or archive. Optional.
	Reconcile func(app *pipeline.Application)
}

// ItemFunc returns the per-item action for cmd.
func (d Dispatch) ItemFunc(cmd Command) ItemFunc {
	p := cmd.Payload()
	switch cmd.Kind() {
	case KindMoveStage:
		return func(ctx context.Context, id int) error {
			if d.Lookup != nil {
				if app, ok := d.Lookup(id); ok {
					if dec := transition.Validate(app, p.StageID); !dec.Accepted {
						if dec.IsNoOp() {
							return ErrSkip
						}
						return dec.Err()
					}
				}
			}
			app, err := d.Actions.MoveStage(ctx, id, p.StageID, p.Notes)
			if err != nil {
				return fmt.Errorf("move application %d to stage %d: %w", id, p.StageID, err)
			}
			d.reconcile(app)
			return nil
		}
	case KindSendEmail:
		return func(ctx context.Context, id int) error {
			if _, err := d.Actions.SendEmail(ctx, id, p.TemplateID); err != nil {
				return fmt.Errorf("email application %d: %w", id, err)
			}
			return nil
		}
	case KindSendForm:
		return func(ctx context.Context, id int) error {
			if _, err := d.Actions.SendFormInvitation(ctx, id, p.FormID, p.CustomMessage); err != nil {
				return fmt.Errorf("invite application %d to form %d: %w", id, p.FormID, err)
			}
			return nil
		}
	case KindArchive:
		return func(ctx context.Context, id int) error {
			app, err := d.Actions.UpdateStatus(ctx, id, pipeline.StatusRejected, ArchiveNote)
			if err != nil {
				return fmt.Errorf("archive application %d: %w", id, err)
			}
			d.reconcile(app)
			return nil
		}
	}
	return func(ctx context.Context, id int) error {
		return fmt.Errorf("%w: unsupported kind %q", ErrInvalidCommand, cmd.Kind())
	}
}

func (d Dispatch) reconcile(app *pipeline.Application) {
	if d.Reconcile != nil && app != nil {
		d.Reconcile(app)
	}
}
