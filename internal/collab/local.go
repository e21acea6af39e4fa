package collab

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lucasnoah/hirepipe/internal/db"
	"github.com/lucasnoah/hirepipe/internal/pipeline"
)

// Local implements Actions directly against the database.
type Local struct {
	db    *db.DB
	actor string
}

// NewLocal creates a Local collaborator that records actor on history rows.
func NewLocal(database *db.DB, actor string) *Local {
	return &Local{db: database, actor: actor}
}

func (l *Local) ListStages(ctx context.Context) ([]pipeline.Stage, error) {
	return l.db.ListStages(ctx)
}

func (l *Local) ListApplications(ctx context.Context) ([]pipeline.Application, error) {
	return l.db.ListApplications(ctx)
}

func (l *Local) MoveStage(ctx context.Context, appID, stageID int, notes string) (*pipeline.Application, error) {
	app, err := l.db.MoveApplication(ctx, appID, pipeline.StagePtr(stageID), notes, l.actor)
	if err != nil {
		return nil, mapDBError(err)
	}
	return app, nil
}

func (l *Local) SendEmail(ctx context.Context, appID, templateID int) (*Receipt, error) {
	r, err := l.db.RecordEmail(ctx, appID, templateID)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &Receipt{ID: r.ID, ApplicationID: r.ApplicationID, TemplateID: r.TemplateID, SentAt: r.SentAt}, nil
}

func (l *Local) SendFormInvitation(ctx context.Context, appID, formID int, customMessage string) (*Invitation, error) {
	inv, err := l.db.CreateFormInvitation(ctx, appID, formID, customMessage)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &Invitation{
		ID:            inv.ID,
		ApplicationID: inv.ApplicationID,
		FormID:        inv.FormID,
		CustomMessage: inv.CustomMessage,
		CreatedAt:     inv.CreatedAt,
	}, nil
}

func (l *Local) UpdateStatus(ctx context.Context, appID int, status pipeline.Status, notes string) (*pipeline.Application, error) {
	if _, err := pipeline.ParseStatus(string(status)); err != nil {
		return nil, err
	}
	app, err := l.db.UpdateStatus(ctx, appID, status, notes, l.actor)
	if err != nil {
		return nil, mapDBError(err)
	}
	return app, nil
}

// ScheduleInterviewBatch records one interview per candidate in request
// order. Candidates that cannot be scheduled are counted, not returned as an
// error.
func (l *Local) ScheduleInterviewBatch(ctx context.Context, req InterviewBatchRequest) (*InterviewBatchResult, error) {
	res := &InterviewBatchResult{Total: len(req.ApplicationIDs)}
	log := zap.S().Named("collab")
	for _, slot := range pipeline.InterviewSlots(req.ApplicationIDs, req.StartTime, req.IntervalHours) {
		id := slot.ApplicationID
		err := l.db.ScheduleInterview(ctx, db.InterviewOpts{
			ApplicationID: id,
			StartsAt:      slot.StartsAt,
			Location:      req.Location,
			Notes:         req.Notes,
			StageID:       req.StageID,
			Actor:         l.actor,
		})
		if err != nil {
			log.Warnw("interview not scheduled", "application_id", id, "error", err)
			res.Failed++
			continue
		}
		res.Scheduled++
	}
	return res, nil
}

func (l *Local) History(ctx context.Context, appID int) ([]pipeline.StageTransition, error) {
	app, err := l.db.GetApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, fmt.Errorf("application %d: %w", appID, ErrNotFound)
	}
	return l.db.ListTransitions(ctx, appID)
}

// mapDBError translates storage sentinels to collaborator sentinels, keeping
// the original message.
func mapDBError(err error) error {
	switch {
	case errors.Is(err, db.ErrDuplicate):
		return fmt.Errorf("%w: %v", ErrDuplicateInvitation, err)
	case errors.Is(err, db.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
