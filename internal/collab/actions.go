// Package collab defines the collaborator action surface the pipeline core
// calls into, plus a local SQL-backed implementation and an HTTP client.
//
// The collaborator owns persistence and authorization. The core treats every
// call as a network-bound operation that may fail independently.
package collab

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lucasnoah/hirepipe/internal/pipeline"
)

// Actions is everything the core needs from the collaborator service.
type Actions interface {
	ListStages(ctx context.Context) ([]pipeline.Stage, error)
	ListApplications(ctx context.Context) ([]pipeline.Application, error)
	MoveStage(ctx context.Context, appID, stageID int, notes string) (*pipeline.Application, error)
	SendEmail(ctx context.Context, appID, templateID int) (*Receipt, error)
	SendFormInvitation(ctx context.Context, appID, formID int, customMessage string) (*Invitation, error)
	UpdateStatus(ctx context.Context, appID int, status pipeline.Status, notes string) (*pipeline.Application, error)
	ScheduleInterviewBatch(ctx context.Context, req InterviewBatchRequest) (*InterviewBatchResult, error)
	History(ctx context.Context, appID int) ([]pipeline.StageTransition, error)
}

// Receipt acknowledges a queued email.
type Receipt struct {
	ID            int       `json:"id"`
	ApplicationID int       `json:"application_id"`
	TemplateID    int       `json:"template_id"`
	SentAt        time.Time `json:"sent_at"`
}

// Invitation is a form invitation sent to a candidate.
type Invitation struct {
	ID            int       `json:"id"`
	ApplicationID int       `json:"application_id"`
	FormID        int       `json:"form_id"`
	CustomMessage string    `json:"custom_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// InterviewBatchRequest schedules one interview per candidate, spaced by
// IntervalHours starting at StartTime, in ApplicationIDs order.
type InterviewBatchRequest struct {
	ApplicationIDs []int     `json:"application_ids"`
	StartTime      time.Time `json:"start_time"`
	IntervalHours  float64   `json:"interval_hours"`
	Location       string    `json:"location"`
	Notes          string    `json:"notes,omitempty"`
	StageID        *int      `json:"stage_id,omitempty"`
}

// InterviewBatchResult is the server-side tally of a batch schedule.
type InterviewBatchResult struct {
	Scheduled int `json:"scheduled_count"`
	Failed    int `json:"failed_count"`
	Total     int `json:"total"`
}

// ─── Errors ──────────────────────────────────────────────────────────────────

var (
	// ErrNotFound is returned when an application, stage or form is missing.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateInvitation is returned when the form was already sent to the candidate.
	ErrDuplicateInvitation = errors.New("invitation already sent")
	// ErrUnauthorized is returned when the operator may not perform the action.
	ErrUnauthorized = errors.New("unauthorized")
)

// StatusError carries a non-2xx response from a remote collaborator.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("collaborator returned status %d", e.Code)
	}
	return fmt.Sprintf("collaborator returned status %d: %s", e.Code, e.Message)
}

// Unwrap maps well-known status codes to the package sentinels.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case 401, 403:
		return ErrUnauthorized
	case 404:
		return ErrNotFound
	}
	return nil
}
