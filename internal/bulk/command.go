// Package bulk fans one logical action out over a set of candidates with
// bounded concurrency, recording an outcome for every item.
package bulk

import (
	"errors"
	"fmt"
	"time"

	"github.com/lucasnoah/hirepipe/internal/collab"
	"github.com/lucasnoah/hirepipe/internal/pipeline"
)

// Kind is the logical action a command applies.
type Kind string

const (
	KindMoveStage Kind = "move_stage"
	KindSendEmail Kind = "send_email"
	KindSendForm  Kind = "send_form"
	KindArchive   Kind = "archive"
)

// ArchiveNote is attached to the status update an archive performs.
const ArchiveNote = "Archived via bulk action"

// ParseKind converts a raw string to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	switch k {
	case KindMoveStage, KindSendEmail, KindSendForm, KindArchive:
		return k, nil
	}
	return "", fmt.Errorf("unknown bulk command kind %q", s)
}

// verb is the word used in result summaries.
func (k Kind) verb() string {
	switch k {
	case KindMoveStage:
		return "Moved"
	case KindSendEmail:
		return "Emailed"
	case KindSendForm:
		return "Invited"
	case KindArchive:
		return "Archived"
	}
	return "Succeeded"
}

// Payload carries the kind-specific arguments of a command.
type Payload struct {
	StageID       int    `json:"stage_id,omitempty"`
	Notes         string `json:"notes,omitempty"`
	TemplateID    int    `json:"template_id,omitempty"`
	FormID        int    `json:"form_id,omitempty"`
	CustomMessage string `json:"custom_message,omitempty"`
}

var (
	// ErrEmptyTargets is returned when a command has no candidates.
	ErrEmptyTargets = errors.New("bulk command needs at least one target")
	// ErrInvalidCommand wraps every other construction failure.
	ErrInvalidCommand = errors.New("invalid bulk command")
)

// Command is one logical action over a set of candidates. It is built by
// NewCommand and not modified afterwards.
type Command struct {
	kind    Kind
	ids     []int
	payload Payload
}

// NewCommand validates and freezes a command. Duplicate IDs collapse to the
// first occurrence; the ID slice is copied.
func NewCommand(kind Kind, ids []int, payload Payload) (Command, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	targets := dedupe(ids)
	if len(targets) == 0 {
		return Command{}, ErrEmptyTargets
	}
	for _, id := range targets {
		if id <= 0 {
			return Command{}, fmt.Errorf("%w: application id %d must be positive", ErrInvalidCommand, id)
		}
	}

	switch kind {
	case KindMoveStage:
		if payload.StageID == pipeline.UnassignedStageID {
			return Command{}, fmt.Errorf("%w: the Unassigned column is read-only", ErrInvalidCommand)
		}
		if payload.StageID < 0 {
			return Command{}, fmt.Errorf("%w: stage id %d must be positive", ErrInvalidCommand, payload.StageID)
		}
	case KindSendEmail:
		if payload.TemplateID <= 0 {
			return Command{}, fmt.Errorf("%w: template id is required", ErrInvalidCommand)
		}
	case KindSendForm:
		if payload.FormID <= 0 {
			return Command{}, fmt.Errorf("%w: form id is required", ErrInvalidCommand)
		}
	}

	return Command{kind: kind, ids: targets, payload: payload}, nil
}

// Kind returns the command's action.
func (c Command) Kind() Kind { return c.kind }

// TargetIDs returns a copy of the targets in build order.
func (c Command) TargetIDs() []int {
	out := make([]int, len(c.ids))
	copy(out, c.ids)
	return out
}

// Payload returns the command arguments.
func (c Command) Payload() Payload { return c.payload }

// Len returns the number of targets.
func (c Command) Len() int { return len(c.ids) }

func dedupe(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ─── Interview batches ───────────────────────────────────────────────────────

// InterviewPlan is a batch interview schedule. It is dispatched as a single
// collaborator call rather than fanned out through the Coordinator.
type InterviewPlan struct {
	ApplicationIDs []int
	Start          time.Time
	IntervalHours  float64
	Location       string
	Notes          string
	StageID        *int
}

// NewInterviewPlan validates a plan. ids keep their order; duplicates collapse.
func NewInterviewPlan(ids []int, start time.Time, intervalHours float64, location, notes string, stageID *int) (InterviewPlan, error) {
	targets := dedupe(ids)
	if len(targets) == 0 {
		return InterviewPlan{}, ErrEmptyTargets
	}
	if start.IsZero() {
		return InterviewPlan{}, fmt.Errorf("%w: start time is required", ErrInvalidCommand)
	}
	if intervalHours < 0 {
		return InterviewPlan{}, fmt.Errorf("%w: interval must not be negative", ErrInvalidCommand)
	}
	if stageID != nil && *stageID <= 0 {
		return InterviewPlan{}, fmt.Errorf("%w: stage id %d is not a real stage", ErrInvalidCommand, *stageID)
	}
	return InterviewPlan{
		ApplicationIDs: targets,
		Start:          start,
		IntervalHours:  intervalHours,
		Location:       location,
		Notes:          notes,
		StageID:        stageID,
	}, nil
}

// Slots returns the start time assigned to each candidate.
func (p InterviewPlan) Slots() []pipeline.InterviewSlot {
	return pipeline.InterviewSlots(p.ApplicationIDs, p.Start, p.IntervalHours)
}

// Request converts the plan to the collaborator request.
func (p InterviewPlan) Request() collab.InterviewBatchRequest {
	ids := make([]int, len(p.ApplicationIDs))
	copy(ids, p.ApplicationIDs)
	return collab.InterviewBatchRequest{
		ApplicationIDs: ids,
		StartTime:      p.Start,
		IntervalHours:  p.IntervalHours,
		Location:       p.Location,
		Notes:          p.Notes,
		StageID:        p.StageID,
	}
}
