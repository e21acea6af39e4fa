// Package transition decides whether a proposed stage move is legal.
//
// Rules, applied in order:
//
//	target == Unassigned (0)     ──► reject "target is read-only"
//	target == current stage      ──► reject "no-op" (silent)
//	anything else                ──► accept
//
// Drag-and-drop, quick move and bulk move all go through Validate.
package transition

import (
	"errors"
	"fmt"

	"github.com/lucasnoah/hirepipe/internal/pipeline"
)

// Reason explains a rejected move.
type Reason string

const (
	ReasonReadOnlyTarget Reason = "target is read-only"
	ReasonNoOp           Reason = "no-op"
)

// Decision is the outcome of Validate. The zero value is a rejection with no reason.
type Decision struct {
	Accepted bool   `json:"accepted"`
	Reason   Reason `json:"reason,omitempty"`
}

// Accept is the single accepting decision.
var Accept = Decision{Accepted: true}

// Reject builds a rejecting decision.
func Reject(r Reason) Decision { return Decision{Reason: r} }

// IsNoOp reports whether d rejects a move to the candidate's own stage.
// Callers ignore these without telling the operator.
func (d Decision) IsNoOp() bool { return !d.Accepted && d.Reason == ReasonNoOp }

// Err returns nil for an accepted move and a *RejectionError otherwise.
func (d Decision) Err() error {
	if d.Accepted {
		return nil
	}
	return &RejectionError{Reason: d.Reason}
}

// RejectionError is the error form of a rejected decision.
type RejectionError struct{ Reason Reason }

func (e *RejectionError) Error() string {
	return fmt.Sprintf("transition rejected: %s", e.Reason)
}

// IsRejection reports whether err is (or wraps) a RejectionError.
func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}

// Validate applies the move rules to app and targetStageID.
func Validate(app pipeline.Application, targetStageID int) Decision {
	if targetStageID == pipeline.UnassignedStageID {
		return Reject(ReasonReadOnlyTarget)
	}
	if app.CurrentStage != nil && *app.CurrentStage == targetStageID {
		return Reject(ReasonNoOp)
	}
	return Accept
}
