package transition_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lucasnoah/hirepipe/internal/pipeline"
	"github.com/lucasnoah/hirepipe/internal/transition"
)

// ── Unassigned target ──────────────────────────────────────────────────────

func TestValidate_UnassignedAlwaysRejected(t *testing.T) {
	apps := []pipeline.Application{
		{ID: 1},
		{ID: 2, CurrentStage: pipeline.IntPtr(5)},
		{ID: 3, CurrentStage: pipeline.IntPtr(8), Status: pipeline.StatusRejected},
	}
	for _, a := range apps {
		d := transition.Validate(a, pipeline.UnassignedStageID)
		if d.Accepted {
			t.Errorf("Validate(app %d, 0) accepted, want reject", a.ID)
		}
		if d.Reason != transition.ReasonReadOnlyTarget {
			t.Errorf("Validate(app %d, 0) reason = %q, want %q", a.ID, d.Reason, transition.ReasonReadOnlyTarget)
		}
		if d.IsNoOp() {
			t.Errorf("read-only rejection must not be reported as no-op")
		}
	}
}

// ── No-op ──────────────────────────────────────────────────────────────────

func TestValidate_SameStageIsNoOp(t *testing.T) {
	a := pipeline.Application{ID: 1, CurrentStage: pipeline.IntPtr(5)}
	d := transition.Validate(a, 5)
	if !d.IsNoOp() {
		t.Errorf("Validate(app in 5, 5) = %+v, want no-op", d)
	}
}

func TestValidate_RepeatedMoveIsNoOp(t *testing.T) {
	a := pipeline.Application{ID: 1, CurrentStage: pipeline.IntPtr(5)}
	if d := transition.Validate(a, 8); !d.Accepted {
		t.Fatalf("first move rejected: %+v", d)
	}
	a.CurrentStage = pipeline.IntPtr(8) // accepted move applied
	if d := transition.Validate(a, 8); !d.IsNoOp() {
		t.Errorf("second identical move = %+v, want no-op", d)
	}
}

// ── Accept ─────────────────────────────────────────────────────────────────

func TestValidate_Accepts(t *testing.T) {
	cases := []struct {
		name    string
		current *int
		target  int
	}{
		{"unassigned to real", nil, 5},
		{"forward", pipeline.IntPtr(5), 8},
		{"backward", pipeline.IntPtr(8), 5},
	}
	for _, c := range cases {
		d := transition.Validate(pipeline.Application{ID: 1, CurrentStage: c.current}, c.target)
		if !d.Accepted {
			t.Errorf("%s: got %+v, want accept", c.name, d)
		}
		if d.Err() != nil {
			t.Errorf("%s: Err() = %v, want nil", c.name, d.Err())
		}
	}
}

func TestDecisionErr(t *testing.T) {
	err := transition.Reject(transition.ReasonNoOp).Err()
	if err == nil {
		t.Fatal("Err() on rejection returned nil")
	}
	wrapped := fmt.Errorf("quick move: %w", err)
	if !transition.IsRejection(wrapped) {
		t.Error("IsRejection should see through wrapping")
	}
	var re *transition.RejectionError
	if !errors.As(wrapped, &re) || re.Reason != transition.ReasonNoOp {
		t.Errorf("errors.As = %+v", re)
	}
	if transition.IsRejection(errors.New("other")) {
		t.Error("IsRejection(other) should be false")
	}
}

func TestZeroDecisionIsRejection(t *testing.T) {
	var d transition.Decision
	if d.Accepted || d.IsNoOp() {
		t.Errorf("zero Decision = %+v", d)
	}
}
