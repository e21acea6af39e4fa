package dragdrop

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lucasnoah/hirepipe/internal/pipeline"
)

// ErrNoFocus is returned when a pick-up key arrives without a focused card.
var ErrNoFocus = errors.New("no card has keyboard focus")

// Key is a keyboard input relevant to dragging.
type Key string

const (
	KeySpace      Key = "Space"
	KeyEnter      Key = "Enter"
	KeyArrowLeft  Key = "ArrowLeft"
	KeyArrowRight Key = "ArrowRight"
	KeyEscape     Key = "Escape"
)

// ParseKey accepts DOM key names plus a few aliases.
func ParseKey(s string) (Key, error) {
	if s == " " {
		return KeySpace, nil
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "space", "spacebar":
		return KeySpace, nil
	case "enter", "return":
		return KeyEnter, nil
	case "arrowleft", "left":
		return KeyArrowLeft, nil
	case "arrowright", "right":
		return KeyArrowRight, nil
	case "escape", "esc":
		return KeyEscape, nil
	}
	return "", fmt.Errorf("unsupported drag key %q", s)
}

// HandleKey drives the same transitions as pointer input. Space or Enter
// picks up focus when idle and drops on the highlighted column when
// dragging. The arrows move the highlight across the displayed columns.
// Escape cancels.
func (r *Resolver) HandleKey(ctx context.Context, key Key, focus *pipeline.Application) (Resolution, error) {
	if r.State() == StateIdle {
		switch key {
		case KeySpace, KeyEnter:
			if focus == nil {
				return Resolution{}, ErrNoFocus
			}
			if err := r.Start(*focus); err != nil {
				return Resolution{}, err
			}
			return Resolution{
				Outcome:       OutcomePickedUp,
				ApplicationID: focus.ID,
				FromStage:     focus.StageID(),
				ToStage:       focus.StageID(),
			}, nil
		}
		return Resolution{Outcome: OutcomeIgnored}, nil
	}

	switch key {
	case KeyEscape:
		return r.Cancel()
	case KeyArrowLeft:
		return r.step(-1), nil
	case KeyArrowRight:
		return r.step(1), nil
	case KeySpace, KeyEnter:
		return r.Drop(ctx, Column(r.highlighted()))
	}
	return Resolution{Outcome: OutcomeIgnored}, nil
}

// step moves the highlight, clamping at the board edges.
func (r *Resolver) step(delta int) Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.columns); n > 0 {
		next := r.cursor + delta
		if r.cursor < 0 {
			next = 0
		}
		r.cursor = max(0, min(next, n-1))
	}
	return Resolution{
		Outcome:       OutcomeHovering,
		ApplicationID: r.active.ID,
		FromStage:     r.active.StageID(),
		ToStage:       r.highlightedLocked(),
	}
}

func (r *Resolver) highlighted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.highlightedLocked()
}

func (r *Resolver) highlightedLocked() int {
	if r.cursor < 0 || r.cursor >= len(r.columns) {
		return r.active.StageID()
	}
	return r.columns[r.cursor]
}
