package bulk

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lucasnoah/hirepipe/internal/collab"
)

// FailureKind classifies a failed item.
type FailureKind string

const (
	FailureDuplicate    FailureKind = "duplicate-invitation"
	FailureUnauthorized FailureKind = "unauthorized"
	FailureOther        FailureKind = "other-failure"
)

// Classify maps a collaborator error to a FailureKind. Only form invitations
// are sub-classified; every other kind fails as FailureOther.
func Classify(kind Kind, err error) FailureKind {
	if kind != KindSendForm {
		return FailureOther
	}
	switch {
	case errors.Is(err, collab.ErrDuplicateInvitation):
		return FailureDuplicate
	case errors.Is(err, collab.ErrUnauthorized):
		return FailureUnauthorized
	default:
		return FailureOther
	}
}

// Outcome is the settled state of one item.
type Outcome struct {
	OK      bool        `json:"ok"`
	Skipped bool        `json:"skipped,omitempty"` // ok without a collaborator call
	Failure FailureKind `json:"failure,omitempty"`
	Reason  string      `json:"reason,omitempty"`
}

// Result aggregates a bulk run. Succeeded + Failed == Total once Run returns,
// and PerItem holds exactly one entry per target.
type Result struct {
	RunID      string          `json:"run_id"`
	Kind       Kind            `json:"kind"`
	Total      int             `json:"total"`
	Succeeded  int             `json:"succeeded"`
	Failed     int             `json:"failed"`
	PerItem    map[int]Outcome `json:"per_item"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// OK reports whether every item succeeded.
func (r Result) OK() bool { return r.Failed == 0 }

func (r Result) countFailure(kind FailureKind) int {
	n := 0
	for _, o := range r.PerItem {
		if !o.OK && o.Failure == kind {
			n++
		}
	}
	return n
}

// Duplicates returns the number of items that were already invited.
func (r Result) Duplicates() int { return r.countFailure(FailureDuplicate) }

// Unauthorized returns the number of items the operator may not act on.
func (r Result) Unauthorized() int { return r.countFailure(FailureUnauthorized) }

// Skipped returns the number of ok items that needed no call.
func (r Result) Skipped() int {
	n := 0
	for _, o := range r.PerItem {
		if o.OK && o.Skipped {
			n++
		}
	}
	return n
}

// SucceededIDs returns the ok item IDs, sorted.
func (r Result) SucceededIDs() []int {
	return r.ids(func(o Outcome) bool { return o.OK })
}

// FailedIDs returns the failed item IDs, sorted.
func (r Result) FailedIDs() []int {
	return r.ids(func(o Outcome) bool { return !o.OK })
}

// RetryIDs returns failed IDs worth retrying. Duplicate invitations are left out.
func (r Result) RetryIDs() []int {
	return r.ids(func(o Outcome) bool { return !o.OK && o.Failure != FailureDuplicate })
}

func (r Result) ids(keep func(Outcome) bool) []int {
	var out []int
	for id, o := range r.PerItem {
		if keep(o) {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

// Summary renders the operator-facing tally, e.g. "Moved: 5, Failed: 2".
func (r Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d, Failed: %d", r.Kind.verb(), r.Succeeded, r.Failed)
	var details []string
	if d := r.Duplicates(); d > 0 {
		details = append(details, fmt.Sprintf("already sent: %d", d))
	}
	if u := r.Unauthorized(); u > 0 {
		details = append(details, fmt.Sprintf("unauthorized: %d", u))
	}
	if len(details) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(details, ", "))
	}
	return b.String()
}
