package pipeline

import (
	"strings"
	"time"
)

// Filter narrows the candidate list to what the operator currently sees.
// The zero value matches everything.
type Filter struct {
	Query     string   // case-insensitive match on name or email
	Statuses  []Status // any of; empty means all
	MinRating int      // 0 means no rating constraint
}

// Matches reports whether a passes every set criterion.
func (f Filter) Matches(a Application) bool {
	if q := strings.TrimSpace(strings.ToLower(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(a.Name), q) && !strings.Contains(strings.ToLower(a.Email), q) {
			return false
		}
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if a.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.MinRating > 0 && (a.Rating == nil || *a.Rating < f.MinRating) {
		return false
	}
	return true
}

// Apply returns the candidates matching f, preserving order.
func (f Filter) Apply(apps []Application) []Application {
	out := make([]Application, 0, len(apps))
	for _, a := range apps {
		if f.Matches(a) {
			out = append(out, a)
		}
	}
	return out
}

// InterviewSlot is the start time assigned to one candidate in a batch.
type InterviewSlot struct {
	ApplicationID int       `json:"application_id"`
	StartsAt      time.Time `json:"starts_at"`
}

// InterviewSlots assigns base + i*intervalHours to ids[i], in the given order.
func InterviewSlots(ids []int, base time.Time, intervalHours float64) []InterviewSlot {
	step := time.Duration(intervalHours * float64(time.Hour))
	slots := make([]InterviewSlot, len(ids))
	for i, id := range ids {
		slots[i] = InterviewSlot{ApplicationID: id, StartsAt: base.Add(time.Duration(i) * step)}
	}
	return slots
}
