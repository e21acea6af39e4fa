// Package pipeline models hiring stages and the candidates moving through them.
package pipeline

import (
	"fmt"
	"time"
)

// UnassignedStageID is the sentinel ID of the synthetic "Unassigned" column.
// It is never persisted.
const UnassignedStageID = 0

// Status values mirror the application status column in the collaborator store.
type Status string

const (
	StatusSubmitted          Status = "submitted"
	StatusReviewed           Status = "reviewed"
	StatusShortlisted        Status = "shortlisted"
	StatusRejected           Status = "rejected"
	StatusDownloaded         Status = "downloaded"
	StatusInterviewScheduled Status = "interview_scheduled"
	StatusHired              Status = "hired"
)

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusSubmitted, StatusReviewed, StatusShortlisted, StatusRejected,
		StatusDownloaded, StatusInterviewScheduled, StatusHired:
		return st, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// Stage is a single ordered step in the hiring pipeline.
type Stage struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
	Color string `json:"color"`
}

// IsUnassigned reports whether s is the synthetic Unassigned pseudo-stage.
func (s Stage) IsUnassigned() bool { return s.ID == UnassignedStageID }

// Application is a candidate in the pipeline.
type Application struct {
	ID                int        `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone,omitempty"`
	Status            Status     `json:"status"`
	CurrentStage      *int       `json:"current_stage"` // nil = unassigned
	Rating            *int       `json:"rating"`
	InterviewDate     *time.Time `json:"interview_date,omitempty"`
	InterviewLocation string     `json:"interview_location,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// StageID returns the candidate's current stage, or UnassignedStageID.
func (a Application) StageID() int {
	if a.CurrentStage == nil {
		return UnassignedStageID
	}
	return *a.CurrentStage
}

// InStage reports whether the candidate currently sits in stageID.
// A stageID of UnassignedStageID matches candidates without a stage.
func (a Application) InStage(stageID int) bool {
	return a.StageID() == stageID
}

// Clone returns a deep copy; pointer fields do not alias the original.
func (a Application) Clone() Application {
	c := a
	if a.CurrentStage != nil {
		v := *a.CurrentStage
		c.CurrentStage = &v
	}
	if a.Rating != nil {
		v := *a.Rating
		c.Rating = &v
	}
	if a.InterviewDate != nil {
		v := *a.InterviewDate
		c.InterviewDate = &v
	}
	return c
}

// StageTransition is one append-only history record of an accepted move.
type StageTransition struct {
	ApplicationID int       `json:"application_id"`
	FromStage     *int      `json:"from_stage"`
	ToStage       *int      `json:"to_stage"`
	Notes         string    `json:"notes,omitempty"`
	ChangedAt     time.Time `json:"changed_at"`
	Actor         string    `json:"actor"`
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// StagePtr maps a stage ID to the nullable form stored on an Application.
// UnassignedStageID maps to nil.
func StagePtr(stageID int) *int {
	if stageID == UnassignedStageID {
		return nil
	}
	return &stageID
}
