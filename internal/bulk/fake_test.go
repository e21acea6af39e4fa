package bulk

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lucasnoah/hirepipe/internal/collab"
	"github.com/lucasnoah/hirepipe/internal/pipeline"
)

// --- Fake collaborator ---

type fakeActions struct {
	mu       sync.Mutex
	fail     map[int]error // application id -> error returned by any action
	delay    time.Duration
	calls    []int
	inflight int
	maxSeen  int
	stages   map[int]int // application id -> stage after a move
}

func newFakeActions() *fakeActions {
	return &fakeActions{fail: make(map[int]error), stages: make(map[int]int)}
}

func (f *fakeActions) enter(id int) error {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.inflight++
	if f.inflight > f.maxSeen {
		f.maxSeen = f.inflight
	}
	err := f.fail[id]
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inflight--
	f.mu.Unlock()
	return err
}

func (f *fakeActions) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeActions) ListStages(ctx context.Context) ([]pipeline.Stage, error) { return nil, nil }

func (f *fakeActions) ListApplications(ctx context.Context) ([]pipeline.Application, error) {
	return nil, nil
}

func (f *fakeActions) MoveStage(ctx context.Context, appID, stageID int, notes string) (*pipeline.Application, error) {
	if err := f.enter(appID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.stages[appID] = stageID
	f.mu.Unlock()
	return &pipeline.Application{ID: appID, CurrentStage: pipeline.IntPtr(stageID), Status: pipeline.StatusReviewed}, nil
}

func (f *fakeActions) SendEmail(ctx context.Context, appID, templateID int) (*collab.Receipt, error) {
	if err := f.enter(appID); err != nil {
		return nil, err
	}
	return &collab.Receipt{ApplicationID: appID, TemplateID: templateID}, nil
}

func (f *fakeActions) SendFormInvitation(ctx context.Context, appID, formID int, msg string) (*collab.Invitation, error) {
	if err := f.enter(appID); err != nil {
		return nil, err
	}
	return &collab.Invitation{ApplicationID: appID, FormID: formID, CustomMessage: msg}, nil
}

func (f *fakeActions) UpdateStatus(ctx context.Context, appID int, status pipeline.Status, notes string) (*pipeline.Application, error) {
	if err := f.enter(appID); err != nil {
		return nil, err
	}
	return &pipeline.Application{ID: appID, Status: status}, nil
}

func (f *fakeActions) ScheduleInterviewBatch(ctx context.Context, req collab.InterviewBatchRequest) (*collab.InterviewBatchResult, error) {
	return &collab.InterviewBatchResult{Scheduled: len(req.ApplicationIDs), Total: len(req.ApplicationIDs)}, nil
}

func (f *fakeActions) History(ctx context.Context, appID int) ([]pipeline.StageTransition, error) {
	return nil, nil
}

var errBoom = errors.New("boom")
