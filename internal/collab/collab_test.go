package collab

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lucasnoah/hirepipe/internal/db"
	"github.com/lucasnoah/hirepipe/internal/pipeline"
)

// ─── Local ───────────────────────────────────────────────────────────────────

func testLocal(t *testing.T) (*Local, *db.DB) {
	t.Helper()
	d, err := db.Open(db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := d.Migrate(); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return NewLocal(d, "tester"), d
}

func TestLocal_MoveAndHistory(t *testing.T) {
	l, d := testLocal(t)
	ctx := context.Background()
	s1, _ := d.CreateStage(ctx, "Screening", 1, "blue")
	s2, _ := d.CreateStage(ctx, "Interview", 2, "purple")
	a, _ := d.CreateApplication(ctx, pipeline.Application{Name: "Ada", Email: "ada@example.com", CurrentStage: pipeline.IntPtr(s1.ID)})

	got, err := l.MoveStage(ctx, a.ID, s2.ID, "fast track")
	if err != nil {
		t.Fatalf("MoveStage: %v", err)
	}
	if got.StageID() != s2.ID {
		t.Errorf("stage = %d, want %d", got.StageID(), s2.ID)
	}
	hist, err := l.History(ctx, a.ID)
	if err != nil || len(hist) != 1 || hist[0].Actor != "tester" {
		t.Errorf("History = %+v, %v", hist, err)
	}

	if _, err := l.MoveStage(ctx, 999, s2.ID, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing application = %v, want ErrNotFound", err)
	}
	if _, err := l.History(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("History(999) = %v", err)
	}
}

func TestLocal_FormInvitationDuplicate(t *testing.T) {
	l, d := testLocal(t)
	ctx := context.Background()
	a, _ := d.CreateApplication(ctx, pipeline.Application{Name: "Ada", Email: "ada@example.com"})

	if _, err := l.SendFormInvitation(ctx, a.ID, 7, "hi"); err != nil {
		t.Fatalf("first invite: %v", err)
	}
	_, err := l.SendFormInvitation(ctx, a.ID, 7, "hi")
	if !errors.Is(err, ErrDuplicateInvitation) {
		t.Errorf("second invite = %v, want ErrDuplicateInvitation", err)
	}
}

func TestLocal_EmailAndStatus(t *testing.T) {
	l, d := testLocal(t)
	ctx := context.Background()
	a, _ := d.CreateApplication(ctx, pipeline.Application{Name: "Ada", Email: "ada@example.com"})

	r, err := l.SendEmail(ctx, a.ID, 3)
	if err != nil || r.TemplateID != 3 || r.ApplicationID != a.ID {
		t.Errorf("SendEmail = %+v, %v", r, err)
	}
	got, err := l.UpdateStatus(ctx, a.ID, pipeline.StatusRejected, "Archived via bulk action")
	if err != nil || got.Status != pipeline.StatusRejected {
		t.Errorf("UpdateStatus = %+v, %v", got, err)
	}
	if _, err := l.UpdateStatus(ctx, a.ID, pipeline.Status("archived"), ""); err == nil {
		t.Error("unknown status should fail")
	}
}

func TestLocal_ScheduleInterviewBatch(t *testing.T) {
	l, d := testLocal(t)
	ctx := context.Background()
	var ids []int
	for _, n := range []string{"a", "b", "c"} {
		a, _ := d.CreateApplication(ctx, pipeline.Application{Name: n, Email: n + "@example.com"})
		ids = append(ids, a.ID)
	}
	ids = append(ids, 999) // unknown candidate counts as failed

	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	res, err := l.ScheduleInterviewBatch(ctx, InterviewBatchRequest{
		ApplicationIDs: ids, StartTime: start, IntervalHours: 1, Location: "Room 1",
	})
	if err != nil {
		t.Fatalf("ScheduleInterviewBatch: %v", err)
	}
	if res.Scheduled != 3 || res.Failed != 1 || res.Total != 4 {
		t.Errorf("result = %+v", res)
	}
	third, _ := d.GetApplication(ctx, ids[2])
	if third.InterviewDate == nil || third.InterviewDate.Hour() != 11 {
		t.Errorf("third interview = %v, want 11:00", third.InterviewDate)
	}
}

func TestLocal_ScheduleInterviewBatch_HalfHourSlots(t *testing.T) {
	l, d := testLocal(t)
	ctx := context.Background()
	var ids []int
	for _, n := range []string{"a", "b", "c"} {
		a, _ := d.CreateApplication(ctx, pipeline.Application{Name: n, Email: n + "@example.com"})
		ids = append(ids, a.ID)
	}
	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	if _, err := l.ScheduleInterviewBatch(ctx, InterviewBatchRequest{
		ApplicationIDs: ids, StartTime: start, IntervalHours: 0.5, Location: "Room 2",
	}); err != nil {
		t.Fatalf("ScheduleInterviewBatch: %v", err)
	}
	want := pipeline.InterviewSlots(ids, start, 0.5)
	for _, slot := range want {
		a, _ := d.GetApplication(ctx, slot.ApplicationID)
		if a.InterviewDate == nil || !a.InterviewDate.Equal(slot.StartsAt) {
			t.Errorf("application %d interview = %v, want %v", slot.ApplicationID, a.InterviewDate, slot.StartsAt)
		}
	}
}

// ─── Client ──────────────────────────────────────────────────────────────────

func TestClient_MoveStage(t *testing.T) {
	var gotAuth, gotMethod, gotPath string
	var gotBody stageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(pipeline.Application{ID: 4, CurrentStage: pipeline.IntPtr(8)})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret", time.Second)
	app, err := c.MoveStage(context.Background(), 4, 8, "note")
	if err != nil {
		t.Fatalf("MoveStage: %v", err)
	}
	if app.StageID() != 8 {
		t.Errorf("stage = %d", app.StageID())
	}
	if gotAuth != "Bearer secret" || gotMethod != http.MethodPatch || gotPath != "/api/applications/4/stage" {
		t.Errorf("request = %s %s auth=%q", gotMethod, gotPath, gotAuth)
	}
	if gotBody.StageID == nil || *gotBody.StageID != 8 || gotBody.Notes != "note" {
		t.Errorf("body = %+v", gotBody)
	}
}

func TestClient_StatusErrors(t *testing.T) {
	cases := []struct {
		code int
		want error
	}{
		{http.StatusConflict, ErrDuplicateInvitation},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusNotFound, ErrNotFound},
	}
	for _, c := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(c.code)
			json.NewEncoder(w).Encode(errorBody{Error: "nope"})
		}))
		_, err := NewClient(srv.URL, "", 0).SendFormInvitation(context.Background(), 1, 2, "")
		srv.Close()
		if !errors.Is(err, c.want) {
			t.Errorf("status %d: err = %v, want %v", c.code, err, c.want)
		}
		var se *StatusError
		if !errors.As(err, &se) || se.Message != "nope" {
			t.Errorf("status %d: StatusError = %+v", c.code, se)
		}
	}
}

func TestClient_ConflictIsDuplicateOnlyForForms(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(errorBody{Error: "conflict"})
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "", 0)
	ctx := context.Background()

	if _, err := c.MoveStage(ctx, 1, 2, ""); err == nil || errors.Is(err, ErrDuplicateInvitation) {
		t.Errorf("MoveStage err = %v, want generic conflict", err)
	}
	if _, err := c.SendEmail(ctx, 1, 2); err == nil || errors.Is(err, ErrDuplicateInvitation) {
		t.Errorf("SendEmail err = %v, want generic conflict", err)
	}
	_, err := c.SendFormInvitation(ctx, 1, 2, "")
	if !errors.Is(err, ErrDuplicateInvitation) {
		t.Errorf("SendFormInvitation err = %v, want ErrDuplicateInvitation", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusConflict {
		t.Errorf("StatusError = %+v", se)
	}
}

func TestClient_ServerErrorIsGeneric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database is down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", 0).SendEmail(context.Background(), 1, 2)
	if err == nil || errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrDuplicateInvitation) {
		t.Fatalf("err = %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != 500 || se.Message != "database is down" {
		t.Errorf("StatusError = %+v", se)
	}
}

func TestClient_InterviewBatchAndLists(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/interviews/batch", func(w http.ResponseWriter, r *http.Request) {
		var req InterviewBatchRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(InterviewBatchResult{Scheduled: len(req.ApplicationIDs), Total: len(req.ApplicationIDs)})
	})
	mux.HandleFunc("/api/pipeline-stages", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]pipeline.Stage{{ID: 1, Name: "Screening"}})
	})
	mux.HandleFunc("/api/applications", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]pipeline.Application{{ID: 1}, {ID: 2}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := NewClient(srv.URL, "", time.Second)
	ctx := context.Background()

	res, err := c.ScheduleInterviewBatch(ctx, InterviewBatchRequest{ApplicationIDs: []int{1, 2, 3}, StartTime: time.Now()})
	if err != nil || res.Scheduled != 3 || res.Total != 3 {
		t.Errorf("ScheduleInterviewBatch = %+v, %v", res, err)
	}
	stages, err := c.ListStages(ctx)
	if err != nil || len(stages) != 1 {
		t.Errorf("ListStages = %+v, %v", stages, err)
	}
	apps, err := c.ListApplications(ctx)
	if err != nil || len(apps) != 2 {
		t.Errorf("ListApplications = %+v, %v", apps, err)
	}
}

func TestStatusError_Message(t *testing.T) {
	if got := (&StatusError{Code: 502}).Error(); got != "collaborator returned status 502" {
		t.Errorf("Error() = %q", got)
	}
	for _, code := range []int{409, 500} {
		if (&StatusError{Code: code}).Unwrap() != nil {
			t.Errorf("%d should not map to a sentinel", code)
		}
	}
}
