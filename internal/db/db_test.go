package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lucasnoah/hirepipe/internal/pipeline"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := d.Migrate(); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func seedStages(t *testing.T, d *DB) (screening, interview pipeline.Stage) {
	t.Helper()
	ctx := context.Background()
	var err error
	if screening, err = d.CreateStage(ctx, "Screening", 10, "blue"); err != nil {
		t.Fatalf("create stage: %v", err)
	}
	if interview, err = d.CreateStage(ctx, "Interview", 20, "purple"); err != nil {
		t.Fatalf("create stage: %v", err)
	}
	return screening, interview
}

func seedApp(t *testing.T, d *DB, name string, stage *int) pipeline.Application {
	t.Helper()
	a, err := d.CreateApplication(context.Background(), pipeline.Application{Name: name, Email: name + "@example.com", CurrentStage: stage})
	if err != nil {
		t.Fatalf("create application: %v", err)
	}
	return a
}

func TestMigrate(t *testing.T) {
	d, err := Open(DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	if err := d.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for _, table := range tables {
		var name string
		err := d.conn.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}

	var version int
	if err := d.conn.QueryRow("SELECT version FROM schema_version").Scan(&version); err != nil {
		t.Fatalf("query schema_version: %v", err)
	}
	if version != 1 {
		t.Errorf("expected schema version 1, got %d", version)
	}

	// Migrate again should be idempotent
	if err := d.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open("mysql", "x"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestReset(t *testing.T) {
	d := testDB(t)
	seedStages(t, d)

	if err := d.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	stages, err := d.ListStages(context.Background())
	if err != nil {
		t.Fatalf("list stages after reset: %v", err)
	}
	if len(stages) != 0 {
		t.Errorf("expected no stages after reset, got %d", len(stages))
	}
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: DriverPostgres}
	if got := pg.rebind("SELECT * FROM t WHERE a = ? AND b = ?"); got != "SELECT * FROM t WHERE a = $1 AND b = $2" {
		t.Errorf("rebind = %q", got)
	}
	lite := &DB{driver: DriverSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite rebind = %q", got)
	}
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements(schemaV1Postgres)
	if len(stmts) < len(tables) {
		t.Errorf("got %d statements, want at least %d", len(stmts), len(tables))
	}
	for _, s := range stmts {
		if s == "" {
			t.Error("empty statement")
		}
	}
}

func TestStages(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	seedStages(t, d)
	if _, err := d.CreateStage(ctx, "Applied", 0, "gray"); err != nil {
		t.Fatalf("create stage: %v", err)
	}

	stages, err := d.ListStages(ctx)
	if err != nil {
		t.Fatalf("list stages: %v", err)
	}
	if len(stages) != 3 || stages[0].Name != "Applied" || stages[2].Name != "Interview" {
		t.Errorf("stages = %+v", stages)
	}

	got, err := d.GetStage(ctx, stages[1].ID)
	if err != nil || got == nil || got.Name != "Screening" {
		t.Errorf("GetStage = %+v, %v", got, err)
	}
	missing, err := d.GetStage(ctx, 999)
	if err != nil || missing != nil {
		t.Errorf("GetStage(999) = %+v, %v; want nil, nil", missing, err)
	}

	if _, err := d.CreateStage(ctx, "Applied", 5, "red"); err == nil {
		t.Error("duplicate stage name should fail")
	}
}

func TestApplications_CreateGetList(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	screening, _ := seedStages(t, d)

	when := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	a, err := d.CreateApplication(ctx, pipeline.Application{
		Name: "Ada", Email: "ada@example.com", Phone: "555",
		CurrentStage: pipeline.IntPtr(screening.ID), Rating: pipeline.IntPtr(4),
		InterviewDate: &when, InterviewLocation: "Room 1",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID == 0 || a.Status != pipeline.StatusSubmitted {
		t.Errorf("created = %+v", a)
	}
	seedApp(t, d, "grace", nil)

	got, err := d.GetApplication(ctx, a.ID)
	if err != nil || got == nil {
		t.Fatalf("get: %+v, %v", got, err)
	}
	if got.StageID() != screening.ID || got.Rating == nil || *got.Rating != 4 {
		t.Errorf("got = %+v", got)
	}
	if got.InterviewDate == nil || !got.InterviewDate.Equal(when) || got.InterviewLocation != "Room 1" {
		t.Errorf("interview = %v %q", got.InterviewDate, got.InterviewLocation)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set")
	}

	all, err := d.ListApplications(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("list = %d, %v", len(all), err)
	}
	if all[1].CurrentStage != nil {
		t.Errorf("second application should be unassigned, got %v", *all[1].CurrentStage)
	}

	if none, err := d.GetApplication(ctx, 999); err != nil || none != nil {
		t.Errorf("GetApplication(999) = %+v, %v", none, err)
	}
}

func TestApplications_RejectsBadRating(t *testing.T) {
	d := testDB(t)
	_, err := d.CreateApplication(context.Background(), pipeline.Application{Name: "x", Email: "x", Rating: pipeline.IntPtr(9)})
	if err == nil {
		t.Error("rating 9 should violate the check constraint")
	}
}

func TestMoveApplication_RecordsTransition(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	screening, interview := seedStages(t, d)
	a := seedApp(t, d, "ada", pipeline.IntPtr(screening.ID))

	moved, err := d.MoveApplication(ctx, a.ID, pipeline.IntPtr(interview.ID), "strong", "ops")
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.StageID() != interview.ID {
		t.Errorf("stage = %d, want %d", moved.StageID(), interview.ID)
	}

	hist, err := d.ListTransitions(ctx, a.ID)
	if err != nil {
		t.Fatalf("transitions: %v", err)
	}
	if len(hist) != 1 {
		t.Fatalf("got %d transitions, want 1", len(hist))
	}
	h := hist[0]
	if h.FromStage == nil || *h.FromStage != screening.ID || h.ToStage == nil || *h.ToStage != interview.ID {
		t.Errorf("transition = %+v", h)
	}
	if h.Notes != "strong" || h.Actor != "ops" || h.ChangedAt.IsZero() {
		t.Errorf("transition = %+v", h)
	}
}

func TestMoveApplication_Errors(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	screening, _ := seedStages(t, d)
	a := seedApp(t, d, "ada", pipeline.IntPtr(screening.ID))

	if _, err := d.MoveApplication(ctx, 999, pipeline.IntPtr(screening.ID), "", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing application = %v", err)
	}
	if _, err := d.MoveApplication(ctx, a.ID, pipeline.IntPtr(777), "", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing stage = %v", err)
	}
	hist, _ := d.ListTransitions(ctx, a.ID)
	if len(hist) != 0 {
		t.Errorf("failed moves must not record history, got %d", len(hist))
	}
}

func TestUpdateStatus(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	a := seedApp(t, d, "ada", nil)

	got, err := d.UpdateStatus(ctx, a.ID, pipeline.StatusRejected, "Archived via bulk action", "ops")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if got.Status != pipeline.StatusRejected {
		t.Errorf("status = %s", got.Status)
	}
	changes, err := d.ListStatusChanges(ctx, a.ID)
	if err != nil || len(changes) != 1 {
		t.Fatalf("status changes = %+v, %v", changes, err)
	}
	if changes[0].FromStatus != pipeline.StatusSubmitted || changes[0].ToStatus != pipeline.StatusRejected {
		t.Errorf("change = %+v", changes[0])
	}
	if _, err := d.UpdateStatus(ctx, 999, pipeline.StatusRejected, "", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing application = %v", err)
	}
}

func TestFormInvitations_Duplicate(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	a := seedApp(t, d, "ada", nil)

	inv, err := d.CreateFormInvitation(ctx, a.ID, 3, "please fill")
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if inv.ID == 0 || inv.FormID != 3 {
		t.Errorf("invitation = %+v", inv)
	}
	if _, err := d.CreateFormInvitation(ctx, a.ID, 3, "again"); !errors.Is(err, ErrDuplicate) {
		t.Errorf("second invite = %v, want ErrDuplicate", err)
	}
	if _, err := d.CreateFormInvitation(ctx, a.ID, 4, ""); err != nil {
		t.Errorf("different form: %v", err)
	}
	if _, err := d.CreateFormInvitation(ctx, 999, 3, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing application = %v", err)
	}
	list, _ := d.ListFormInvitations(ctx, a.ID)
	if len(list) != 2 {
		t.Errorf("invitations = %d, want 2", len(list))
	}
}

func TestRecordEmail(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	a := seedApp(t, d, "ada", nil)
	r, err := d.RecordEmail(ctx, a.ID, 12)
	if err != nil || r.ID == 0 || r.TemplateID != 12 {
		t.Errorf("RecordEmail = %+v, %v", r, err)
	}
	if _, err := d.RecordEmail(ctx, 999, 12); !IsNotFound(err) {
		t.Errorf("missing application = %v", err)
	}
}

func TestScheduleInterview(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	screening, interview := seedStages(t, d)
	a := seedApp(t, d, "ada", pipeline.IntPtr(screening.ID))
	start := time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC)

	err := d.ScheduleInterview(ctx, InterviewOpts{
		ApplicationID: a.ID, StartsAt: start, Location: "Room 2",
		StageID: pipeline.IntPtr(interview.ID), Actor: "ops",
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	got, _ := d.GetApplication(ctx, a.ID)
	if got.Status != pipeline.StatusInterviewScheduled || got.StageID() != interview.ID {
		t.Errorf("after schedule = %+v", got)
	}
	if got.InterviewDate == nil || !got.InterviewDate.Equal(start) || got.InterviewLocation != "Room 2" {
		t.Errorf("interview = %v %q", got.InterviewDate, got.InterviewLocation)
	}
	hist, _ := d.ListTransitions(ctx, a.ID)
	if len(hist) != 1 {
		t.Errorf("transitions = %d, want 1", len(hist))
	}

	// Already in the stage: no extra transition.
	if err := d.ScheduleInterview(ctx, InterviewOpts{ApplicationID: a.ID, StartsAt: start, StageID: pipeline.IntPtr(interview.ID)}); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	hist, _ = d.ListTransitions(ctx, a.ID)
	if len(hist) != 1 {
		t.Errorf("transitions after reschedule = %d, want 1", len(hist))
	}

	if err := d.ScheduleInterview(ctx, InterviewOpts{ApplicationID: 999, StartsAt: start}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing application = %v", err)
	}
}
