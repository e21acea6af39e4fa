package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lucasnoah/hirepipe/internal/pipeline"
)

// StatusChange is a row in the status_changes table.
type StatusChange struct {
	ID            int
	ApplicationID int
	FromStatus    pipeline.Status
	ToStatus      pipeline.Status
	Notes         string
	Actor         string
	ChangedAt     time.Time
}

// EmailReceipt is a row in the email_receipts table.
type EmailReceipt struct {
	ID            int
	ApplicationID int
	TemplateID    int
	SentAt        time.Time
}

// FormInvitation is a row in the form_invitations table.
type FormInvitation struct {
	ID            int
	ApplicationID int
	FormID        int
	CustomMessage string
	CreatedAt     time.Time
}

// InterviewOpts describes one interview to record on an application.
type InterviewOpts struct {
	ApplicationID int
	StartsAt      time.Time
	Location      string
	Notes         string
	StageID       *int // optional stage to move the candidate to
	Actor         string
}

// ─── Stages ──────────────────────────────────────────────────────────────────

// CreateStage inserts a stage and returns it with its new ID.
func (d *DB) CreateStage(ctx context.Context, name string, order int, color string) (pipeline.Stage, error) {
	s := pipeline.Stage{Name: name, Order: order, Color: color}
	err := d.conn.QueryRowContext(ctx,
		d.rebind(`INSERT INTO pipeline_stages (name, sort_order, color) VALUES (?, ?, ?) RETURNING id`),
		name, order, color,
	).Scan(&s.ID)
	if err != nil {
		return pipeline.Stage{}, fmt.Errorf("create stage %q: %w", name, err)
	}
	return s, nil
}

// ListStages returns every stage ordered by sort_order then ID.
func (d *DB) ListStages(ctx context.Context) ([]pipeline.Stage, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT id, name, sort_order, color FROM pipeline_stages ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	var out []pipeline.Stage
	for rows.Next() {
		var s pipeline.Stage
		if err := rows.Scan(&s.ID, &s.Name, &s.Order, &s.Color); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetStage returns the stage with id, or nil if it does not exist.
func (d *DB) GetStage(ctx context.Context, id int) (*pipeline.Stage, error) {
	var s pipeline.Stage
	err := d.conn.QueryRowContext(ctx,
		d.rebind(`SELECT id, name, sort_order, color FROM pipeline_stages WHERE id = ?`), id,
	).Scan(&s.ID, &s.Name, &s.Order, &s.Color)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get stage %d: %w", id, err)
	}
	return &s, nil
}

// ─── Applications ────────────────────────────────────────────────────────────

const applicationColumns = `id, name, email, phone, status, current_stage, rating,
	interview_date, interview_location, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (pipeline.Application, error) {
	var (
		a         pipeline.Application
		status    string
		stage     sql.NullInt64
		rating    sql.NullInt64
		interview sql.NullString
		updatedAt string
	)
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &status, &stage, &rating,
		&interview, &a.InterviewLocation, &updatedAt)
	if err != nil {
		return pipeline.Application{}, err
	}
	a.Status = pipeline.Status(status)
	if stage.Valid {
		a.CurrentStage = pipeline.IntPtr(int(stage.Int64))
	}
	if rating.Valid {
		a.Rating = pipeline.IntPtr(int(rating.Int64))
	}
	if interview.Valid && interview.String != "" {
		t := parseTime(interview.String)
		a.InterviewDate = &t
	}
	a.UpdatedAt = parseTime(updatedAt)
	return a, nil
}

// CreateApplication inserts a candidate and returns it with its new ID.
// An empty status defaults to submitted.
func (d *DB) CreateApplication(ctx context.Context, a pipeline.Application) (pipeline.Application, error) {
	if a.Status == "" {
		a.Status = pipeline.StatusSubmitted
	}
	now := time.Now().UTC()
	var interview any
	if a.InterviewDate != nil {
		interview = formatTime(*a.InterviewDate)
	}
	err := d.conn.QueryRowContext(ctx,
		d.rebind(`INSERT INTO applications
		 (name, email, phone, status, current_stage, rating, interview_date, interview_location, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		a.Name, a.Email, a.Phone, string(a.Status), nullInt(a.CurrentStage), nullInt(a.Rating),
		interview, a.InterviewLocation, formatTime(now), formatTime(now),
	).Scan(&a.ID)
	if err != nil {
		return pipeline.Application{}, fmt.Errorf("create application: %w", err)
	}
	a.UpdatedAt = now
	return a, nil
}

// GetApplication returns the candidate with id, or nil if it does not exist.
func (d *DB) GetApplication(ctx context.Context, id int) (*pipeline.Application, error) {
	return d.getApplication(ctx, d.conn, id)
}

func (d *DB) getApplication(ctx context.Context, q querier, id int) (*pipeline.Application, error) {
	a, err := scanApplication(q.QueryRowContext(ctx,
		d.rebind(`SELECT `+applicationColumns+` FROM applications WHERE id = ?`), id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get application %d: %w", id, err)
	}
	return &a, nil
}

// ListApplications returns every candidate ordered by ID.
func (d *DB) ListApplications(ctx context.Context) ([]pipeline.Application, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT `+applicationColumns+` FROM applications ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var out []pipeline.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MoveApplication sets the candidate's stage and appends a transition record.
// A nil stageID clears the stage.
func (d *DB) MoveApplication(ctx context.Context, id int, stageID *int, notes, actor string) (*pipeline.Application, error) {
	var out *pipeline.Application
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := d.getApplication(ctx, tx, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("application %d: %w", id, ErrNotFound)
		}
		if stageID != nil {
			var n int
			if err := tx.QueryRowContext(ctx, d.rebind(`SELECT COUNT(*) FROM pipeline_stages WHERE id = ?`), *stageID).Scan(&n); err != nil {
				return fmt.Errorf("check stage %d: %w", *stageID, err)
			}
			if n == 0 {
				return fmt.Errorf("stage %d: %w", *stageID, ErrNotFound)
			}
		}
		if err := d.moveTx(ctx, tx, cur, stageID, notes, actor); err != nil {
			return err
		}
		out, err = d.getApplication(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (d *DB) moveTx(ctx context.Context, tx *sql.Tx, cur *pipeline.Application, stageID *int, notes, actor string) error {
	now := formatTime(time.Now())
	if _, err := tx.ExecContext(ctx,
		d.rebind(`UPDATE applications SET current_stage = ?, updated_at = ? WHERE id = ?`),
		nullInt(stageID), now, cur.ID,
	); err != nil {
		return fmt.Errorf("update application %d stage: %w", cur.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		d.rebind(`INSERT INTO stage_transitions (application_id, from_stage, to_stage, notes, actor, changed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		cur.ID, nullInt(cur.CurrentStage), nullInt(stageID), notes, actor, now,
	); err != nil {
		return fmt.Errorf("record transition for application %d: %w", cur.ID, err)
	}
	return nil
}

// UpdateStatus sets the candidate's status and appends a status change record.
func (d *DB) UpdateStatus(ctx context.Context, id int, status pipeline.Status, notes, actor string) (*pipeline.Application, error) {
	var out *pipeline.Application
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := d.getApplication(ctx, tx, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("application %d: %w", id, ErrNotFound)
		}
		now := formatTime(time.Now())
		if _, err := tx.ExecContext(ctx,
			d.rebind(`UPDATE applications SET status = ?, updated_at = ? WHERE id = ?`),
			string(status), now, id,
		); err != nil {
			return fmt.Errorf("update application %d status: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx,
			d.rebind(`INSERT INTO status_changes (application_id, from_status, to_status, notes, actor, changed_at)
			 VALUES (?, ?, ?, ?, ?, ?)`),
			id, string(cur.Status), string(status), notes, actor, now,
		); err != nil {
			return fmt.Errorf("record status change for application %d: %w", id, err)
		}
		out, err = d.getApplication(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ScheduleInterview records an interview on the candidate, marks it
// interview_scheduled and optionally moves it to opts.StageID.
func (d *DB) ScheduleInterview(ctx context.Context, opts InterviewOpts) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := d.getApplication(ctx, tx, opts.ApplicationID)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("application %d: %w", opts.ApplicationID, ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx,
			d.rebind(`UPDATE applications
			 SET status = ?, interview_date = ?, interview_location = ?, updated_at = ?
			 WHERE id = ?`),
			string(pipeline.StatusInterviewScheduled), formatTime(opts.StartsAt), opts.Location,
			formatTime(time.Now()), opts.ApplicationID,
		); err != nil {
			return fmt.Errorf("schedule interview for application %d: %w", opts.ApplicationID, err)
		}
		if opts.StageID != nil && !cur.InStage(*opts.StageID) {
			return d.moveTx(ctx, tx, cur, opts.StageID, opts.Notes, opts.Actor)
		}
		return nil
	})
}

// ─── History ─────────────────────────────────────────────────────────────────

// ListTransitions returns the stage history of a candidate, oldest first.
func (d *DB) ListTransitions(ctx context.Context, appID int) ([]pipeline.StageTransition, error) {
	rows, err := d.conn.QueryContext(ctx,
		d.rebind(`SELECT application_id, from_stage, to_stage, notes, actor, changed_at
		 FROM stage_transitions WHERE application_id = ? ORDER BY changed_at, id`), appID)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var out []pipeline.StageTransition
	for rows.Next() {
		var (
			t         pipeline.StageTransition
			from, to  sql.NullInt64
			changedAt string
		)
		if err := rows.Scan(&t.ApplicationID, &from, &to, &t.Notes, &t.Actor, &changedAt); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		if from.Valid {
			t.FromStage = pipeline.IntPtr(int(from.Int64))
		}
		if to.Valid {
			t.ToStage = pipeline.IntPtr(int(to.Int64))
		}
		t.ChangedAt = parseTime(changedAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListStatusChanges returns the status history of a candidate, oldest first.
func (d *DB) ListStatusChanges(ctx context.Context, appID int) ([]StatusChange, error) {
	rows, err := d.conn.QueryContext(ctx,
		d.rebind(`SELECT id, application_id, from_status, to_status, notes, actor, changed_at
		 FROM status_changes WHERE application_id = ? ORDER BY changed_at, id`), appID)
	if err != nil {
		return nil, fmt.Errorf("list status changes: %w", err)
	}
	defer rows.Close()

	var out []StatusChange
	for rows.Next() {
		var (
			c         StatusChange
			from, to  string
			changedAt string
		)
		if err := rows.Scan(&c.ID, &c.ApplicationID, &from, &to, &c.Notes, &c.Actor, &changedAt); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		c.FromStatus = pipeline.Status(from)
		c.ToStatus = pipeline.Status(to)
		c.ChangedAt = parseTime(changedAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ─── Outreach ────────────────────────────────────────────────────────────────

// RecordEmail stores a queued email for a candidate.
func (d *DB) RecordEmail(ctx context.Context, appID, templateID int) (*EmailReceipt, error) {
	r := &EmailReceipt{ApplicationID: appID, TemplateID: templateID, SentAt: time.Now().UTC()}
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		if err := d.requireApplication(ctx, tx, appID); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx,
			d.rebind(`INSERT INTO email_receipts (application_id, template_id, sent_at) VALUES (?, ?, ?) RETURNING id`),
			appID, templateID, formatTime(r.SentAt),
		).Scan(&r.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("record email for application %d: %w", appID, err)
	}
	return r, nil
}

// CreateFormInvitation stores a form invitation. Inviting the same candidate
// to the same form twice returns ErrDuplicate.
func (d *DB) CreateFormInvitation(ctx context.Context, appID, formID int, message string) (*FormInvitation, error) {
	inv := &FormInvitation{ApplicationID: appID, FormID: formID, CustomMessage: message, CreatedAt: time.Now().UTC()}
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		if err := d.requireApplication(ctx, tx, appID); err != nil {
			return err
		}
		var n int
		if err := tx.QueryRowContext(ctx,
			d.rebind(`SELECT COUNT(*) FROM form_invitations WHERE application_id = ? AND form_id = ?`),
			appID, formID,
		).Scan(&n); err != nil {
			return fmt.Errorf("check invitation: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("form %d: %w", formID, ErrDuplicate)
		}
		return tx.QueryRowContext(ctx,
			d.rebind(`INSERT INTO form_invitations (application_id, form_id, custom_message, created_at)
			 VALUES (?, ?, ?, ?) RETURNING id`),
			appID, formID, message, formatTime(inv.CreatedAt),
		).Scan(&inv.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("invite application %d: %w", appID, err)
	}
	return inv, nil
}

// ListFormInvitations returns the invitations sent to a candidate.
func (d *DB) ListFormInvitations(ctx context.Context, appID int) ([]FormInvitation, error) {
	rows, err := d.conn.QueryContext(ctx,
		d.rebind(`SELECT id, application_id, form_id, custom_message, created_at
		 FROM form_invitations WHERE application_id = ? ORDER BY id`), appID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	var out []FormInvitation
	for rows.Next() {
		var inv FormInvitation
		var created string
		if err := rows.Scan(&inv.ID, &inv.ApplicationID, &inv.FormID, &inv.CustomMessage, &created); err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		inv.CreatedAt = parseTime(created)
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (d *DB) requireApplication(ctx context.Context, q querier, id int) error {
	var n int
	if err := q.QueryRowContext(ctx, d.rebind(`SELECT COUNT(*) FROM applications WHERE id = ?`), id).Scan(&n); err != nil {
		return fmt.Errorf("check application %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("application %d: %w", id, ErrNotFound)
	}
	return nil
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
