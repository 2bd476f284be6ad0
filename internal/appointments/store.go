package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// querier is the subset shared by DB and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides persistence for appointments.
type Store struct {
	db DB
}

// NewStore creates an appointment store backed by a pgx pool.
func NewStore(db DB) *Store {
	if db == nil {
		panic("appointments: db required")
	}
	return &Store{db: db}
}

const appointmentColumns = `id, patient_id, doctor_id, date_time, duration_minutes, reason, notes, prescription, status,
	confirmed_at, checked_in_at, cancelled_by, cancelled_at, cancellation_reason,
	original_date_time, rescheduled_by, rescheduled_at, reschedule_reason, created_at, updated_at`

// CreateScheduled books a new appointment. The conflict check and insert run
// in one transaction holding a per-doctor advisory lock, so two bookings
// cannot race into overlapping slots.
func (s *Store) CreateScheduled(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("appointments: begin booking: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockDoctor(ctx, tx, a.DoctorID); err != nil {
		return err
	}

	conflict, err := hasConflict(ctx, tx, a.DoctorID, a.DateTime, a.End(), uuid.Nil)
	if err != nil {
		return err
	}
	if conflict {
		return ErrSlotConflict
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, date_time, duration_minutes, reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		a.ID, a.PatientID, a.DoctorID, a.DateTime, a.DurationMinutes, a.Reason, string(a.Status), now,
	)
	if err != nil {
		return fmt.Errorf("appointments: insert: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("appointments: commit booking: %w", err)
	}
	return nil
}

// HasConflict reports whether [start, start+duration) overlaps an active
// booking for the doctor, ignoring excludeID (uuid.Nil excludes nothing).
func (s *Store) HasConflict(ctx context.Context, doctorID uuid.UUID, start time.Time, duration time.Duration, excludeID uuid.UUID) (bool, error) {
	return hasConflict(ctx, s.db, doctorID, start, start.Add(duration), excludeID)
}

func hasConflict(ctx context.Context, q querier, doctorID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (bool, error) {
	// Half-open overlap: existing.start < end AND start < existing.end.
	var conflict bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			  AND status = ANY($2)
			  AND id <> $3
			  AND date_time < $4
			  AND date_time + make_interval(mins => duration_minutes) > $5
		)`,
		doctorID, statusStrings(conflictStatuses), excludeID, end, start,
	).Scan(&conflict)
	if err != nil {
		return false, fmt.Errorf("appointments: conflict check: %w", err)
	}
	return conflict, nil
}

// GetByID returns the appointment or ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return getByID(ctx, s.db, id)
}

func getByID(ctx context.Context, q querier, id uuid.UUID) (*Appointment, error) {
	row := q.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: get by id: %w", err)
	}
	return a, nil
}

// List returns appointments matching the filter, ordered by date_time.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Appointment, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.PatientID != nil {
		where = append(where, "patient_id = "+arg(*filter.PatientID))
	}
	if filter.DoctorID != nil {
		where = append(where, "doctor_id = "+arg(*filter.DoctorID))
	}
	if filter.Status != nil {
		where = append(where, "status = "+arg(string(*filter.Status)))
	}
	if filter.Day != nil {
		dayStart := filter.Day.Truncate(24 * time.Hour)
		where = append(where, "date_time >= "+arg(dayStart))
		where = append(where, "date_time < "+arg(dayStart.AddDate(0, 0, 1)))
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date_time ASC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// UpdateDetails patches the free-form fields without touching the workflow.
// Nil arguments leave the stored value unchanged.
func (s *Store) UpdateDetails(ctx context.Context, id uuid.UUID, reason, notes, prescription *string) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE appointments
		SET reason = COALESCE($2, reason),
		    notes = COALESCE($3, notes),
		    prescription = COALESCE($4, prescription),
		    updated_at = $5
		WHERE id = $1
		RETURNING `+appointmentColumns,
		id, reason, notes, prescription, time.Now().UTC(),
	)
	a, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: update details: %w", err)
	}
	return a, nil
}

// MarkConfirmed transitions scheduled → confirmed. Returns false when the
// appointment is missing or not in a confirmable status.
func (s *Store) MarkConfirmed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments SET status = 'confirmed', confirmed_at = $2, updated_at = $2
		WHERE id = $1 AND status IN ('scheduled', 'rescheduled')`, id, at)
	if err != nil {
		return false, fmt.Errorf("appointments: mark confirmed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkCheckedIn records the patient's check-in exactly once.
func (s *Store) MarkCheckedIn(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments SET checked_in_at = $2, updated_at = $2
		WHERE id = $1 AND status IN ('scheduled', 'confirmed', 'rescheduled') AND checked_in_at IS NULL`, id, at)
	if err != nil {
		return false, fmt.Errorf("appointments: mark checked in: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkInProgress transitions confirmed → in-progress.
func (s *Store) MarkInProgress(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments SET status = 'in-progress', updated_at = $2
		WHERE id = $1 AND status = 'confirmed'`, id, at)
	if err != nil {
		return false, fmt.Errorf("appointments: mark in progress: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkCompleted transitions in-progress → completed.
func (s *Store) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments SET status = 'completed', updated_at = $2
		WHERE id = $1 AND status = 'in-progress'`, id, at)
	if err != nil {
		return false, fmt.Errorf("appointments: mark completed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkCancelled transitions an active appointment → cancelled.
func (s *Store) MarkCancelled(ctx context.Context, id, actorID uuid.UUID, at time.Time, reason string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments SET status = 'cancelled', cancelled_by = $2, cancelled_at = $3, cancellation_reason = $4, updated_at = $3
		WHERE id = $1 AND status IN ('scheduled', 'confirmed', 'rescheduled')`, id, actorID, at, reason)
	if err != nil {
		return false, fmt.Errorf("appointments: mark cancelled: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkNoShow transitions an appointment → cancelled-no-show, but only while
// its status is still one of fromStatuses. The conditional write makes the
// sweep idempotent and safe under concurrent sweepers.
func (s *Store) MarkNoShow(ctx context.Context, id uuid.UUID, at time.Time, reason string, fromStatuses []Status) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments SET status = 'cancelled-no-show', cancelled_at = $2, cancellation_reason = $3, updated_at = $2
		WHERE id = $1 AND status = ANY($4)`, id, at, reason, statusStrings(fromStatuses))
	if err != nil {
		return false, fmt.Errorf("appointments: mark no-show: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Reschedule moves an active appointment to a new time. The conflict check
// (excluding the appointment's own slot) and update share one transaction
// under the doctor's advisory lock.
func (s *Store) Reschedule(ctx context.Context, id, actorID uuid.UUID, newDateTime time.Time, reason string) (*Appointment, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments: begin reschedule: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := getByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if current.Status.Cancelled() {
		return nil, ErrCannotRescheduleCancelled
	}
	if !current.Status.Schedulable() {
		return nil, ErrInvalidTransition
	}

	if err := lockDoctor(ctx, tx, current.DoctorID); err != nil {
		return nil, err
	}

	conflict, err := hasConflict(ctx, tx, current.DoctorID, newDateTime, newDateTime.Add(current.Duration()), id)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, ErrSlotConflict
	}

	now := time.Now().UTC()
	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET original_date_time = date_time,
		    date_time = $2,
		    status = 'rescheduled',
		    rescheduled_by = $3,
		    rescheduled_at = $4,
		    reschedule_reason = $5,
		    updated_at = $4
		WHERE id = $1 AND status IN ('scheduled', 'confirmed', 'rescheduled')
		RETURNING `+appointmentColumns,
		id, newDateTime, actorID, now, reason,
	)
	updated, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Status changed between the read and the write; report it as a
		// transition failure rather than retrying.
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: reschedule: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("appointments: commit reschedule: %w", err)
	}
	return updated, nil
}

// ForceStatus overwrites the status directly, bypassing the transition rules.
// Callers must validate the value with ParseStatus first.
func (s *Store) ForceStatus(ctx context.Context, id uuid.UUID, status Status) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("appointments: force status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListUnconfirmedOverdue returns scheduled appointments created at or before
// the cutoff, oldest first.
func (s *Store) ListUnconfirmedOverdue(ctx context.Context, cutoff time.Time, limit int) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+` FROM appointments
		WHERE status = 'scheduled' AND created_at <= $1
		ORDER BY created_at ASC LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("appointments: list unconfirmed overdue: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// ListCheckinOverdue returns active appointments whose start time has passed
// the cutoff without a recorded check-in.
func (s *Store) ListCheckinOverdue(ctx context.Context, cutoff time.Time, limit int) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+` FROM appointments
		WHERE status IN ('scheduled', 'confirmed') AND date_time <= $1 AND checked_in_at IS NULL
		ORDER BY date_time ASC LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("appointments: list check-in overdue: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// lockDoctor serializes bookings per doctor for the rest of the transaction.
func lockDoctor(ctx context.Context, tx pgx.Tx, doctorID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, doctorID); err != nil {
		return fmt.Errorf("appointments: doctor lock: %w", err)
	}
	return nil
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a      Appointment
		status string
	)
	err := row.Scan(
		&a.ID, &a.PatientID, &a.DoctorID, &a.DateTime, &a.DurationMinutes,
		&a.Reason, &a.Notes, &a.Prescription, &status,
		&a.ConfirmedAt, &a.CheckedInAt, &a.CancelledBy, &a.CancelledAt, &a.CancellationReason,
		&a.OriginalDateTime, &a.RescheduledBy, &a.RescheduledAt, &a.RescheduleReason,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Status = Status(status)
	return &a, nil
}

func scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}
