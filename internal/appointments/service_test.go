package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/shabbeerali786/Online-Medical-Consultation/internal/doctors"
	"github.com/shabbeerali786/Online-Medical-Consultation/pkg/logging"
)

type stubDirectory struct {
	doc *doctors.Doctor
	err error
}

func (d *stubDirectory) GetDoctor(ctx context.Context, id uuid.UUID) (*doctors.Doctor, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.doc, nil
}

func newTestService(t *testing.T, directory DoctorDirectory) (pgxmock.PgxPoolIface, *Service) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	if directory == nil {
		directory = &stubDirectory{doc: &doctors.Doctor{ID: uuid.New(), UserID: uuid.New(), Available: true}}
	}
	return mock, NewService(NewStore(mock), directory, logging.Default(), nil, 30)
}

func TestBookValidatesInput(t *testing.T) {
	_, svc := newTestService(t, nil)
	ctx := context.Background()

	cases := []struct {
		name  string
		req   BookRequest
		field string
	}{
		{"missing patient", BookRequest{DoctorID: uuid.New(), DateTime: time.Now()}, "patient_id"},
		{"missing doctor", BookRequest{PatientID: uuid.New(), DateTime: time.Now()}, "doctor_id"},
		{"missing time", BookRequest{PatientID: uuid.New(), DoctorID: uuid.New()}, "date_time"},
		{"negative duration", BookRequest{PatientID: uuid.New(), DoctorID: uuid.New(), DateTime: time.Now(), DurationMinutes: -15}, "duration_minutes"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Book(ctx, tc.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestBookUnknownDoctor(t *testing.T) {
	_, svc := newTestService(t, &stubDirectory{err: doctors.ErrNotFound})

	_, err := svc.Book(context.Background(), BookRequest{
		PatientID: uuid.New(),
		DoctorID:  uuid.New(),
		DateTime:  time.Now().UTC().Add(time.Hour),
	})
	require.ErrorIs(t, err, ErrDoctorUnavailable)
}

func TestBookUnavailableDoctor(t *testing.T) {
	_, svc := newTestService(t, &stubDirectory{doc: &doctors.Doctor{ID: uuid.New(), Available: false}})

	_, err := svc.Book(context.Background(), BookRequest{
		PatientID: uuid.New(),
		DoctorID:  uuid.New(),
		DateTime:  time.Now().UTC().Add(time.Hour),
	})
	require.ErrorIs(t, err, ErrDoctorUnavailable)
}

func TestBookDefaultsDuration(t *testing.T) {
	mock, svc := newTestService(t, nil)
	doctorID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").
		WithArgs(doctorID).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(doctorID, []string{"scheduled", "confirmed"}, uuid.Nil, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), doctorID, pgxmock.AnyArg(), 30, "", "scheduled", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	appt, err := svc.Book(context.Background(), BookRequest{
		PatientID: uuid.New(),
		DoctorID:  doctorID,
		DateTime:  time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, 30, appt.DurationMinutes)
}

func TestConfirmOnTerminalStatus(t *testing.T) {
	mock, svc := newTestService(t, nil)
	id := uuid.New()

	mock.ExpectExec("UPDATE appointments SET status = 'confirmed'").
		WithArgs(id, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT (.+) FROM appointments WHERE id").
		WithArgs(id).
		WillReturnRows(appointmentRow(Appointment{
			ID: id, PatientID: uuid.New(), DoctorID: uuid.New(),
			DateTime: time.Now().UTC(), DurationMinutes: 30, Status: StatusCompleted,
			CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
		}))

	_, err := svc.Confirm(context.Background(), id)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestConfirmUnknownAppointment(t *testing.T) {
	mock, svc := newTestService(t, nil)
	id := uuid.New()

	mock.ExpectExec("UPDATE appointments SET status = 'confirmed'").
		WithArgs(id, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT (.+) FROM appointments WHERE id").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.Confirm(context.Background(), id)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCancelTwiceReportsAlreadyCancelled(t *testing.T) {
	mock, svc := newTestService(t, nil)
	id := uuid.New()
	actorID := uuid.New()

	mock.ExpectExec("UPDATE appointments SET status = 'cancelled'").
		WithArgs(id, actorID, pgxmock.AnyArg(), "changed plans").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT (.+) FROM appointments WHERE id").
		WithArgs(id).
		WillReturnRows(appointmentRow(Appointment{
			ID: id, PatientID: uuid.New(), DoctorID: uuid.New(),
			DateTime: time.Now().UTC(), DurationMinutes: 30, Status: StatusCancelled,
			CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
		}))

	_, err := svc.Cancel(context.Background(), id, actorID, "changed plans")
	require.ErrorIs(t, err, ErrAlreadyCancelled)
}

func TestCheckInTwiceIsNoOp(t *testing.T) {
	mock, svc := newTestService(t, nil)
	id := uuid.New()
	checkedInAt := time.Now().UTC().Add(-5 * time.Minute)

	mock.ExpectExec("UPDATE appointments SET checked_in_at").
		WithArgs(id, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT (.+) FROM appointments WHERE id").
		WithArgs(id).
		WillReturnRows(appointmentRow(Appointment{
			ID: id, PatientID: uuid.New(), DoctorID: uuid.New(),
			DateTime: time.Now().UTC(), DurationMinutes: 30, Status: StatusConfirmed,
			CheckedInAt: &checkedInAt,
			CreatedAt:   time.Now().UTC(), UpdatedAt: time.Now().UTC(),
		}))

	appt, err := svc.CheckIn(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, appt.CheckedInAt)
	require.True(t, appt.CheckedInAt.Equal(checkedInAt))
}

func TestCheckInOnCancelledAppointment(t *testing.T) {
	mock, svc := newTestService(t, nil)
	id := uuid.New()

	mock.ExpectExec("UPDATE appointments SET checked_in_at").
		WithArgs(id, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT (.+) FROM appointments WHERE id").
		WithArgs(id).
		WillReturnRows(appointmentRow(Appointment{
			ID: id, PatientID: uuid.New(), DoctorID: uuid.New(),
			DateTime: time.Now().UTC(), DurationMinutes: 30, Status: StatusCancelledNoShow,
			CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
		}))

	_, err := svc.CheckIn(context.Background(), id)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestForceStatusRejectsUnknownValue(t *testing.T) {
	_, svc := newTestService(t, nil)

	_, err := svc.ForceStatus(context.Background(), uuid.New(), "vanished")
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestRescheduleValidatesInput(t *testing.T) {
	_, svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Reschedule(ctx, uuid.New(), uuid.Nil, time.Now(), "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "rescheduled_by", verr.Field)

	_, err = svc.Reschedule(ctx, uuid.New(), uuid.New(), time.Time{}, "")
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "new_date_time", verr.Field)
}
