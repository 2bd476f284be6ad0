package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/shabbeerali786/Online-Medical-Consultation/internal/doctors"
	"github.com/shabbeerali786/Online-Medical-Consultation/internal/observability/metrics"
	"github.com/shabbeerali786/Online-Medical-Consultation/pkg/logging"
)

var tracer = otel.Tracer("telemed.internal.appointments")

// DoctorDirectory resolves doctors for booking checks and notice routing.
type DoctorDirectory interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*doctors.Doctor, error)
}

// Service owns the appointment lifecycle: booking with conflict detection
// and the validated status transitions.
type Service struct {
	store           *Store
	doctors         DoctorDirectory
	logger          *logging.Logger
	metrics         *metrics.SchedulingMetrics
	defaultDuration int
}

// NewService constructs an appointments service.
func NewService(store *Store, directory DoctorDirectory, logger *logging.Logger, m *metrics.SchedulingMetrics, defaultDurationMinutes int) *Service {
	if store == nil {
		panic("appointments: store required")
	}
	if directory == nil {
		panic("appointments: doctor directory required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if defaultDurationMinutes <= 0 {
		defaultDurationMinutes = DefaultDurationMinutes
	}
	return &Service{
		store:           store,
		doctors:         directory,
		logger:          logger,
		metrics:         m,
		defaultDuration: defaultDurationMinutes,
	}
}

// BookRequest carries the booking input.
type BookRequest struct {
	PatientID       uuid.UUID
	DoctorID        uuid.UUID
	DateTime        time.Time
	Reason          string
	DurationMinutes int
}

// Book creates a scheduled appointment after the availability and
// double-booking checks pass.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.book")
	defer span.End()

	if req.PatientID == uuid.Nil {
		return nil, validationErr("patient_id", "required")
	}
	if req.DoctorID == uuid.Nil {
		return nil, validationErr("doctor_id", "required")
	}
	if req.DateTime.IsZero() {
		return nil, validationErr("date_time", "required")
	}
	if req.DurationMinutes < 0 {
		return nil, validationErr("duration_minutes", "must be positive")
	}
	if req.DurationMinutes == 0 {
		req.DurationMinutes = s.defaultDuration
	}
	span.SetAttributes(
		attribute.String("telemed.doctor_id", req.DoctorID.String()),
		attribute.String("telemed.patient_id", req.PatientID.String()),
	)

	doc, err := s.doctors.GetDoctor(ctx, req.DoctorID)
	if errors.Is(err, doctors.ErrNotFound) {
		return nil, ErrDoctorUnavailable
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: resolve doctor: %w", err)
	}
	if !doc.Available {
		return nil, ErrDoctorUnavailable
	}

	appt := &Appointment{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		DateTime:        req.DateTime.UTC(),
		DurationMinutes: req.DurationMinutes,
		Reason:          req.Reason,
		Status:          StatusScheduled,
	}
	if err := s.store.CreateScheduled(ctx, appt); err != nil {
		if errors.Is(err, ErrSlotConflict) {
			s.metrics.ObserveBooking("conflict")
			return nil, err
		}
		span.RecordError(err)
		s.metrics.ObserveBooking("error")
		return nil, err
	}

	s.metrics.ObserveBooking("booked")
	s.logger.Info("appointment booked",
		"id", appt.ID,
		"doctor_id", appt.DoctorID,
		"patient_id", appt.PatientID,
		"date_time", appt.DateTime,
		"duration_minutes", appt.DurationMinutes,
	)
	return appt, nil
}

// Confirm transitions a scheduled appointment to confirmed.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	ok, err := s.store.MarkConfirmed(ctx, id, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.classifyTransitionFailure(ctx, id)
	}
	s.metrics.ObserveTransition("confirm")
	s.logger.Info("appointment confirmed", "id", id)
	return s.store.GetByID(ctx, id)
}

// CheckIn records the patient's arrival. Calling it again after the check-in
// timestamp is set is a no-op.
func (s *Service) CheckIn(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	ok, err := s.store.MarkCheckedIn(ctx, id, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if ok {
		s.metrics.ObserveTransition("check_in")
		s.logger.Info("patient checked in", "id", id)
		return s.store.GetByID(ctx, id)
	}

	appt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.CheckedInAt != nil && appt.Status.Schedulable() {
		return appt, nil
	}
	return nil, ErrInvalidTransition
}

// Start begins the consultation (confirmed → in-progress).
func (s *Service) Start(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	ok, err := s.store.MarkInProgress(ctx, id, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.classifyTransitionFailure(ctx, id)
	}
	s.metrics.ObserveTransition("start")
	s.logger.Info("consultation started", "id", id)
	return s.store.GetByID(ctx, id)
}

// Complete ends the consultation (in-progress → completed).
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	ok, err := s.store.MarkCompleted(ctx, id, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.classifyTransitionFailure(ctx, id)
	}
	s.metrics.ObserveTransition("complete")
	s.logger.Info("consultation completed", "id", id)
	return s.store.GetByID(ctx, id)
}

// Cancel cancels an active appointment on behalf of actorID.
func (s *Service) Cancel(ctx context.Context, id, actorID uuid.UUID, reason string) (*Appointment, error) {
	if actorID == uuid.Nil {
		return nil, validationErr("cancelled_by", "required")
	}
	ok, err := s.store.MarkCancelled(ctx, id, actorID, time.Now().UTC(), reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.classifyCancelFailure(ctx, id)
	}
	s.metrics.ObserveTransition("cancel")
	s.logger.Info("appointment cancelled", "id", id, "cancelled_by", actorID)
	return s.store.GetByID(ctx, id)
}

// Reschedule moves an active appointment to newDateTime, keeping the
// immediately-prior time in original_date_time.
func (s *Service) Reschedule(ctx context.Context, id, actorID uuid.UUID, newDateTime time.Time, reason string) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.reschedule")
	defer span.End()

	if actorID == uuid.Nil {
		return nil, validationErr("rescheduled_by", "required")
	}
	if newDateTime.IsZero() {
		return nil, validationErr("new_date_time", "required")
	}

	appt, err := s.store.Reschedule(ctx, id, actorID, newDateTime.UTC(), reason)
	if err != nil {
		if errors.Is(err, ErrSlotConflict) {
			s.metrics.ObserveBooking("conflict")
		}
		return nil, err
	}
	s.metrics.ObserveTransition("reschedule")
	s.logger.Info("appointment rescheduled",
		"id", id,
		"rescheduled_by", actorID,
		"new_date_time", appt.DateTime,
		"original_date_time", appt.OriginalDateTime,
	)
	return appt, nil
}

// ForceStatus is the administrative escape hatch: it overwrites the status
// without consulting the transition rules. It stays separate from the
// validated transitions on purpose.
func (s *Service) ForceStatus(ctx context.Context, id uuid.UUID, raw string) (*Appointment, error) {
	status, err := ParseStatus(raw)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.ForceStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	s.metrics.ObserveTransition("force_status")
	s.logger.Warn("appointment status forced", "id", id, "status", status)
	return s.store.GetByID(ctx, id)
}

// UpdateDetails patches reason/notes/prescription outside the workflow.
func (s *Service) UpdateDetails(ctx context.Context, id uuid.UUID, reason, notes, prescription *string) (*Appointment, error) {
	return s.store.UpdateDetails(ctx, id, reason, notes, prescription)
}

// Get returns a single appointment.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.store.GetByID(ctx, id)
}

// List returns appointments matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Appointment, error) {
	return s.store.List(ctx, filter)
}

// classifyTransitionFailure turns a zero-row conditional update into the
// error the caller should see: unknown id or an illegal transition.
func (s *Service) classifyTransitionFailure(ctx context.Context, id uuid.UUID) error {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrInvalidTransition
}

// classifyCancelFailure distinguishes a repeat cancellation from other
// illegal cancel attempts.
func (s *Service) classifyCancelFailure(ctx context.Context, id uuid.UUID) error {
	appt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if appt.Status.Cancelled() {
		return ErrAlreadyCancelled
	}
	return ErrInvalidTransition
}
