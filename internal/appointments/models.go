package appointments

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks the lifecycle of an appointment.
type Status string

const (
	StatusScheduled       Status = "scheduled"
	StatusConfirmed       Status = "confirmed"
	StatusInProgress      Status = "in-progress"
	StatusCompleted       Status = "completed"
	StatusCancelled       Status = "cancelled"
	StatusCancelledNoShow Status = "cancelled-no-show"
	StatusRescheduled     Status = "rescheduled"
)

// DefaultDurationMinutes is the booked slot length when a request omits one.
const DefaultDurationMinutes = 30

// ParseStatus validates a raw status string against the closed status set.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress, StatusCompleted,
		StatusCancelled, StatusCancelledNoShow, StatusRescheduled:
		return s, nil
	}
	return "", ErrInvalidStatus
}

// Cancelled reports whether the status is one of the cancellation states.
func (s Status) Cancelled() bool {
	return s == StatusCancelled || s == StatusCancelledNoShow
}

// Terminal reports whether no further workflow transitions are legal.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s.Cancelled()
}

// Schedulable reports whether the appointment still occupies a live booking
// that can be confirmed, cancelled or rescheduled. A rescheduled appointment
// re-enters the active set at its new time.
func (s Status) Schedulable() bool {
	return s == StatusScheduled || s == StatusConfirmed || s == StatusRescheduled
}

// conflictStatuses are the statuses that hold a doctor's slot for the
// double-booking check.
var conflictStatuses = []Status{StatusScheduled, StatusConfirmed}

// Appointment represents a booked consultation between a patient and a doctor.
// The occupied interval is half-open: [DateTime, DateTime+Duration).
type Appointment struct {
	ID                 uuid.UUID  `json:"id"`
	PatientID          uuid.UUID  `json:"patient_id"`
	DoctorID           uuid.UUID  `json:"doctor_id"`
	DateTime           time.Time  `json:"date_time"`
	DurationMinutes    int        `json:"duration_minutes"`
	Reason             string     `json:"reason,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	Prescription       string     `json:"prescription,omitempty"`
	Status             Status     `json:"status"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	CheckedInAt        *time.Time `json:"checked_in_at,omitempty"`
	CancelledBy        *uuid.UUID `json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	OriginalDateTime   *time.Time `json:"original_date_time,omitempty"`
	RescheduledBy      *uuid.UUID `json:"rescheduled_by,omitempty"`
	RescheduledAt      *time.Time `json:"rescheduled_at,omitempty"`
	RescheduleReason   string     `json:"reschedule_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Duration returns the booked slot length.
func (a *Appointment) Duration() time.Duration {
	return time.Duration(a.DurationMinutes) * time.Minute
}

// End returns the exclusive end of the occupied interval.
func (a *Appointment) End() time.Time {
	return a.DateTime.Add(a.Duration())
}

// Overlaps applies the half-open interval test against [start, end).
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.DateTime.Before(end) && start.Before(a.End())
}

// ListFilter narrows List queries. Nil fields are ignored. Day matches
// appointments whose DateTime falls on that calendar day.
type ListFilter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    *Status
	Day       *time.Time
}
