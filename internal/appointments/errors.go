package appointments

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no appointment exists with the given id.
	ErrNotFound = errors.New("appointments: not found")

	// ErrDoctorUnavailable means the doctor is missing or not accepting bookings.
	ErrDoctorUnavailable = errors.New("appointments: doctor is not available")

	// ErrSlotConflict means the requested interval overlaps an active booking.
	ErrSlotConflict = errors.New("appointments: time slot is already booked")

	// ErrInvalidTransition means the requested transition is not legal from
	// the appointment's current status.
	ErrInvalidTransition = errors.New("appointments: invalid status transition")

	// ErrAlreadyCancelled means the appointment was already cancelled.
	ErrAlreadyCancelled = errors.New("appointments: appointment is already cancelled")

	// ErrCannotRescheduleCancelled means a cancelled appointment cannot move.
	ErrCannotRescheduleCancelled = errors.New("appointments: cannot reschedule a cancelled appointment")

	// ErrInvalidStatus means the raw status value is not one of the known states.
	ErrInvalidStatus = errors.New("appointments: invalid status")
)

// ValidationError reports malformed booking or transition input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("appointments: invalid %s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
