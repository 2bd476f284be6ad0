package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shabbeerali786/Online-Medical-Consultation/pkg/logging"
)

// Handler exposes the appointment lifecycle over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates an appointments handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

type bookRequest struct {
	PatientID       uuid.UUID `json:"patient_id"`
	DoctorID        uuid.UUID `json:"doctor_id"`
	DateTime        time.Time `json:"date_time"`
	Reason          string    `json:"reason"`
	DurationMinutes int       `json:"duration_minutes"`
}

// Book handles POST /appointments.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}

	appt, err := h.service.Book(r.Context(), BookRequest{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		DateTime:        req.DateTime,
		Reason:          req.Reason,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// List handles GET /appointments with optional filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var filter ListFilter
	q := r.URL.Query()
	if raw := q.Get("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "invalid patient_id")
			return
		}
		filter.PatientID = &id
	}
	if raw := q.Get("doctor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "invalid doctor_id")
			return
		}
		filter.DoctorID = &id
	}
	if raw := q.Get("status"); raw != "" {
		status, err := ParseStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_status", "unknown status value")
			return
		}
		filter.Status = &status
	}
	if raw := q.Get("date"); raw != "" {
		day, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "date must be YYYY-MM-DD")
			return
		}
		filter.Day = &day
	}

	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /appointments/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	appt, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// UpdateDetails handles PUT /appointments/{id}.
func (h *Handler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	var req struct {
		Reason       *string `json:"reason"`
		Notes        *string `json:"notes"`
		Prescription *string `json:"prescription"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}
	appt, err := h.service.UpdateDetails(r.Context(), id, req.Reason, req.Notes, req.Prescription)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Confirm handles POST /appointments/{id}/confirm.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Confirm)
}

// CheckIn handles POST /appointments/{id}/check-in.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.CheckIn)
}

// Start handles POST /appointments/{id}/start.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Start)
}

// Complete handles POST /appointments/{id}/complete.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Complete)
}

// Cancel handles POST /appointments/{id}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	var req struct {
		CancelledBy uuid.UUID `json:"cancelled_by"`
		Reason      string    `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}
	appt, err := h.service.Cancel(r.Context(), id, req.CancelledBy, req.Reason)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Reschedule handles POST /appointments/{id}/reschedule.
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	var req struct {
		NewDateTime   time.Time `json:"new_date_time"`
		RescheduledBy uuid.UUID `json:"rescheduled_by"`
		Reason        string    `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}
	appt, err := h.service.Reschedule(r.Context(), id, req.RescheduledBy, req.NewDateTime, req.Reason)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// ForceStatus handles PATCH /appointments/{id}/status (admin only).
func (h *Handler) ForceStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}
	appt, err := h.service.ForceStatus(r.Context(), id, req.Status)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id uuid.UUID) (*Appointment, error)) {
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	appt, err := apply(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *Handler) appointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid appointment id")
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps domain errors to status codes and stable reason
// codes the frontend can branch on.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, "validation_error", vErr.Error())
	case errors.Is(err, ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "invalid_status", "unknown status value")
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "appointment not found")
	case errors.Is(err, ErrDoctorUnavailable):
		writeError(w, http.StatusConflict, "doctor_unavailable", "doctor is not available")
	case errors.Is(err, ErrSlotConflict):
		writeError(w, http.StatusConflict, "slot_conflict", "time slot is already booked")
	case errors.Is(err, ErrAlreadyCancelled):
		writeError(w, http.StatusConflict, "already_cancelled", "appointment is already cancelled")
	case errors.Is(err, ErrCannotRescheduleCancelled):
		writeError(w, http.StatusConflict, "cannot_reschedule_cancelled", "cannot reschedule a cancelled appointment")
	case errors.Is(err, ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", "transition not allowed from current status")
	default:
		h.logger.Error("appointment request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "error": message})
}
