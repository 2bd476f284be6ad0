package messaging

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shabbeerali786/Online-Medical-Consultation/pkg/logging"
)

// Handler exposes the messaging inbox over HTTP.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates a messaging handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

type sendRequest struct {
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	SenderID      uuid.UUID  `json:"sender_id"`
	ReceiverID    uuid.UUID  `json:"receiver_id"`
	Content       string     `json:"content"`
}

// Send handles POST /messages. Only user messages come through here; system
// notices are written by the scheduler directly.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SenderID == uuid.Nil || req.ReceiverID == uuid.Nil || req.Content == "" {
		http.Error(w, "sender_id, receiver_id and content are required", http.StatusBadRequest)
		return
	}

	msg := &Message{
		AppointmentID: req.AppointmentID,
		SenderID:      req.SenderID,
		ReceiverID:    req.ReceiverID,
		Content:       req.Content,
		MessageType:   TypeUser,
	}
	if err := h.store.Insert(r.Context(), msg); err != nil {
		h.logger.Error("failed to store message", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(msg)
}

// Inbox handles GET /messages?user_id=...&limit=...
func (h *Handler) Inbox(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	msgs, err := h.store.ListInbox(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("failed to list inbox", "user_id", userID, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(msgs)
}

// ForAppointment handles GET /appointments/{id}/messages.
func (h *Handler) ForAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid appointment id", http.StatusBadRequest)
		return
	}
	msgs, err := h.store.ListForAppointment(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list appointment messages", "appointment_id", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(msgs)
}

// MarkRead handles POST /messages/{id}/read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid message id", http.StatusBadRequest)
		return
	}
	if err := h.store.MarkRead(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "message not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to mark message read", "id", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
