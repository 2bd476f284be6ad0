package doctors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shabbeerali786/Online-Medical-Consultation/pkg/logging"
)

// Handler exposes the doctor directory over HTTP.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates a doctors handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// Create handles POST /doctors (admin only).
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID         uuid.UUID `json:"user_id"`
		Name           string    `json:"name"`
		Specialization string    `json:"specialization"`
		Available      bool      `json:"available"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == uuid.Nil || req.Name == "" {
		http.Error(w, "user_id and name are required", http.StatusBadRequest)
		return
	}

	doc := &Doctor{
		UserID:         req.UserID,
		Name:           req.Name,
		Specialization: req.Specialization,
		Available:      req.Available,
	}
	if err := h.store.Create(r.Context(), doc); err != nil {
		h.logger.Error("failed to create doctor", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	h.logger.Info("doctor created", "id", doc.ID, "name", doc.Name)
	writeJSON(w, http.StatusCreated, doc)
}

// List handles GET /doctors.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list doctors", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /doctors/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid doctor id", http.StatusBadRequest)
		return
	}
	doc, err := h.store.GetDoctor(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "doctor not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to load doctor", "id", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// SetAvailability handles PATCH /doctors/{id}/availability.
func (h *Handler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid doctor id", http.StatusBadRequest)
		return
	}
	var req struct {
		Available *bool `json:"available"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Available == nil {
		http.Error(w, "available flag is required", http.StatusBadRequest)
		return
	}
	if err := h.store.SetAvailability(r.Context(), id, *req.Available); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "doctor not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to update availability", "id", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	h.logger.Info("doctor availability updated", "id", id, "available", *req.Available)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
