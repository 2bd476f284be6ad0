package doctors

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound means no doctor exists with the given id.
var ErrNotFound = errors.New("doctors: not found")

// Doctor is a verified practitioner who can be booked. UserID links to the
// platform account used for messaging.
type Doctor struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization"`
	Available      bool      `json:"available"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
