package messaging

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound means no message exists with the given id.
var ErrNotFound = errors.New("messaging: not found")

// MessageType distinguishes user conversation from system notices.
type MessageType string

const (
	TypeUser   MessageType = "user"
	TypeSystem MessageType = "system"
)

// Message is one inbox entry. System notices reference the appointment that
// produced them.
type Message struct {
	ID            uuid.UUID   `json:"id"`
	AppointmentID *uuid.UUID  `json:"appointment_id,omitempty"`
	SenderID      uuid.UUID   `json:"sender_id"`
	ReceiverID    uuid.UUID   `json:"receiver_id"`
	Content       string      `json:"content"`
	MessageType   MessageType `json:"message_type"`
	ReadAt        *time.Time  `json:"read_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}
