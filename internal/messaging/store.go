package messaging

import (
	"context"
	"fmt"
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
}

// Store persists inbox messages. It doubles as the scheduler's notification
// sink through SendSystemNotice.
type Store struct {
	db DB
}

// NewStore creates a message store backed by a pgx pool.
func NewStore(db DB) *Store {
	if db == nil {
		panic("messaging: db required")
	}
	return &Store{db: db}
}

const messageColumns = `id, appointment_id, sender_id, receiver_id, content, message_type, read_at, created_at`

// Insert stores a message.
func (s *Store) Insert(ctx context.Context, m *Message) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.MessageType == "" {
		m.MessageType = TypeUser
	}
	m.CreatedAt = time.Now().UTC()

	_, err := s.db.Exec(ctx, `
		INSERT INTO messages (id, appointment_id, sender_id, receiver_id, content, message_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.AppointmentID, m.SenderID, m.ReceiverID, m.Content, string(m.MessageType), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("messaging: insert: %w", err)
	}
	return nil
}

// SendSystemNotice records a system-generated notice about an appointment.
// This is the notification sink the auto-cancellation sweeper writes to.
func (s *Store) SendSystemNotice(ctx context.Context, appointmentID, fromUserID, toUserID uuid.UUID, text string) error {
	return s.Insert(ctx, &Message{
		AppointmentID: &appointmentID,
		SenderID:      fromUserID,
		ReceiverID:    toUserID,
		Content:       text,
		MessageType:   TypeSystem,
	})
}

// ListInbox returns the newest messages received by a user.
func (s *Store) ListInbox(ctx context.Context, userID uuid.UUID, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE receiver_id = $1
		ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("messaging: list inbox: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// ListForAppointment returns all messages referencing an appointment.
func (s *Store) ListForAppointment(ctx context.Context, appointmentID uuid.UUID) ([]Message, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE appointment_id = $1
		ORDER BY created_at ASC`, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("messaging: list for appointment: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// MarkRead stamps a message as read, once.
func (s *Store) MarkRead(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE messages SET read_at = $2 WHERE id = $1 AND read_at IS NULL`,
		id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("messaging: mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Already read or unknown id; distinguish for the caller.
		var exists bool
		if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM messages WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("messaging: mark read: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

func scanMessages(rows pgx.Rows) ([]Message, error) {
	var result []Message
	for rows.Next() {
		var (
			m   Message
			typ string
		)
		err := rows.Scan(&m.ID, &m.AppointmentID, &m.SenderID, &m.ReceiverID, &m.Content, &typ, &m.ReadAt, &m.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("messaging: scan: %w", err)
		}
		m.MessageType = MessageType(typ)
		result = append(result, m)
	}
	return result, rows.Err()
}
