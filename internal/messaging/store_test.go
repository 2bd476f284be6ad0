package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var messageCols = []string{"id", "appointment_id", "sender_id", "receiver_id", "content", "message_type", "read_at", "created_at"}

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *Store) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, NewStore(mock)
}

func TestSendSystemNotice(t *testing.T) {
	mock, store := newMockStore(t)
	appointmentID := uuid.New()
	fromID := uuid.New()
	toID := uuid.New()

	mock.ExpectExec("INSERT INTO messages").
		WithArgs(pgxmock.AnyArg(), &appointmentID, fromID, toID, "Appointment cancelled – Patient No Show. Patient did not confirm within the required time.", "system", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.SendSystemNotice(context.Background(), appointmentID, fromID, toID,
		"Appointment cancelled – Patient No Show. Patient did not confirm within the required time.")
	if err != nil {
		t.Fatalf("send system notice: %v", err)
	}
}

func TestInsertDefaultsToUserMessage(t *testing.T) {
	mock, store := newMockStore(t)
	senderID := uuid.New()
	receiverID := uuid.New()

	mock.ExpectExec("INSERT INTO messages").
		WithArgs(pgxmock.AnyArg(), (*uuid.UUID)(nil), senderID, receiverID, "see you at 9", "user", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	m := &Message{SenderID: senderID, ReceiverID: receiverID, Content: "see you at 9"}
	if err := store.Insert(context.Background(), m); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if m.MessageType != TypeUser {
		t.Fatalf("expected user type, got %s", m.MessageType)
	}
}

func TestListInboxDefaultsLimit(t *testing.T) {
	mock, store := newMockStore(t)
	userID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM messages").
		WithArgs(userID, 50).
		WillReturnRows(pgxmock.NewRows(messageCols).
			AddRow(uuid.New(), (*uuid.UUID)(nil), uuid.New(), userID, "hello", "user", (*time.Time)(nil), now))

	list, err := store.ListInbox(context.Background(), userID, 0)
	if err != nil {
		t.Fatalf("list inbox: %v", err)
	}
	if len(list) != 1 || list[0].Content != "hello" {
		t.Fatalf("unexpected inbox: %+v", list)
	}
}

func TestMarkReadUnknownMessage(t *testing.T) {
	mock, store := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE messages SET read_at").
		WithArgs(id, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	if err := store.MarkRead(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkReadTwiceIsNoError(t *testing.T) {
	mock, store := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE messages SET read_at").
		WithArgs(id, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	if err := store.MarkRead(context.Background(), id); err != nil {
		t.Fatalf("mark read: %v", err)
	}
}
