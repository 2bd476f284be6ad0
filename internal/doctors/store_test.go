package doctors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var doctorCols = []string{"id", "user_id", "name", "specialization", "available", "created_at", "updated_at"}

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *Store) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, NewStore(mock)
}

func TestCreateDoctor(t *testing.T) {
	mock, store := newMockStore(t)
	userID := uuid.New()

	mock.ExpectExec("INSERT INTO doctors").
		WithArgs(pgxmock.AnyArg(), userID, "Dr. Meena Rao", "Cardiology", true, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	doc := &Doctor{UserID: userID, Name: "Dr. Meena Rao", Specialization: "Cardiology", Available: true}
	if err := store.Create(context.Background(), doc); err != nil {
		t.Fatalf("create doctor: %v", err)
	}
	if doc.ID == uuid.Nil {
		t.Fatal("expected generated id")
	}
}

func TestGetDoctorNotFound(t *testing.T) {
	mock, store := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM doctors WHERE id").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	if _, err := store.GetDoctor(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetDoctor(t *testing.T) {
	mock, store := newMockStore(t)
	id := uuid.New()
	userID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM doctors WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(doctorCols).
			AddRow(id, userID, "Dr. Meena Rao", "Cardiology", true, now, now))

	doc, err := store.GetDoctor(context.Background(), id)
	if err != nil {
		t.Fatalf("get doctor: %v", err)
	}
	if doc.UserID != userID || !doc.Available {
		t.Fatalf("unexpected doctor: %+v", doc)
	}
}

func TestSetAvailabilityUnknownDoctor(t *testing.T) {
	mock, store := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE doctors SET available").
		WithArgs(id, false, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := store.SetAvailability(context.Background(), id, false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListOrdersAvailableFirst(t *testing.T) {
	mock, store := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM doctors ORDER BY available DESC").
		WillReturnRows(pgxmock.NewRows(doctorCols).
			AddRow(uuid.New(), uuid.New(), "Dr. A", "Dermatology", true, now, now).
			AddRow(uuid.New(), uuid.New(), "Dr. B", "Neurology", false, now, now))

	list, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list doctors: %v", err)
	}
	if len(list) != 2 || !list[0].Available {
		t.Fatalf("unexpected list: %+v", list)
	}
}
