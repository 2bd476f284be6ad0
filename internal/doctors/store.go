package doctors

import (
	"context"
	"errors"
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

// Store provides persistence for the doctor directory.
type Store struct {
	db DB
}

// NewStore creates a doctor store backed by a pgx pool.
func NewStore(db DB) *Store {
	if db == nil {
		panic("doctors: db required")
	}
	return &Store{db: db}
}

const doctorColumns = `id, user_id, name, specialization, available, created_at, updated_at`

// Create inserts a doctor record.
func (s *Store) Create(ctx context.Context, d *Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err := s.db.Exec(ctx, `
		INSERT INTO doctors (id, user_id, name, specialization, available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		d.ID, d.UserID, d.Name, d.Specialization, d.Available, now,
	)
	if err != nil {
		return fmt.Errorf("doctors: create: %w", err)
	}
	return nil
}

// GetDoctor returns the doctor or ErrNotFound.
func (s *Store) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := s.db.QueryRow(ctx, `SELECT `+doctorColumns+` FROM doctors WHERE id = $1`, id)
	d, err := scanDoctor(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("doctors: get: %w", err)
	}
	return d, nil
}

// List returns all doctors, available first, then by name.
func (s *Store) List(ctx context.Context) ([]Doctor, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+doctorColumns+` FROM doctors ORDER BY available DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("doctors: list: %w", err)
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, fmt.Errorf("doctors: scan: %w", err)
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

// SetAvailability flips the booking flag.
func (s *Store) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE doctors SET available = $2, updated_at = $3 WHERE id = $1`,
		id, available, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("doctors: set availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Specialization, &d.Available, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
