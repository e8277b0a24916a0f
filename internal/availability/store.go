package availability

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store defines the persistence contract for availability records.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Store interface {
	// Save inserts or replaces the record for its device ID.
	// Last write wins - there is no version check.
	Save(ctx context.Context, record *Record) error

	// GetByID retrieves a record by device ID.
	// Returns ErrRecordNotFound if no record exists.
	GetByID(ctx context.Context, id string) (*Record, error)

	// GetByIDs retrieves the records for the given device IDs.
	// IDs with no record are silently skipped.
	GetByIDs(ctx context.Context, ids []string) ([]Record, error)

	// Delete removes the record for a device ID.
	// Deleting an absent record is not an error.
	Delete(ctx context.Context, id string) error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed availability store.
// The db parameter should be an open SQLite connection.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save inserts or replaces the record for its device ID.
func (s *SQLiteStore) Save(ctx context.Context, record *Record) error {
	query := `
		INSERT INTO availability_records (id, status, reservation_id, last_checked_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			reservation_id = excluded.reservation_id,
			last_checked_at = excluded.last_checked_at,
			updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		string(record.Status),
		nullableString(record.ReservationID),
		record.LastCheckedAt.UTC().Format(time.RFC3339),
		record.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving availability record: %w", err)
	}

	return nil
}

// GetByID retrieves a record by device ID.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*Record, error) {
	query := `
		SELECT id, status, reservation_id, last_checked_at, updated_at
		FROM availability_records
		WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying availability record by id: %w", err)
	}
	return record, nil
}

// GetByIDs retrieves the records for the given device IDs.
func (s *SQLiteStore) GetByIDs(ctx context.Context, ids []string) ([]Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	query := fmt.Sprintf(`
		SELECT id, status, reservation_id, last_checked_at, updated_at
		FROM availability_records
		WHERE id IN (%s)
		ORDER BY id`, placeholders)

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying availability records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning availability record: %w", err)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating availability records: %w", err)
	}

	return records, nil
}

// Delete removes the record for a device ID. Idempotent - absence is success.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM availability_records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting availability record: %w", err)
	}
	return nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord scans a row or rows result into a Record.
func scanRecord(scanner rowScanner) (*Record, error) {
	var r Record
	var status string
	var reservationID sql.NullString
	var lastCheckedAt, updatedAt string

	err := scanner.Scan(
		&r.ID,
		&status,
		&reservationID,
		&lastCheckedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Status = Status(status)
	if reservationID.Valid {
		r.ReservationID = &reservationID.String
	}

	var parseErr error
	r.LastCheckedAt, parseErr = time.Parse(time.RFC3339, lastCheckedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing last_checked_at: %w", parseErr)
	}
	r.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &r, nil
}

// nullableString returns a sql.NullString for optional string pointers.
func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
