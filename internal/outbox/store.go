package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Store defines the persistence contract for queued outbound messages.
type Store interface {
	// Save inserts a new pending message.
	Save(ctx context.Context, message *Message) error

	// ListUnprocessed returns up to limit pending messages in insertion order.
	ListUnprocessed(ctx context.Context, limit int) ([]Message, error)

	// MarkProcessed flags a message as terminally delivered.
	// Returns ErrMessageNotFound if the message does not exist.
	MarkProcessed(ctx context.Context, id string) error

	// MarkFailed records a failed delivery attempt: increments the retry
	// count and stores the error string, leaving the message pending.
	// Returns ErrMessageNotFound if the message does not exist.
	MarkFailed(ctx context.Context, id string, errMsg string) error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed outbox store.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save inserts a new pending message.
func (s *SQLiteStore) Save(ctx context.Context, message *Message) error {
	query := `
		INSERT INTO outbox_messages (
			id, topic, event_type, subject, data, data_version, event_time,
			processed, retry_count, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		message.ID,
		message.Topic,
		message.EventType,
		message.Subject,
		string(message.Data),
		message.DataVersion,
		message.EventTime.UTC().Format(time.RFC3339),
		message.RetryCount,
		message.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting outbox message: %w", err)
	}

	return nil
}

// ListUnprocessed returns up to limit pending messages, oldest first.
func (s *SQLiteStore) ListUnprocessed(ctx context.Context, limit int) ([]Message, error) {
	query := `
		SELECT id, topic, event_type, subject, data, data_version, event_time,
			processed, processed_at, error, retry_count, created_at
		FROM outbox_messages
		WHERE processed = 0
		ORDER BY created_at, id
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying unprocessed messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning outbox message: %w", err)
		}
		messages = append(messages, *msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating outbox messages: %w", err)
	}

	return messages, nil
}

// MarkProcessed flags a message as terminally delivered.
func (s *SQLiteStore) MarkProcessed(ctx context.Context, id string) error {
	now := time.Now().UTC()
	query := `
		UPDATE outbox_messages
		SET processed = 1, processed_at = ?, error = NULL
		WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, now.Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("marking message processed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMessageNotFound
	}

	return nil
}

// MarkFailed records a failed delivery attempt.
func (s *SQLiteStore) MarkFailed(ctx context.Context, id string, errMsg string) error {
	query := `
		UPDATE outbox_messages
		SET processed = 0, retry_count = retry_count + 1, error = ?
		WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, errMsg, id)
	if err != nil {
		return fmt.Errorf("marking message failed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMessageNotFound
	}

	return nil
}

// scanMessage scans a rows result into a Message.
func scanMessage(rows *sql.Rows) (*Message, error) {
	var m Message
	var data string
	var processed int
	var processedAt, errMsg sql.NullString
	var eventTime, createdAt string

	err := rows.Scan(
		&m.ID,
		&m.Topic,
		&m.EventType,
		&m.Subject,
		&data,
		&m.DataVersion,
		&eventTime,
		&processed,
		&processedAt,
		&errMsg,
		&m.RetryCount,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	m.Data = []byte(data)
	m.Processed = processed != 0
	if errMsg.Valid {
		m.Error = &errMsg.String
	}

	var parseErr error
	m.EventTime, parseErr = time.Parse(time.RFC3339, eventTime)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing event_time: %w", parseErr)
	}
	m.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	if processedAt.Valid {
		t, err := time.Parse(time.RFC3339, processedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing processed_at: %w", err)
		}
		m.ProcessedAt = &t
	}

	return &m, nil
}
