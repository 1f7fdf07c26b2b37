package platform

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// SQLiteHistoryRepository implements HistoryRepository using SQLite.
//
// Rows live in the transition_history table created by the embedded
// migrations.
type SQLiteHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteHistoryRepository creates a new SQLite transition history
// repository.
func NewSQLiteHistoryRepository(db *sql.DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{db: db}
}

// Record inserts one transition history row.
func (r *SQLiteHistoryRepository) Record(ctx context.Context, event Event) error {
	if event.Domain == "" {
		return fmt.Errorf("domain is required")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transition_history
		 (event_id, domain, operation, mode, outcome, error, duration_us, poll_reads, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Domain,
		string(event.Operation),
		event.Mode,
		string(event.Outcome),
		event.Error,
		event.Duration.Microseconds(),
		event.PollReads,
		event.Timestamp.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting transition history: %w", err)
	}
	return nil
}

// GetHistory returns recent transitions for a domain, ordered newest
// first. The limit defaults to 50 and is clamped to 200.
func (r *SQLiteHistoryRepository) GetHistory(ctx context.Context, domain string, limit int) ([]TransitionRecord, error) {
	if domain == "" {
		return nil, fmt.Errorf("domain is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, domain, operation, mode, outcome, error, duration_us, poll_reads, created_at
		 FROM transition_history
		 WHERE domain = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		domain,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying transition history: %w", err)
	}
	defer rows.Close()

	records := make([]TransitionRecord, 0, limit)
	for rows.Next() {
		var rec TransitionRecord
		var createdAt string

		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.Domain, &rec.Operation,
			&rec.Mode, &rec.Outcome, &rec.Error, &rec.DurationUS, &rec.PollReads, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning transition history: %w", err)
		}

		timestamp, err := parseHistoryTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		rec.CreatedAt = timestamp

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transition history: %w", err)
	}
	return records, nil
}

// Prune deletes history rows older than the given duration and returns
// how many were removed.
func (r *SQLiteHistoryRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM transition_history WHERE created_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting transition history: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return rowsAffected, nil
}

// parseHistoryTimestamp parses a timestamp stored in SQLite.
func parseHistoryTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}

	timestamp, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return timestamp, nil
	}

	fallback, fallbackErr := time.Parse("2006-01-02T15:04:05Z", value)
	if fallbackErr == nil {
		return fallback, nil
	}

	return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
}
