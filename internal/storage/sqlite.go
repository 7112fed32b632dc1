// internal/storage/sqlite.go
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"mcp-meal-tracker/internal/models"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS meals (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id TEXT NOT NULL,
        type TEXT NOT NULL,
        started_at DATETIME NOT NULL,
        ended_at DATETIME
    );

    CREATE INDEX IF NOT EXISTS idx_meals_user_started ON meals(user_id, started_at);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, record *models.MealRecord) error {
	query := `
        INSERT INTO meals (user_id, type, started_at, ended_at)
        VALUES (?, ?, ?, ?)
    `
	res, err := s.db.ExecContext(ctx, query,
		record.UserID, string(record.Type), formatTime(record.StartedAt), nullableTime(record.EndedAt))
	if err != nil {
		return fmt.Errorf("failed to insert meal: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		record.ID = id
	}
	return nil
}

func (s *SQLiteStore) Query(ctx context.Context, userID string, f Filter) ([]models.MealRecord, error) {
	query := `
        SELECT id, user_id, type, started_at, ended_at
        FROM meals
        WHERE user_id = ?
    `
	args := []interface{}{userID}

	if f.Type != "" {
		query += " AND type = ?"
		args = append(args, string(f.Type))
	}
	if !f.From.IsZero() {
		query += " AND started_at >= ?"
		args = append(args, formatTime(f.From))
	}
	if !f.To.IsZero() {
		query += " AND started_at < ?"
		args = append(args, formatTime(f.To))
	}
	if f.OpenOnly {
		query += " AND ended_at IS NULL"
	}

	query += " ORDER BY started_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query meals: %w", err)
	}
	defer rows.Close()

	var records []models.MealRecord
	for rows.Next() {
		var rec models.MealRecord
		var typeStr, startedStr string
		var endedStr sql.NullString

		if err := rows.Scan(&rec.ID, &rec.UserID, &typeStr, &startedStr, &endedStr); err != nil {
			return nil, fmt.Errorf("failed to scan meal: %w", err)
		}

		rec.Type = models.MealType(typeStr)
		if rec.StartedAt, err = time.Parse(time.RFC3339, startedStr); err != nil {
			return nil, fmt.Errorf("failed to parse started_at: %w", err)
		}
		if endedStr.Valid {
			ended, err := time.Parse(time.RFC3339, endedStr.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse ended_at: %w", err)
			}
			rec.EndedAt = &ended
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}

func (s *SQLiteStore) CloseOpen(ctx context.Context, userID string, mealType models.MealType, atOrAfter, endedAt time.Time) (bool, error) {
	sub := "SELECT id FROM meals WHERE user_id = ? AND type = ? AND ended_at IS NULL"
	args := []interface{}{formatTime(endedAt), userID, string(mealType)}

	if !atOrAfter.IsZero() {
		sub += " AND started_at >= ?"
		args = append(args, formatTime(atOrAfter))
	}
	sub += " ORDER BY started_at DESC, id DESC LIMIT 1"

	res, err := s.db.ExecContext(ctx, "UPDATE meals SET ended_at = ? WHERE id = ("+sub+")", args...)
	if err != nil {
		return false, fmt.Errorf("failed to close meal: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return n > 0, nil
}

// Timestamps are stored as UTC RFC3339 text, so string comparison in SQL
// matches chronological order.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
