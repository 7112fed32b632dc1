// internal/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"mcp-meal-tracker/internal/models"
)

// PostgresStore implements Store over a remote PostgreSQL table.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres connects to PostgreSQL, pings, and creates the schema.
func OpenPostgres(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS meals (id BIGSERIAL PRIMARY KEY, user_id TEXT NOT NULL, type TEXT NOT NULL CHECK(type IN ('breakfast','lunch','dinner')), started_at TIMESTAMPTZ NOT NULL, ended_at TIMESTAMPTZ);",
		"CREATE INDEX IF NOT EXISTS idx_meals_user_started ON meals(user_id, started_at);",
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, record *models.MealRecord) error {
	var ended interface{}
	if record.EndedAt != nil {
		ended = record.EndedAt.UTC()
	}
	err := s.db.QueryRowContext(ctx,
		"INSERT INTO meals(user_id, type, started_at, ended_at) VALUES($1, $2, $3, $4) RETURNING id;",
		record.UserID, string(record.Type), record.StartedAt.UTC(), ended,
	).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("failed to insert meal: %w", err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, userID string, f Filter) ([]models.MealRecord, error) {
	query := "SELECT id, user_id, type, started_at, ended_at FROM meals WHERE user_id = $1"
	args := []interface{}{userID}

	if f.Type != "" {
		args = append(args, string(f.Type))
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From.UTC())
		query += fmt.Sprintf(" AND started_at >= $%d", len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To.UTC())
		query += fmt.Sprintf(" AND started_at < $%d", len(args))
	}
	if f.OpenOnly {
		query += " AND ended_at IS NULL"
	}
	query += " ORDER BY started_at ASC, id ASC;"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query meals: %w", err)
	}
	defer rows.Close()

	var records []models.MealRecord
	for rows.Next() {
		var rec models.MealRecord
		var typeStr string
		var ended sql.NullTime

		if err := rows.Scan(&rec.ID, &rec.UserID, &typeStr, &rec.StartedAt, &ended); err != nil {
			return nil, fmt.Errorf("failed to scan meal: %w", err)
		}
		rec.Type = models.MealType(typeStr)
		if ended.Valid {
			t := ended.Time
			rec.EndedAt = &t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *PostgresStore) CloseOpen(ctx context.Context, userID string, mealType models.MealType, atOrAfter, endedAt time.Time) (bool, error) {
	sub := "SELECT id FROM meals WHERE user_id = $2 AND type = $3 AND ended_at IS NULL"
	args := []interface{}{endedAt.UTC(), userID, string(mealType)}

	if !atOrAfter.IsZero() {
		args = append(args, atOrAfter.UTC())
		sub += fmt.Sprintf(" AND started_at >= $%d", len(args))
	}
	sub += " ORDER BY started_at DESC, id DESC LIMIT 1"

	res, err := s.db.ExecContext(ctx, "UPDATE meals SET ended_at = $1 WHERE id = ("+sub+");", args...)
	if err != nil {
		return false, fmt.Errorf("failed to close meal: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return n > 0, nil
}
