// internal/storage/storage.go
package storage

import (
	"context"
	"fmt"
	"time"

	"mcp-meal-tracker/internal/models"
)

// Filter narrows a Query. Zero values mean "no constraint".
type Filter struct {
	Type     models.MealType // equality on meal type
	From     time.Time       // inclusive lower bound on StartedAt
	To       time.Time       // exclusive upper bound on StartedAt
	OpenOnly bool            // only records whose EndedAt is unset
}

// Store is the persistence port for meal records.
type Store interface {
	// Append durably stores a new record. No duplicate-open validation.
	Append(ctx context.Context, record *models.MealRecord) error

	// Query returns the user's records matching f, ascending by StartedAt.
	Query(ctx context.Context, userID string, f Filter) ([]models.MealRecord, error)

	// CloseOpen sets EndedAt on the most recently started open record of the
	// given type with StartedAt >= atOrAfter (zero time means no lower bound).
	// It reports whether a record matched.
	CloseOpen(ctx context.Context, userID string, mealType models.MealType, atOrAfter, endedAt time.Time) (bool, error)

	Close() error
}

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendJSONFile = "jsonfile"
)

// Config selects and configures a storage backend.
type Config struct {
	Backend     string
	DBPath      string // sqlite
	DataFile    string // jsonfile
	PostgresURL string // postgres
}

// Validate checks that the fields required by the selected backend are set.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("sqlite backend requires a database path")
		}
	case BackendPostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("postgres backend requires a connection string (set -postgres-url or DATABASE_URL)")
		}
	case BackendJSONFile:
		if c.DataFile == "" {
			return fmt.Errorf("jsonfile backend requires a data file path")
		}
	case "":
		return fmt.Errorf("storage backend is required")
	default:
		return fmt.Errorf("unknown storage backend %q (expected sqlite, postgres, or jsonfile)", c.Backend)
	}
	return nil
}

// Open constructs the store described by cfg.
func Open(cfg Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendSQLite:
		return NewSQLiteStore(cfg.DBPath)
	case BackendPostgres:
		return OpenPostgres(cfg.PostgresURL)
	case BackendJSONFile:
		return NewJSONFileStore(cfg.DataFile)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}
