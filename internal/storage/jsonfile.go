// internal/storage/jsonfile.go
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"mcp-meal-tracker/internal/models"
)

// jsonRecord is the on-disk shape of one meal, matching the original
// meals.json document layout. UserID is absent in pre-existing documents.
type jsonRecord struct {
	UserID        string  `json:"user_id,omitempty"`
	Type          string  `json:"type"`
	StartDatetime string  `json:"start_datetime"`
	EndDatetime   *string `json:"end_datetime"`
}

type jsonDocument struct {
	Meals []jsonRecord `json:"meals"`
}

// JSONFileStore keeps all records in a single JSON document on disk. Every
// operation loads and, for writes, rewrites the whole document under a lock.
type JSONFileStore struct {
	mu   sync.Mutex
	path string
}

var _ Store = (*JSONFileStore)(nil)

func NewJSONFileStore(path string) (*JSONFileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("data file path is required")
	}
	return &JSONFileStore{path: path}, nil
}

func (s *JSONFileStore) Close() error {
	return nil
}

func (s *JSONFileStore) Append(ctx context.Context, record *models.MealRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	doc.Meals = append(doc.Meals, encodeRecord(record))
	record.ID = int64(len(doc.Meals))

	return s.save(doc)
}

func (s *JSONFileStore) Query(ctx context.Context, userID string, f Filter) ([]models.MealRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	var records []models.MealRecord
	for i := range doc.Meals {
		rec, err := decodeRecord(int64(i+1), &doc.Meals[i])
		if err != nil {
			return nil, err
		}
		if rec.UserID != userID {
			continue
		}
		if f.Type != "" && rec.Type != f.Type {
			continue
		}
		if !f.From.IsZero() && rec.StartedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !rec.StartedAt.Before(f.To) {
			continue
		}
		if f.OpenOnly && !rec.Open() {
			continue
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartedAt.Before(records[j].StartedAt)
	})
	return records, nil
}

func (s *JSONFileStore) CloseOpen(ctx context.Context, userID string, mealType models.MealType, atOrAfter, endedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return false, err
	}

	// Newest-first scan: the last-appended open record of this type wins.
	for i := len(doc.Meals) - 1; i >= 0; i-- {
		m := &doc.Meals[i]
		if recordUser(m) != userID || m.Type != string(mealType) || m.EndDatetime != nil {
			continue
		}
		if !atOrAfter.IsZero() {
			started, err := parseDatetime(m.StartDatetime)
			if err != nil {
				return false, err
			}
			if started.Before(atOrAfter) {
				continue
			}
		}
		ended := endedAt.Format(time.RFC3339)
		m.EndDatetime = &ended
		if err := s.save(doc); err != nil {
			return false, err
		}
		return true, nil
	}

	return false, nil
}

func (s *JSONFileStore) load() (*jsonDocument, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &jsonDocument{Meals: []jsonRecord{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}

	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse data file: %w", err)
	}
	return &doc, nil
}

func (s *JSONFileStore) save(doc *jsonDocument) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode data file: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write data file: %w", err)
	}
	return nil
}

func encodeRecord(record *models.MealRecord) jsonRecord {
	m := jsonRecord{
		UserID:        record.UserID,
		Type:          string(record.Type),
		StartDatetime: record.StartedAt.Format(time.RFC3339),
	}
	if record.EndedAt != nil {
		ended := record.EndedAt.Format(time.RFC3339)
		m.EndDatetime = &ended
	}
	return m
}

func decodeRecord(id int64, m *jsonRecord) (models.MealRecord, error) {
	started, err := parseDatetime(m.StartDatetime)
	if err != nil {
		return models.MealRecord{}, fmt.Errorf("failed to parse start_datetime: %w", err)
	}

	rec := models.MealRecord{
		ID:        id,
		UserID:    recordUser(m),
		Type:      models.MealType(m.Type),
		StartedAt: started,
	}
	if m.EndDatetime != nil {
		ended, err := parseDatetime(*m.EndDatetime)
		if err != nil {
			return models.MealRecord{}, fmt.Errorf("failed to parse end_datetime: %w", err)
		}
		rec.EndedAt = &ended
	}
	return rec, nil
}

// recordUser maps records written before user tracking to the anonymous user.
func recordUser(m *jsonRecord) string {
	if m.UserID == "" {
		return models.AnonymousUser
	}
	return m.UserID
}

// parseDatetime accepts RFC3339 as written by this store, plus the naive
// local timestamps found in older documents.
func parseDatetime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", s, time.Local)
}
