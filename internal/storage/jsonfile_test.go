package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mcp-meal-tracker/internal/models"
	"mcp-meal-tracker/internal/storage"
)

func newFileStore(t *testing.T) (*storage.JSONFileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meals.json")
	store, err := storage.NewJSONFileStore(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return store, path
}

func TestJSONFile_PersistsAcrossInstances(t *testing.T) {
	store, path := newFileStore(t)
	ctx := context.Background()

	rec := models.MealRecord{
		UserID:    "alice",
		Type:      models.Breakfast,
		StartedAt: time.Date(2026, 8, 23, 8, 10, 0, 0, time.UTC),
	}
	if err := store.Append(ctx, &rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reopened, err := storage.NewJSONFileStore(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records, err := reopened.Query(ctx, "alice", storage.Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Type != models.Breakfast || !records[0].Open() {
		t.Fatalf("unexpected record: %+v", records[0])
	}
}

func TestJSONFile_DocumentFormat(t *testing.T) {
	store, path := newFileStore(t)
	ctx := context.Background()

	rec := models.MealRecord{
		UserID:    "alice",
		Type:      models.Lunch,
		StartedAt: time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC),
	}
	if err := store.Append(ctx, &rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc := string(data)
	for _, want := range []string{`"meals"`, `"type": "lunch"`, `"start_datetime"`, `"end_datetime": null`} {
		if !strings.Contains(doc, want) {
			t.Fatalf("document missing %s:\n%s", want, doc)
		}
	}
}

func TestJSONFile_LegacyDocument(t *testing.T) {
	// Records written before user tracking: no user_id, naive timestamps.
	path := filepath.Join(t.TempDir(), "meals.json")
	legacy := `{
  "meals": [
    {
      "type": "dinner",
      "start_datetime": "2026-08-20T19:05:00",
      "end_datetime": "2026-08-20T19:50:00.123456"
    }
  ]
}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store, err := storage.NewJSONFileStore(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records, err := store.Query(context.Background(), models.AnonymousUser, storage.Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Open() {
		t.Fatal("expected a closed record")
	}
}

func TestJSONFile_QueryFilters(t *testing.T) {
	store, _ := newFileStore(t)
	ctx := context.Background()

	end := time.Date(2026, 8, 23, 8, 40, 0, 0, time.UTC)
	records := []models.MealRecord{
		{UserID: "alice", Type: models.Breakfast, StartedAt: time.Date(2026, 8, 23, 8, 0, 0, 0, time.UTC), EndedAt: &end},
		{UserID: "alice", Type: models.Lunch, StartedAt: time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)},
		{UserID: "bob", Type: models.Lunch, StartedAt: time.Date(2026, 8, 23, 12, 30, 0, 0, time.UTC)},
	}
	for i := range records {
		if err := store.Append(ctx, &records[i]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got, err := store.Query(ctx, "alice", storage.Filter{Type: models.Lunch})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Type != models.Lunch {
		t.Fatalf("unexpected type-filtered result: %+v", got)
	}

	got, err = store.Query(ctx, "alice", storage.Filter{OpenOnly: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || !got[0].Open() {
		t.Fatalf("unexpected open-only result: %+v", got)
	}

	got, err = store.Query(ctx, "alice", storage.Filter{
		From: time.Date(2026, 8, 23, 9, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Type != models.Lunch {
		t.Fatalf("unexpected range-filtered result: %+v", got)
	}
}

func TestJSONFile_CloseOpenRespectsLowerBound(t *testing.T) {
	store, _ := newFileStore(t)
	ctx := context.Background()

	rec := models.MealRecord{
		UserID:    "alice",
		Type:      models.Dinner,
		StartedAt: time.Date(2026, 8, 22, 19, 0, 0, 0, time.UTC),
	}
	if err := store.Append(ctx, &rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	todayStart := time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC)
	closed, err := store.CloseOpen(ctx, "alice", models.Dinner, todayStart, todayStart.Add(20*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if closed {
		t.Fatal("yesterday's session should not match a today-only close")
	}

	closed, err = store.CloseOpen(ctx, "alice", models.Dinner, time.Time{}, rec.StartedAt.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !closed {
		t.Fatal("unbounded close should match the open session")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     storage.Config
		wantErr bool
	}{
		{"sqlite ok", storage.Config{Backend: storage.BackendSQLite, DBPath: "/tmp/x.db"}, false},
		{"sqlite missing path", storage.Config{Backend: storage.BackendSQLite}, true},
		{"postgres missing url", storage.Config{Backend: storage.BackendPostgres}, true},
		{"jsonfile ok", storage.Config{Backend: storage.BackendJSONFile, DataFile: "/tmp/m.json"}, false},
		{"jsonfile missing file", storage.Config{Backend: storage.BackendJSONFile}, true},
		{"empty backend", storage.Config{}, true},
		{"unknown backend", storage.Config{Backend: "redis"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
