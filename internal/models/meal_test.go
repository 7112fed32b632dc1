package models_test

import (
	"testing"
	"time"

	"mcp-meal-tracker/internal/models"
)

func TestParseMealType(t *testing.T) {
	tests := []struct {
		in      string
		want    models.MealType
		wantErr bool
	}{
		{"breakfast", models.Breakfast, false},
		{"Lunch", models.Lunch, false},
		{" DINNER ", models.Dinner, false},
		{"brunch", "", true},
		{"", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := models.ParseMealType(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestMealRecordOpen(t *testing.T) {
	rec := models.MealRecord{Type: models.Lunch, StartedAt: time.Now()}
	if !rec.Open() {
		t.Fatal("record without end time should be open")
	}

	ended := rec.StartedAt.Add(30 * time.Minute)
	rec.EndedAt = &ended
	if rec.Open() {
		t.Fatal("record with end time should not be open")
	}
}
