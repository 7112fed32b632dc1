// internal/models/meal.go
package models

import (
	"fmt"
	"strings"
	"time"
)

// AnonymousUser is the identity recorded when the transport supplies none.
const AnonymousUser = "anonymous"

type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
)

// ParseMealType normalizes a caller-supplied meal type string.
func ParseMealType(s string) (MealType, error) {
	switch MealType(strings.ToLower(strings.TrimSpace(s))) {
	case Breakfast:
		return Breakfast, nil
	case Lunch:
		return Lunch, nil
	case Dinner:
		return Dinner, nil
	}
	return "", fmt.Errorf("unknown meal type %q (expected breakfast, lunch, or dinner)", s)
}

// MealRecord is one meal session. EndedAt is nil while the session is open.
type MealRecord struct {
	ID        int64      `json:"id,omitempty"`
	UserID    string     `json:"user_id"`
	Type      MealType   `json:"type"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Open reports whether the session has not been ended yet.
func (r *MealRecord) Open() bool {
	return r.EndedAt == nil
}
