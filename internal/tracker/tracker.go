// internal/tracker/tracker.go

// Package tracker matches meal start/end events and renders the textual
// reports. All state lives in the store; a Tracker carries nothing between
// calls.
package tracker

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"mcp-meal-tracker/internal/models"
	"mcp-meal-tracker/internal/storage"
)

// DefaultHistoryDays is used when a caller asks for a non-positive window.
const DefaultHistoryDays = 7

const (
	noMealsToday = "No meals logged today."
	noHistory    = "No meal history found."
)

type Tracker struct {
	store storage.Store
}

func New(store storage.Store) *Tracker {
	return &Tracker{store: store}
}

// Start logs the beginning of a meal session.
func (t *Tracker) Start(ctx context.Context, userID string, mealType models.MealType, now time.Time) (string, error) {
	record := &models.MealRecord{
		UserID:    userID,
		Type:      mealType,
		StartedAt: now,
	}
	if err := t.store.Append(ctx, record); err != nil {
		return "", err
	}
	return fmt.Sprintf("Started %s at %s", mealType, now.Format("15:04")), nil
}

// End closes the most recently started open session of the given type. The
// boolean reports whether a session was actually closed; when none was, the
// returned text is the "not found" outcome, not an error.
func (t *Tracker) End(ctx context.Context, userID string, mealType models.MealType, now time.Time) (string, bool, error) {
	closed, err := t.store.CloseOpen(ctx, userID, mealType, time.Time{}, now)
	if err != nil {
		return "", false, err
	}
	if !closed {
		return fmt.Sprintf("No active %s found. Did you forget to start it?", mealType), false, nil
	}
	return fmt.Sprintf("Finished %s at %s", mealType, now.Format("15:04")), true, nil
}

// MealsForToday renders the sessions whose start falls on now's calendar day.
func (t *Tracker) MealsForToday(ctx context.Context, userID string, now time.Time) (string, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	records, err := t.store.Query(ctx, userID, storage.Filter{
		From: dayStart,
		To:   dayStart.Add(24 * time.Hour),
	})
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return noMealsToday, nil
	}

	lines := []string{fmt.Sprintf("Meals for %s:", dayStart.Format("2006-01-02"))}
	for i := range records {
		lines = append(lines, renderRecord(&records[i]))
	}
	return strings.Join(lines, "\n"), nil
}

// History renders the most recent `days` calendar dates that have at least
// one record, newest date first, each date's sessions ascending by start.
func (t *Tracker) History(ctx context.Context, userID string, days int) (string, error) {
	if days <= 0 {
		days = DefaultHistoryDays
	}

	records, err := t.store.Query(ctx, userID, storage.Filter{})
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return noHistory, nil
	}

	// records arrive ascending by start, so per-date groups stay ordered.
	byDate := make(map[string][]models.MealRecord)
	for _, rec := range records {
		date := rec.StartedAt.Format("2006-01-02")
		byDate[date] = append(byDate[date], rec)
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	if len(dates) > days {
		dates = dates[:days]
	}

	lines := []string{fmt.Sprintf("Meal history (last %d days):", days)}
	for _, date := range dates {
		lines = append(lines, fmt.Sprintf("\n%s:", date))
		for i := range byDate[date] {
			lines = append(lines, renderRecord(&byDate[date][i]))
		}
	}
	return strings.Join(lines, "\n"), nil
}

func renderRecord(r *models.MealRecord) string {
	end := "ongoing"
	if r.EndedAt != nil {
		end = r.EndedAt.Format("15:04")
	}
	return fmt.Sprintf("  - %s: %s - %s", capitalize(string(r.Type)), r.StartedAt.Format("15:04"), end)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
