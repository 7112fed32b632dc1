// internal/server/tools.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"mcp-meal-tracker/internal/models"
	"mcp-meal-tracker/internal/tracker"
)

type StartMealParams struct {
	MealType string `json:"meal_type" description:"Type of meal - breakfast, lunch, or dinner"`
}

type EndMealParams struct {
	MealType string `json:"meal_type" description:"Type of meal - breakfast, lunch, or dinner"`
}

type GetMealsHistoryParams struct {
	Days int `json:"days,omitempty" description:"Number of days to look back (default: 7)"`
}

// extractParams safely extracts parameters from the request arguments
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	// Convert the Arguments map to JSON bytes, then unmarshal to target
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("failed to marshal arguments: %w", err)
	}

	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("failed to unmarshal parameters: %w", err)
	}

	return nil
}

// handleStartMeal appends a new open session and confirms the start time.
func (s *MealTrackerServer) handleStartMeal(ctx context.Context, userID string, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params StartMealParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	mealType, err := models.ParseMealType(params.MealType)
	if err != nil {
		return nil, err
	}

	text, err := s.tracker.Start(ctx, userID, mealType, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to start meal: %w", err)
	}
	return textResult(text), nil
}

// handleEndMeal closes the most recent open session of the given type.
func (s *MealTrackerServer) handleEndMeal(ctx context.Context, userID string, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params EndMealParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	mealType, err := models.ParseMealType(params.MealType)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	text, closed, err := s.tracker.End(ctx, userID, mealType, now)
	if err != nil {
		return nil, fmt.Errorf("failed to end meal: %w", err)
	}

	if closed && s.memoryClient.Enabled() {
		// Don't fail the whole operation, just log the warning
		if err := s.memoryClient.ExportMealSession(userID, mealType, now); err != nil {
			log.Printf("Warning: failed to export meal to knowledge graph: %v", err)
		}
	}

	return textResult(text), nil
}

// handleGetMealsToday renders today's sessions for the caller.
func (s *MealTrackerServer) handleGetMealsToday(ctx context.Context, userID string, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	text, err := s.tracker.MealsForToday(ctx, userID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve meals: %w", err)
	}
	return textResult(text), nil
}

// handleGetMealsHistory renders the last N dates that have sessions.
func (s *MealTrackerServer) handleGetMealsHistory(ctx context.Context, userID string, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params GetMealsHistoryParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	// Set defaults
	if params.Days <= 0 {
		params.Days = tracker.DefaultHistoryDays
	}

	text, err := s.tracker.History(ctx, userID, params.Days)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve history: %w", err)
	}
	return textResult(text), nil
}

// Register all tools - routing happens in the HTTP handler, this just
// verifies every advertised tool has a handler.
func (s *MealTrackerServer) registerTools() error {
	tools := map[string]func(context.Context, string, *protocol.CallToolRequest) (*protocol.CallToolResult, error){
		"start_meal":        s.handleStartMeal,
		"end_meal":          s.handleEndMeal,
		"get_meals_today":   s.handleGetMealsToday,
		"get_meals_history": s.handleGetMealsHistory,
	}

	for name := range tools {
		log.Printf("Registered tool: %s", name)
	}

	return nil
}
