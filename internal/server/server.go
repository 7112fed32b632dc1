// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/ThinkInAIXYZ/go-mcp/server"

	"mcp-meal-tracker/internal/models"
	"mcp-meal-tracker/internal/storage"
	"mcp-meal-tracker/internal/tracker"
)

type Config struct {
	Transport string
	Host      string
	Port      int
	Storage   storage.Config
}

type MealTrackerServer struct {
	server       *server.Server
	httpServer   *http.Server
	store        storage.Store
	tracker      *tracker.Tracker
	memoryClient *MemoryClient
	config       *Config
}

func NewMealTrackerServer(cfg *Config) (*MealTrackerServer, error) {
	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	trackerServer := &MealTrackerServer{
		store:        store,
		tracker:      tracker.New(store),
		memoryClient: NewMemoryClient(),
		config:       cfg,
	}

	// Create HTTP server with MCP handler
	mux := http.NewServeMux()

	// Create MCP server (without transport, we'll handle HTTP manually)
	mcpServer, err := server.NewServer(
		nil, // We'll handle transport manually
		server.WithServerInfo(protocol.Implementation{
			Name:    "meal-tracker",
			Version: "1.0.0",
		}),
	)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create MCP server: %w", err)
	}

	trackerServer.server = mcpServer

	if err := trackerServer.registerTools(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	mux.HandleFunc("/", trackerServer.handleHTTP)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	trackerServer.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	return trackerServer, nil
}

// callerIdentity extracts the caller identifier supplied by the transport,
// defaulting to the anonymous sentinel when none is present.
func callerIdentity(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-User-ID")); id != "" {
		return id
	}
	return models.AnonymousUser
}

func (s *MealTrackerServer) handleHTTP(w http.ResponseWriter, r *http.Request) {
	// Simple HTTP-based MCP protocol handler
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID")

	if r.Method == http.MethodOptions {
		return
	}

	// Decode the MCP request
	var request protocol.CallToolRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	userID := callerIdentity(r)

	// Route to the appropriate handler based on tool name
	var result *protocol.CallToolResult
	var err error

	switch request.Name {
	case "start_meal":
		result, err = s.handleStartMeal(r.Context(), userID, &request)
	case "end_meal":
		result, err = s.handleEndMeal(r.Context(), userID, &request)
	case "get_meals_today":
		result, err = s.handleGetMealsToday(r.Context(), userID, &request)
	case "get_meals_history":
		result, err = s.handleGetMealsHistory(r.Context(), userID, &request)
	default:
		http.Error(w, fmt.Sprintf("Unknown tool: %s", request.Name), http.StatusNotFound)
		return
	}

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Send response
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func (s *MealTrackerServer) Start(ctx context.Context) error {
	log.Printf("Starting meal tracker server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *MealTrackerServer) Stop() error {
	if s.store != nil {
		s.store.Close()
	}
	if s.httpServer != nil {
		return s.httpServer.Shutdown(context.Background())
	}
	return nil
}

func textResult(text string) *protocol.CallToolResult {
	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: text,
			},
		},
	}
}
