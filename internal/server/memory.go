// internal/server/memory.go
package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"mcp-meal-tracker/internal/models"
)

// MemoryClient exports finished meal sessions to the memory MCP server via
// the mcp-compose proxy. Export is best-effort and never fails a tool call.
type MemoryClient struct {
	httpClient *http.Client
	proxyURL   string
	apiKey     string
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		proxyURL: os.Getenv("MCP_PROXY_URL"),
		apiKey:   os.Getenv("MCP_PROXY_API_KEY"),
	}
}

// Enabled reports whether a proxy URL was configured.
func (c *MemoryClient) Enabled() bool {
	return c.proxyURL != ""
}

// ExportMealSession records a finished meal as a knowledge graph entity.
func (c *MemoryClient) ExportMealSession(userID string, mealType models.MealType, endedAt time.Time) error {
	entityData := map[string]interface{}{
		"entities": []map[string]interface{}{
			{
				"name":       fmt.Sprintf("Meal_%s_%s", userID, endedAt.Format("2006-01-02_15-04")),
				"entityType": "Meal Session",
				"observations": []string{
					fmt.Sprintf("User: %s", userID),
					fmt.Sprintf("Type: %s", mealType),
					fmt.Sprintf("Ended: %s", endedAt.Format(time.RFC3339)),
				},
			},
		},
	}

	return c.callMemoryService("create_entities", entityData)
}

func (c *MemoryClient) callMemoryService(toolName string, args interface{}) error {
	url := fmt.Sprintf("%s/memory", c.proxyURL)

	requestData := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      toolName,
			"arguments": args,
		},
	}

	jsonData, err := json.Marshal(requestData)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("request failed with status %d and couldn't read body: %v", resp.StatusCode, err)
		}
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	return nil
}
