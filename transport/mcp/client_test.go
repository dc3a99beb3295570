package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/clickrace/server/game/clickrace"
	"github.com/clickrace/server/game/presence"
)

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	client := NewClient(baseURL)

	if client == nil {
		t.Fatal("Expected client to be created")
	}

	if client.baseURL != baseURL {
		t.Errorf("Expected baseURL %s, got %s", baseURL, client.baseURL)
	}

	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}

	if client.mcpServer == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	expectedResponse := map[string]interface{}{
		"status": "healthy",
		"rooms":  float64(3),
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(expectedResponse)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	var response map[string]interface{}
	err := client.apiCall("GET", "/api/health", nil, &response)
	if err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}

	if response["status"] != expectedResponse["status"] {
		t.Errorf("Expected status %v, got %v", expectedResponse["status"], response["status"])
	}
}

func TestClient_apiCall_Error(t *testing.T) {
	client := NewClient("http://invalid-url-that-does-not-exist:9999")

	err := client.apiCall("GET", "/api/rooms", nil, nil)
	if err == nil {
		t.Error("Expected error for invalid URL")
	}
}

func TestClient_apiCall_ErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "roomNotFound"})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	err := client.apiCall("GET", "/api/rooms/missing", nil, nil)
	if err == nil {
		t.Fatal("Expected error for HTTP 404 response")
	}

	// The API's error code passes through to the tool result.
	if err.Error() != "roomNotFound" {
		t.Errorf("Expected 'roomNotFound', got: %v", err)
	}
}

func TestClient_listRooms(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" || r.URL.Path != "/api/rooms" {
			t.Errorf("Expected GET /api/rooms, got %s %s", r.Method, r.URL.Path)
		}

		resp := map[string]interface{}{
			"count": 1,
			"rooms": []*clickrace.RoomSnapshot{
				{
					ID:          "room-123",
					Name:        "friday race",
					HostName:    "Alice",
					PlayerCount: 3,
					MaxPlayers:  8,
					Status:      clickrace.RoomWaiting,
					HasPassword: true,
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "list_rooms",
			Arguments: map[string]interface{}{},
		},
	}

	result, err := client.handleListRooms(ctx, request)
	if err != nil {
		t.Fatalf("handleListRooms failed: %v", err)
	}

	resultStr, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}

	for _, want := range []string{"room-123", "friday race", "[locked]", "3/8"} {
		if !strings.Contains(resultStr.Text, want) {
			t.Errorf("Expected '%s' in result, got: %s", want, resultStr.Text)
		}
	}
}

func TestClient_getRoom(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/rooms/room-123" {
			t.Errorf("Expected /api/rooms/room-123, got %s", r.URL.Path)
		}

		resp := clickrace.RoomSnapshot{
			ID:          "room-123",
			Name:        "friday race",
			HostName:    "Alice",
			PlayerCount: 2,
			MaxPlayers:  8,
			Status:      clickrace.RoomPlaying,
			Players: []clickrace.Player{
				{UserID: "u1", UserName: "Alice", Role: clickrace.RolePlayer, IsReady: true, Wins: 2, CurrentClicks: 14},
				{UserID: "u2", UserName: "Bob", Role: clickrace.RoleSpectator},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "get_room",
			Arguments: map[string]interface{}{"room_id": "room-123"},
		},
	}

	result, err := client.handleGetRoom(ctx, request)
	if err != nil {
		t.Fatalf("handleGetRoom failed: %v", err)
	}

	resultStr, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}

	for _, want := range []string{"friday race", "Alice", "Bob", "spectator", "wins=2", "clicks=14"} {
		if !strings.Contains(resultStr.Text, want) {
			t.Errorf("Expected '%s' in result, got: %s", want, resultStr.Text)
		}
	}
}

func TestClient_presenceStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(presence.Stats{Total: 5, Connected: 4, Reconnecting: 1})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "presence_stats",
			Arguments: map[string]interface{}{},
		},
	}

	result, err := client.handlePresenceStats(ctx, request)
	if err != nil {
		t.Fatalf("handlePresenceStats failed: %v", err)
	}

	resultStr, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}

	if !strings.Contains(resultStr.Text, "5 total (4 connected, 1 reconnecting)") {
		t.Errorf("Unexpected stats text: %s", resultStr.Text)
	}
}

func TestClient_handleGameInstructions(t *testing.T) {
	client := NewClient("http://localhost:8080")
	ctx := context.Background()

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "game_instructions",
			Arguments: map[string]interface{}{},
		},
	}

	result, err := client.handleGameInstructions(ctx, request)
	if err != nil {
		t.Fatalf("handleGameInstructions failed: %v", err)
	}

	resultStr, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}

	expectedContent := []string{
		"OBJECTIVE:",
		"ROOM LIFECYCLE:",
		"DEPARTURES:",
		"PROTOCOL:",
	}

	for _, content := range expectedContent {
		if !strings.Contains(resultStr.Text, content) {
			t.Errorf("Expected '%s' in instructions, got: %s", content, resultStr.Text)
		}
	}
}
