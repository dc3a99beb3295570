package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/clickrace/server/game/clickrace"
	"github.com/clickrace/server/game/config"
	"github.com/clickrace/server/game/presence"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Click Race Server",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Click Race Server - MCP Interface

This is a thin client that proxies all requests to the REST API server.

Click Race is a real-time multiplayer game: players gather in rooms, ready
up, and race to land the most clicks on a moving target within the round
timer. Gameplay happens over WebSocket; these tools cover the read-only
observability surface.

AVAILABLE TOOLS:
- list_rooms: List all open rooms with status and player counts
- get_room: Get the full roster and state of one room
- presence_stats: Connection counters (connected / reconnecting)
- get_presence: Presence record of a single user
- list_configs: List available game configurations
- server_health: Liveness plus room and connection counts
- game_instructions: Get the game rules and protocol overview`),
	)

	// Register all tools
	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List all open rooms with status and player counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_room",
		Description: "Get the full roster and state of a specific room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room ID to retrieve",
				},
			},
			Required: []string{"room_id"},
		},
	}, c.handleGetRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "presence_stats",
		Description: "Get connection counters (connected and reconnecting users)",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handlePresenceStats)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_presence",
		Description: "Get the presence record of a single user",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "User ID to look up",
				},
			},
			Required: []string{"user_id"},
		},
	}, c.handleGetPresence)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available game configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "server_health",
		Description: "Check server liveness and get room and connection counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleServerHealth)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the game rules and protocol overview",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count int                       `json:"count"`
		Rooms []*clickrace.RoomSnapshot `json:"rooms"`
	}

	err := c.apiCall("GET", "/api/rooms", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Open Rooms (%d):\n\n", response.Count)
	for _, r := range response.Rooms {
		locked := ""
		if r.HasPassword {
			locked = " [locked]"
		}
		fmt.Fprintf(&b, "- %s %q%s host=%s players=%d/%d status=%s\n",
			r.ID, r.Name, locked, r.HostName, r.PlayerCount, r.MaxPlayers, r.Status)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	roomID, _ := args["room_id"].(string)

	var room clickrace.RoomSnapshot
	err := c.apiCall("GET", fmt.Sprintf("/api/rooms/%s", roomID), nil, &room)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRoom(&room)), nil
}

func (c *Client) handlePresenceStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var stats presence.Stats
	err := c.apiCall("GET", "/api/presence", nil, &stats)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Presence: %d total (%d connected, %d reconnecting)",
		stats.Total, stats.Connected, stats.Reconnecting)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetPresence(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	userID, _ := args["user_id"].(string)

	var snap presence.Snapshot
	err := c.apiCall("GET", fmt.Sprintf("/api/presence/%s", userID), nil, &snap)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("User: %s (%s)\nStatus: %s\nAs of: %s",
		snap.UserName, snap.UserID, snap.Status,
		time.UnixMilli(snap.Timestamp).Format("2006-01-02 15:04:05"))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []config.Info
	err := c.apiCall("GET", "/api/configs", nil, &configs)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, info := range configs {
		fmt.Fprintf(&b, "- %s", info.ConfigID)
		if info.Description != "" {
			fmt.Fprintf(&b, ": %s", info.Description)
		}
		b.WriteString("\n")
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleServerHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var health struct {
		Status      string `json:"status"`
		Rooms       int    `json:"rooms"`
		Connections int    `json:"connections"`
	}

	err := c.apiCall("GET", "/api/health", nil, &health)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Status: %s\nRooms: %d\nConnections: %d",
		health.Status, health.Rooms, health.Connections)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Click Race - Rules and Protocol

OBJECTIVE:
Land more clicks than everyone else before the round timer runs out. Each
player chases their own cursor through a shared sequence of button targets
on the canvas; every hit advances them to the next target.

ROOM LIFECYCLE:
1. A host creates a room (optionally password protected). Creating a room
   does not seat the host; the host joins like anyone else.
2. Players join the room and toggle ready. Joining a running round makes
   you a spectator until the next round.
3. The host starts the round once at least two members are present and
   every player is ready.
4. When the timer fires, the player with strictly the most clicks wins.
   Ties go to whoever joined the room first. Everyone resets, spectators
   are promoted, and the room returns to the waiting state.

DEPARTURES:
- If the host leaves, the longest-standing member inherits the room.
- If the last member leaves, the room is deleted.
- If a departure leaves a running round with a single member, the round
  ends immediately.
- A dropped socket removes the player from their rooms at once; their
  presence record lingers briefly in case they reconnect.

PROTOCOL:
Gameplay runs over WebSocket at /ws. Clients send {id, event, data}
requests and receive per-request acks plus server pushes (lobby:update,
room:update, player:ready, player:click, game:start, game:end,
button:update). These MCP tools only read state via the REST API; they
cannot join rooms or click.`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatRoom(room *clickrace.RoomSnapshot) string {
	var b strings.Builder

	locked := "no"
	if room.HasPassword {
		locked = "yes"
	}
	fmt.Fprintf(&b, "Room: %q (%s)\nHost: %s\nStatus: %s\nPassword: %s\nPlayers: %d/%d\n",
		room.Name, room.ID, room.HostName, room.Status, locked, room.PlayerCount, room.MaxPlayers)

	if len(room.Players) > 0 {
		b.WriteString("\nRoster (join order):\n")
		for i, p := range room.Players {
			ready := " "
			if p.IsReady {
				ready = "R"
			}
			fmt.Fprintf(&b, "%d. [%s] %s role=%s wins=%d clicks=%d\n",
				i+1, ready, p.UserName, p.Role, p.Wins, p.CurrentClicks)
		}
	}

	return b.String()
}
