// Package admintools provides MCP tool handlers for operating a running
// relay fleet from the outside. Every tool is backed by Redis — the
// bridge channel or the presence store — so it works out-of-process.
//
// Each tool follows the same pattern:
//   - a struct with dependencies injected via constructor
//   - Definition() returns the mcp.Tool schema
//   - Handle() processes the request and returns a result
package admintools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/codeloom/relay/src/bridge"
	"github.com/codeloom/relay/src/presence"
)

// PublishTool injects a broadcast into a room across all relay instances.
type PublishTool struct {
	bridge bridge.Bridge
}

// NewPublishTool creates a PublishTool over the given bridge.
func NewPublishTool(b bridge.Bridge) *PublishTool {
	return &PublishTool{bridge: b}
}

// Definition returns the MCP tool definition for relay_publish.
func (t *PublishTool) Definition() mcp.Tool {
	return mcp.NewTool("relay_publish",
		mcp.WithDescription(
			"Publish a payload to every participant of a room on all running relay instances.",
		),
		mcp.WithString("room_id",
			mcp.Required(),
			mcp.Description("Target room (project) id"),
		),
		mcp.WithObject("payload",
			mcp.Required(),
			mcp.Description("JSON payload delivered verbatim to room participants"),
		),
	)
}

// Handle processes the relay_publish tool call.
func (t *PublishTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roomID, _ := req.GetArguments()["room_id"].(string)
	if roomID == "" {
		return mcp.NewToolResultError("room_id is required"), nil
	}
	payload, ok := req.GetArguments()["payload"].(map[string]any)
	if !ok {
		return mcp.NewToolResultError("payload must be a JSON object"), nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode payload: %v", err)), nil
	}
	if err := t.bridge.Publish(roomID, "", data); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("publish failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("published %d bytes to room %s", len(data), roomID)), nil
}

// PresenceTool lists the actors currently online in a room.
type PresenceTool struct {
	store *presence.Store
}

// NewPresenceTool creates a PresenceTool over the given store.
func NewPresenceTool(store *presence.Store) *PresenceTool {
	return &PresenceTool{store: store}
}

// Definition returns the MCP tool definition for relay_presence.
func (t *PresenceTool) Definition() mcp.Tool {
	return mcp.NewTool("relay_presence",
		mcp.WithDescription("List actors currently online in a room."),
		mcp.WithString("room_id",
			mcp.Required(),
			mcp.Description("Room (project) id to inspect"),
		),
	)
}

// Handle processes the relay_presence tool call.
func (t *PresenceTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roomID, _ := req.GetArguments()["room_id"].(string)
	if roomID == "" {
		return mcp.NewToolResultError("room_id is required"), nil
	}

	online, err := t.store.Online(ctx, roomID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("presence lookup failed: %v", err)), nil
	}
	if len(online) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("room %s has no online actors", roomID)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("room %s online (%d): %s",
		roomID, len(online), strings.Join(online, ", "))), nil
}

// RoomsTool lists rooms with live presence.
type RoomsTool struct {
	store *presence.Store
}

// NewRoomsTool creates a RoomsTool over the given store.
func NewRoomsTool(store *presence.Store) *RoomsTool {
	return &RoomsTool{store: store}
}

// Definition returns the MCP tool definition for relay_rooms.
func (t *RoomsTool) Definition() mcp.Tool {
	return mcp.NewTool("relay_rooms",
		mcp.WithDescription("List rooms that currently have online actors."),
	)
}

// Handle processes the relay_rooms tool call.
func (t *RoomsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rooms, err := t.store.Rooms(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("room scan failed: %v", err)), nil
	}
	if len(rooms) == 0 {
		return mcp.NewToolResultText("no active rooms"), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("active rooms (%d):\n", len(rooms)))
	for _, r := range rooms {
		sb.WriteString("- " + r + "\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}
