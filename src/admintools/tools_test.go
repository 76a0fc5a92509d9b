package admintools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBridge records published broadcasts.
type mockBridge struct {
	published []publishCall
	err       error
}

type publishCall struct {
	roomID  string
	exclude string
	payload []byte
}

func (m *mockBridge) Publish(roomID, excludeActor string, payload []byte) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, publishCall{roomID, excludeActor, payload})
	return nil
}

func (m *mockBridge) Start() error    { return nil }
func (m *mockBridge) Stop() error     { return nil }
func (m *mockBridge) Available() bool { return true }

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestPublishTool(t *testing.T) {
	b := &mockBridge{}
	tool := NewPublishTool(b)

	res, err := tool.Handle(context.Background(), callRequest(map[string]any{
		"room_id": "p1",
		"payload": map[string]any{"type": "announcement", "text": "deploy at noon"},
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	require.Len(t, b.published, 1)
	assert.Equal(t, "p1", b.published[0].roomID)
	assert.Empty(t, b.published[0].exclude)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(b.published[0].payload, &payload))
	assert.Equal(t, "announcement", payload["type"])
}

func TestPublishToolMissingRoom(t *testing.T) {
	tool := NewPublishTool(&mockBridge{})

	res, err := tool.Handle(context.Background(), callRequest(map[string]any{
		"payload": map[string]any{"x": 1},
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestPublishToolBadPayload(t *testing.T) {
	tool := NewPublishTool(&mockBridge{})

	res, err := tool.Handle(context.Background(), callRequest(map[string]any{
		"room_id": "p1",
		"payload": "not-an-object",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestToolDefinitions(t *testing.T) {
	assert.Equal(t, "relay_publish", NewPublishTool(&mockBridge{}).Definition().Name)
	assert.Equal(t, "relay_presence", NewPresenceTool(nil).Definition().Name)
	assert.Equal(t, "relay_rooms", NewRoomsTool(nil).Definition().Name)
}
