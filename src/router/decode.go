package router

import (
	"encoding/json"
	"fmt"

	"github.com/codeloom/relay/src/types"
)

// chatEvent is the wire shape of a chat prompt.
type chatEvent struct {
	Type    string         `json:"type"`
	Content string         `json:"content"`
	Context map[string]any `json:"context"`
}

// collabEvent carries only the fields the router inspects; the rest of
// the payload is opaque and re-broadcast verbatim.
type collabEvent struct {
	Type      string `json:"type"`
	ProjectID string `json:"project_id"`
}

// DecodeEvent parses an inbound frame into a closed tagged event. The
// discriminator is inspected exactly once here; everything downstream
// switches on Event.Kind.
func DecodeEvent(data []byte) (types.Event, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return types.Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	switch probe.Type {
	case "chat":
		var ev chatEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return types.Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		if ev.Content == "" {
			return types.Event{}, fmt.Errorf("%w: chat event missing content", ErrInvalidEvent)
		}
		return types.Event{
			Kind:    types.EventChat,
			Content: ev.Content,
			Context: ev.Context,
			Raw:     data,
		}, nil

	case "collaboration":
		var ev collabEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return types.Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		if ev.ProjectID == "" {
			return types.Event{}, fmt.Errorf("%w: collaboration event missing project_id", ErrInvalidEvent)
		}
		return types.Event{
			Kind:   types.EventCollaboration,
			RoomID: ev.ProjectID,
			Raw:    data,
		}, nil

	case "":
		return types.Event{}, fmt.Errorf("%w: missing type discriminator", ErrInvalidEvent)
	default:
		return types.Event{}, fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, probe.Type)
	}
}
