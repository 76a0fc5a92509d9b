package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/codeloom/relay/src/types"
	"github.com/rs/zerolog"
)

// ErrInvalidEvent marks an inbound event rejected before any registry
// mutation: unknown kind, missing discriminator, or missing required field.
var ErrInvalidEvent = errors.New("invalid event")

// ErrUpstreamUnavailable marks a failed call to the AI responder. It is
// reported to the requesting connection only, never broadcast.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// Deliverer is the registry surface the router needs: address one actor,
// one connection, or one room.
type Deliverer interface {
	Send(actorID string, payload []byte) error
	SendToConn(actorID, connID string, payload []byte) error
	Broadcast(roomID string, payload []byte, excludeActor string)
}

// Responder produces an AI completion for a chat prompt.
type Responder interface {
	Complete(ctx context.Context, prompt string, extra map[string]any) (string, error)
}

// Archiver records delivered events durably. Optional; a nil archiver
// disables history.
type Archiver interface {
	Archive(ctx context.Context, roomID, actorID, kind string, payload []byte) error
}

// Router classifies inbound events and dispatches them through the
// registry: chat prompts go to the responder and back to the sender,
// collaboration events fan out verbatim to the rest of the room.
type Router struct {
	deliverer Deliverer
	responder Responder
	archiver  Archiver
	logger    zerolog.Logger
}

// New creates a router. archiver may be nil.
func New(d Deliverer, r Responder, a Archiver, logger zerolog.Logger) *Router {
	return &Router{
		deliverer: d,
		responder: r,
		archiver:  a,
		logger:    logger.With().Str("component", "router").Logger(),
	}
}

// HandleInbound decodes and dispatches one inbound frame from the given
// actor and connection. Validation errors and upstream failures are
// reported back to the originating connection as error frames; the
// returned error is for the caller's logs and for tests.
func (r *Router) HandleInbound(ctx context.Context, actorID, connID string, data []byte) error {
	ev, err := DecodeEvent(data)
	if err != nil {
		r.reject(actorID, connID, "invalid_event", err)
		return err
	}

	switch ev.Kind {
	case types.EventChat:
		return r.directReply(ctx, actorID, connID, ev)
	case types.EventCollaboration:
		return r.roomBroadcast(ctx, actorID, ev)
	default:
		err := fmt.Errorf("%w: unhandled kind %d", ErrInvalidEvent, ev.Kind)
		r.reject(actorID, connID, "invalid_event", err)
		return err
	}
}

// directReply asks the responder for a completion and sends the reply to
// every handle of the originating actor. No partial send happens on
// upstream failure.
func (r *Router) directReply(ctx context.Context, actorID, connID string, ev types.Event) error {
	reply, err := r.responder.Complete(ctx, ev.Content, ev.Context)
	if err != nil {
		r.logger.Warn().Err(err).Str("actor_id", actorID).Msg("responder failed")
		r.reject(actorID, connID, "upstream_unavailable", ErrUpstreamUnavailable)
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	frame, err := json.Marshal(types.AIResponse{
		Type:      "ai_response",
		Content:   reply,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	r.record(ctx, "", actorID, ev.Kind.String(), ev.Raw)
	r.record(ctx, "", actorID, "ai_response", frame)

	if err := r.deliverer.Send(actorID, frame); err != nil {
		// Actor went offline between request and reply. Non-fatal.
		r.logger.Debug().Str("actor_id", actorID).Msg("reply to offline actor dropped")
	}
	return nil
}

// roomBroadcast fans the original bytes out to every other participant of
// the room. Fire-and-forget for the sender.
func (r *Router) roomBroadcast(ctx context.Context, actorID string, ev types.Event) error {
	r.record(ctx, ev.RoomID, actorID, ev.Kind.String(), ev.Raw)
	r.deliverer.Broadcast(ev.RoomID, ev.Raw, actorID)
	return nil
}

func (r *Router) record(ctx context.Context, roomID, actorID, kind string, payload []byte) {
	if r.archiver == nil {
		return
	}
	if err := r.archiver.Archive(ctx, roomID, actorID, kind, payload); err != nil {
		r.logger.Error().Err(err).Str("kind", kind).Msg("archive failed")
	}
}

// reject sends an error frame to the connection that produced the event.
func (r *Router) reject(actorID, connID, code string, cause error) {
	frame, err := json.Marshal(types.ErrorFrame{
		Type:    "error",
		Code:    code,
		Message: cause.Error(),
	})
	if err != nil {
		return
	}
	if err := r.deliverer.SendToConn(actorID, connID, frame); err != nil {
		r.logger.Debug().Str("actor_id", actorID).Str("conn_id", connID).Msg("error frame undeliverable")
	}
}
