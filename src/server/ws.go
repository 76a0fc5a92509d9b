package server

import (
	"strings"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/codeloom/relay/src/hub"
)

// websocketHandler returns the raw fasthttp handler for /ws upgrades.
// The caller authenticates before a handle is admitted to the registry:
// the token's subject becomes the actor ID, and an optional project_id
// query parameter joins the connection's actor to that room.
func (s *Server) websocketHandler() fasthttp.RequestHandler {
	upgrader := websocket.FastHTTPUpgrader{
		ReadBufferSize:  s.cfg.Socket.ReadBufferSize,
		WriteBufferSize: s.cfg.Socket.WriteBufferSize,
	}
	writeTimeout := time.Duration(s.cfg.Socket.WriteTimeout) * time.Second

	return func(ctx *fasthttp.RequestCtx) {
		upgrade := string(ctx.Request.Header.Peek("Upgrade"))
		if !strings.EqualFold(upgrade, "websocket") {
			ctx.SetStatusCode(fasthttp.StatusUpgradeRequired)
			ctx.SetBodyString(`{"error":"upgrade_required","message":"WebSocket upgrade required"}`)
			return
		}

		actorID, err := s.authenticate(ctx)
		if err != nil {
			ctx.SetStatusCode(fasthttp.StatusUnauthorized)
			ctx.SetBodyString(`{"error":"unauthorized","message":"` + err.Error() + `"}`)
			return
		}

		connID := uuid.New().String()
		roomID := string(ctx.QueryArgs().Peek("project_id"))

		err = upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
			client := hub.NewClient(connID, actorID, newWSConn(conn, writeTimeout), s.hub)
			client.RoomID = roomID
			s.hub.Register(client)

			if roomID != "" {
				go s.heartbeat(client, roomID)
			}

			go client.WritePump()
			client.ReadPump()
		})
		if err != nil {
			s.logger.Error().Err(err).Msg("websocket upgrade failed")
		}
	}
}

// authenticate extracts and verifies the bearer token from the
// Authorization header or, for browser clients, the token query param.
func (s *Server) authenticate(ctx *fasthttp.RequestCtx) (string, error) {
	token := ""
	if h := string(ctx.Request.Header.Peek("Authorization")); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			token = parts[1]
		}
	}
	if token == "" {
		token = string(ctx.QueryArgs().Peek("token"))
	}
	return s.verifier.Verify(token)
}

// heartbeat keeps the actor's presence fresh for the life of the handle.
func (s *Server) heartbeat(client *hub.Client, roomID string) {
	if s.presence == nil {
		return
	}
	interval := s.cfg.PingInterval()
	if interval <= 0 {
		interval = 30 * time.Second
	}

	touch := func() {
		ctx, cancel := contextWithTimeout(interval)
		defer cancel()
		if err := s.presence.Touch(ctx, roomID, client.ActorID); err != nil {
			s.logger.Debug().Err(err).Str("room_id", roomID).Msg("presence touch failed")
		}
	}
	touch()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			touch()
		case <-client.Done():
			ctx, cancel := contextWithTimeout(interval)
			defer cancel()
			if err := s.presence.Leave(ctx, roomID, client.ActorID); err != nil {
				s.logger.Debug().Err(err).Str("room_id", roomID).Msg("presence leave failed")
			}
			return
		}
	}
}
