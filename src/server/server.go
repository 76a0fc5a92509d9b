// Package server exposes the relay over HTTP: a raw fasthttp WebSocket
// upgrade at /ws and a Fiber app for health, info, and room queries.
package server

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/codeloom/relay/config"
	"github.com/codeloom/relay/src/auth"
	"github.com/codeloom/relay/src/history"
	"github.com/codeloom/relay/src/hub"
	"github.com/codeloom/relay/src/presence"
)

// Server wires the hub and its collaborators to the network.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	verifier auth.TokenVerifier
	presence *presence.Store // nil when Redis is unavailable
	archive  *history.Store  // nil when history is disabled
	logger   zerolog.Logger

	app  *fiber.App
	http *fasthttp.Server
}

// New creates a server. presence and archive may be nil.
func New(cfg *config.Config, h *hub.Hub, verifier auth.TokenVerifier, pres *presence.Store, arch *history.Store, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		hub:      h,
		verifier: verifier,
		presence: pres,
		archive:  arch,
		logger:   logger.With().Str("component", "server").Logger(),
	}
	s.app = fiber.New()
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.app.Get("/healthz", s.handleHealth)
	s.app.Get("/ws/info", s.handleInfo)
	s.app.Get("/rooms/:id/presence", s.handlePresence)
	s.app.Get("/rooms/:id/history", s.handleHistory)
}

func (s *Server) handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleInfo(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"websocket": true,
		"endpoint":  "/ws",
		"actors":    s.hub.ActorCount(),
		"rooms":     len(s.hub.Rooms()),
	})
}

func (s *Server) handlePresence(c fiber.Ctx) error {
	roomID := c.Params("id")
	if s.presence == nil {
		// Fall back to in-process membership when Redis is absent.
		return c.JSON(fiber.Map{"room_id": roomID, "online": s.hub.RoomMembers(roomID)})
	}
	online, err := s.presence.Online(c.RequestCtx(), roomID)
	if err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "presence unavailable")
	}
	return c.JSON(fiber.Map{"room_id": roomID, "online": online})
}

func (s *Server) handleHistory(c fiber.Ctx) error {
	if s.archive == nil {
		return fiber.NewError(fiber.StatusNotFound, "history disabled")
	}
	roomID := c.Params("id")
	limit, _ := strconv.Atoi(c.Query("limit", "100"))

	entries, err := s.archive.RoomHistory(c.RequestCtx(), roomID, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("room_id", roomID).Msg("history query failed")
		return fiber.NewError(fiber.StatusInternalServerError, "history query failed")
	}
	return c.JSON(fiber.Map{"room_id": roomID, "entries": entries})
}

// Handler combines the WebSocket upgrade and the Fiber app into one
// fasthttp handler. Fiber v3 does not expose *fasthttp.RequestCtx to
// route handlers, so the upgrade is dispatched before Fiber sees the
// request.
func (s *Server) Handler() fasthttp.RequestHandler {
	appHandler := s.app.Handler()
	wsHandler := s.websocketHandler()

	return func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) == "/ws" {
			wsHandler(ctx)
			return
		}
		appHandler(ctx)
	}
}

// Listen serves until Shutdown is called.
func (s *Server) Listen() error {
	s.http = &fasthttp.Server{
		Handler:     s.Handler(),
		Name:        "relay",
		Concurrency: s.cfg.Socket.MaxConnections,
	}
	s.logger.Info().Str("addr", s.cfg.Server.Addr).Msg("listening")
	return s.http.ListenAndServe(s.cfg.Server.Addr)
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.ShutdownWithContext(ctx)
}
