// relay is the real-time delivery gateway: it registers authenticated
// WebSocket connections, routes chat prompts to the AI responder, and
// fans collaboration events out to project rooms, across instances when
// Redis is available.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/codeloom/relay/config"
	"github.com/codeloom/relay/src/auth"
	"github.com/codeloom/relay/src/bridge"
	"github.com/codeloom/relay/src/history"
	"github.com/codeloom/relay/src/hub"
	"github.com/codeloom/relay/src/presence"
	"github.com/codeloom/relay/src/router"
	"github.com/codeloom/relay/src/server"
	"github.com/codeloom/relay/src/upstream"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to relay.toml (optional)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging)
	logger.Info().Msg("starting relay")

	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required (or set RELAY_JWT_SECRET)")
	}
	verifier := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))

	arch, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer arch.Close()
	logger.Info().Str("path", cfg.History.Path).Msg("history archive open")

	h := hub.New(logger)
	h.SetMetrics(hub.NewCounters())
	go h.Run()
	defer h.Stop()

	// Redis is optional: without it the relay runs standalone, with
	// in-process room membership standing in for presence.
	pres := initRedis(ctx, h, cfg, logger)

	responder := upstream.NewClient(upstream.Config{
		BaseURL: cfg.Upstream.BaseURL,
		APIKey:  cfg.Upstream.APIKey,
		Model:   cfg.Upstream.Model,
		Timeout: cfg.UpstreamTimeout(),
	}, logger)

	rt := router.New(h, responder, arch, logger)
	h.SetHandler(func(actorID, connID string, data []byte) {
		if err := rt.HandleInbound(ctx, actorID, connID, data); err != nil {
			logger.Debug().Err(err).Str("actor_id", actorID).Msg("inbound event rejected")
		}
	})

	srv := server.New(cfg, h, verifier, pres, arch, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// initRedis starts the cross-instance bridge and presence store. Both are
// non-fatal: an unreachable Redis leaves the relay standalone.
func initRedis(ctx context.Context, h *hub.Hub, cfg *config.Config, logger zerolog.Logger) *presence.Store {
	rcfg := bridge.RedisConfigFromEnv()

	rb := bridge.NewRedisBridge(rcfg.NewClient(), rcfg.Prefix, h, logger)
	if err := rb.Start(); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, running standalone")
		return nil
	}
	h.SetBridge(rb)
	logger.Info().Str("redis_addr", rcfg.Addr).Msg("redis bridge connected")

	rdb := rcfg.NewClient()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("presence store unavailable")
		return nil
	}
	return presence.New(rdb, cfg.PresenceWindow())
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Str("service", "relay").Logger()
}
