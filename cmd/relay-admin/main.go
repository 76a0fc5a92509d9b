// relay-admin is an MCP server (stdio transport) exposing operational
// tools for a running relay fleet. Every tool is backed by Redis, so the
// admin process needs no connection to any individual relay instance.
//
// Usage:
//
//	relay-admin serve   # start the MCP server on stdio
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/codeloom/relay/src/admintools"
	"github.com/codeloom/relay/src/bridge"
	"github.com/codeloom/relay/src/presence"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 || os.Args[1] != "serve" {
		printUsage()
		os.Exit(1)
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Logs go to stderr so they don't interfere with MCP's stdio
	// transport on stdout.
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "relay-admin").Logger()

	rcfg := bridge.RedisConfigFromEnv()
	rb := bridge.NewRedisBridge(rcfg.NewClient(), rcfg.Prefix, nil, logger)
	pres := presence.New(rcfg.NewClient(), 0)

	s := server.NewMCPServer("relay-admin", version)

	publish := admintools.NewPublishTool(rb)
	s.AddTool(publish.Definition(), publish.Handle)

	presenceTool := admintools.NewPresenceTool(pres)
	s.AddTool(presenceTool.Definition(), presenceTool.Handle)

	rooms := admintools.NewRoomsTool(pres)
	s.AddTool(rooms.Definition(), rooms.Handle)

	logger.Info().Str("redis_addr", rcfg.Addr).Msg("serving MCP on stdio")
	return server.ServeStdio(s)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `relay-admin — MCP operational tools for the relay fleet

Usage:
  relay-admin serve    Start the MCP server (stdio transport)

Environment:
  REDIS_ADDR, REDIS_PASSWORD, REDIS_DB, REDIS_WS_PREFIX`)
}
