// Package config loads relay configuration from a TOML file with
// environment overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the complete relay configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Socket   SocketConfig   `toml:"socket"`
	Auth     AuthConfig     `toml:"auth"`
	Upstream UpstreamConfig `toml:"upstream"`
	History  HistoryConfig  `toml:"history"`
	Presence PresenceConfig `toml:"presence"`
	Logging  LoggingConfig  `toml:"logging"`
}

// ServerConfig holds listen address configuration.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// SocketConfig holds WebSocket tuning.
type SocketConfig struct {
	MaxConnections  int `toml:"max_connections"`
	PingInterval    int `toml:"ping_interval_seconds"`
	WriteTimeout    int `toml:"write_timeout_seconds"`
	ReadBufferSize  int `toml:"read_buffer_size"`
	WriteBufferSize int `toml:"write_buffer_size"`
}

// AuthConfig holds token verification settings.
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
}

// UpstreamConfig holds completion provider settings.
type UpstreamConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// HistoryConfig holds the message archive location.
type HistoryConfig struct {
	Path string `toml:"path"`
}

// PresenceConfig holds the online-window for room presence.
type PresenceConfig struct {
	WindowSeconds int `toml:"window_seconds"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // json or console
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Socket: SocketConfig{
			MaxConnections:  1000,
			PingInterval:    30,
			WriteTimeout:    10,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		Upstream: UpstreamConfig{
			BaseURL:        "https://api.groq.com/openai/v1",
			Model:          "llama-3.3-70b-versatile",
			TimeoutSeconds: 30,
		},
		History:  HistoryConfig{Path: "relay.db"},
		Presence: PresenceConfig{WindowSeconds: 30},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads the TOML file at path on top of the defaults, then applies
// environment overrides. An empty path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	cfg.applyEnv()

	if cfg.Server.Addr == "" {
		return nil, fmt.Errorf("server.addr must not be empty")
	}
	return cfg, nil
}

// applyEnv lets secrets come from the environment rather than the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("RELAY_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		c.Upstream.APIKey = v
	}
	if v := os.Getenv("RELAY_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("RELAY_HISTORY_PATH"); v != "" {
		c.History.Path = v
	}
}

// UpstreamTimeout returns the completion timeout as a duration.
func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.TimeoutSeconds) * time.Second
}

// PresenceWindow returns the presence online-window as a duration.
func (c *Config) PresenceWindow() time.Duration {
	return time.Duration(c.Presence.WindowSeconds) * time.Second
}

// PingInterval returns the heartbeat interval as a duration.
func (c *Config) PingInterval() time.Duration {
	return time.Duration(c.Socket.PingInterval) * time.Second
}
