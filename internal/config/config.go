package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

// Mode selects which route set the server exposes.
type Mode string

const (
	// ModeChat serves the session-gated chat.
	ModeChat Mode = "chat"
	// ModeBoard serves the open message board and the beacon counter.
	ModeBoard Mode = "board"
)

// Config aggregates every setting of the relay.
type Config struct {
	Server  ServerConfig
	Log     LogConfig
	Session SessionConfig
	Chat    ChatConfig
	Board   BoardConfig
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Port            string        `env:"PORT,default=3000"`
	Mode            string        `env:"RELAY_MODE,default=chat"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`

	// Addr is derived from Port by Normalize.
	Addr string
}

// LogConfig describes the global logger.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL,default=info"`
	Format string `env:"LOG_FORMAT,default=console"`
}

// SessionConfig describes session lifetime.
type SessionConfig struct {
	TTL           time.Duration `env:"SESSION_TTL,default=1h"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL,default=60s"`
}

// ChatConfig bounds the chat message log.
type ChatConfig struct {
	Capacity  int `env:"MESSAGE_LOG_CAP,default=500"`
	MaxLength int `env:"MESSAGE_MAX_LENGTH,default=200"`
}

// BoardConfig bounds the open board. Zero capacity keeps every message.
type BoardConfig struct {
	Capacity int `env:"BOARD_MAX_MESSAGES,default=0"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RelayMode returns the configured mode.
func (c *Config) RelayMode() Mode {
	return Mode(c.Server.Mode)
}

// Normalize derives computed fields and validates the configuration. It is
// safe to call again after overriding fields.
func (c *Config) Normalize() error {
	addr, err := resolveAddr(c.Server.Port)
	if err != nil {
		return err
	}
	c.Server.Addr = addr

	c.Server.Mode = strings.ToLower(strings.TrimSpace(c.Server.Mode))
	switch Mode(c.Server.Mode) {
	case ModeChat, ModeBoard:
	default:
		return fmt.Errorf("invalid RELAY_MODE value %q: want %q or %q", c.Server.Mode, ModeChat, ModeBoard)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid SHUTDOWN_TIMEOUT value %s: must be positive", c.Server.ShutdownTimeout)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("invalid SESSION_TTL value %s: must be positive", c.Session.TTL)
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("invalid SWEEP_INTERVAL value %s: must be positive", c.Session.SweepInterval)
	}
	if c.Chat.Capacity <= 0 {
		return fmt.Errorf("invalid MESSAGE_LOG_CAP value %d: must be positive", c.Chat.Capacity)
	}
	if c.Chat.MaxLength <= 0 {
		return fmt.Errorf("invalid MESSAGE_MAX_LENGTH value %d: must be positive", c.Chat.MaxLength)
	}
	if c.Board.Capacity < 0 {
		return fmt.Errorf("invalid BOARD_MAX_MESSAGES value %d: must not be negative", c.Board.Capacity)
	}
	return nil
}

// resolveAddr turns a PORT value into a listen address.
func resolveAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "3000"
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	if strings.Contains(port, ":") {
		// Accept ":3000" or "127.0.0.1:3000" as-is.
		return port, nil
	}

	return ":" + port, nil
}
