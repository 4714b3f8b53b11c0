package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is populated from the environment.
type Config struct {
	Addr        string   `envconfig:"HTTP_ADDR" default:"0.0.0.0:8000"`
	DatabaseDSN string   `envconfig:"DATABASE_DSN" default:"file:chatcore.db"`
	JWTSecret   string   `envconfig:"JWT_SECRET"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`

	ReadLimit        int64         `envconfig:"WS_READ_LIMIT" default:"32768"`
	PingPeriod       time.Duration `envconfig:"WS_PING_PERIOD" default:"54s"`
	PongWait         time.Duration `envconfig:"WS_PONG_WAIT" default:"60s"`
	HandshakeTimeout time.Duration `envconfig:"WS_HANDSHAKE_TIMEOUT" default:"10s"`

	EventBuffer     int `envconfig:"EVENT_BUFFER" default:"256"`
	MaxMessageChars int `envconfig:"MAX_MESSAGE_CHARS" default:"5000"`

	// PermissiveWSAuth lets credential-less connections in as TestUserID.
	// For local development and tests only.
	PermissiveWSAuth bool  `envconfig:"WS_AUTH_PERMISSIVE" default:"false"`
	TestUserID       int64 `envconfig:"WS_TEST_USER_ID" default:"1"`

	Debug bool `envconfig:"DEBUG" default:"false"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if cfg.JWTSecret == "" && !cfg.PermissiveWSAuth {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return &cfg, nil
}
