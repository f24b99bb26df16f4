package main

import (
	"chat-relay/errors"
	"fmt"
	"time"
)

type Config struct {
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=4040"`
	HealthPort           int           `env:"HEALTH_PORT,default=4041"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	UploadsDir           string        `env:"UPLOADS_DIR,default=uploads"`
	JWTSecret            string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration    time.Duration `env:"AUTH_TOKEN_DURATION,default=0s"`
	ClientURL            string        `env:"CLIENT_URL,required=true"`
	SecureCookie         bool          `env:"COOKIE_SECURE,default=false"`
	PingInterval         time.Duration `env:"PING_INTERVAL,default=5s"`
	PongTimeout          time.Duration `env:"PONG_TIMEOUT,default=1s"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	MaxFrameBytes        int64         `env:"MAX_FRAME_BYTES,default=16777216"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	DeliveryTimeout      time.Duration `env:"DELIVERY_TIMEOUT,default=100ms"`
	PersistTimeout       time.Duration `env:"PERSIST_TIMEOUT,default=5s"`
	RequireIdentity      bool          `env:"REQUIRE_IDENTITY,default=false"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES"`
	StatsInterval        time.Duration `env:"STATS_INTERVAL,default=1m"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
}

// Validate rejects durations and sizes the relay cannot run with.
func (c Config) Validate() error {
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"PING_INTERVAL", c.PingInterval},
		{"PONG_TIMEOUT", c.PongTimeout},
		{"WRITE_TIMEOUT", c.WriteTimeout},
		{"STATS_INTERVAL", c.StatsInterval},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %s", errors.ErrInvalidConfig, d.name, d.value)
		}
	}
	if c.MaxFrameBytes <= 0 {
		return fmt.Errorf("%w: MAX_FRAME_BYTES must be positive, got %d", errors.ErrInvalidConfig, c.MaxFrameBytes)
	}
	if c.ConnectionBufferSize <= 0 {
		return fmt.Errorf("%w: CONNECTION_BUFFER_SIZE must be positive, got %d", errors.ErrInvalidConfig, c.ConnectionBufferSize)
	}
	return nil
}
