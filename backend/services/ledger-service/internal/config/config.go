package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "evledger/backend/libs/config"
)

const defaultPort = "8084"

// HTTPConfig configures the JSON API listener.
type HTTPConfig struct {
	Port string `yaml:"port" env:"LEDGER_HTTP_PORT"`
}

// DatabaseConfig configures optional persistence. An empty DSN keeps the ledger in memory.
type DatabaseConfig struct {
	DSN          string        `yaml:"dsn" env:"LEDGER_POSTGRES_DSN"`
	MaxOpenConns int           `yaml:"maxOpenConns" env:"LEDGER_POSTGRES_MAX_OPEN_CONNS"`
	MaxIdleConns int           `yaml:"maxIdleConns" env:"LEDGER_POSTGRES_MAX_IDLE_CONNS"`
	ConnLifetime time.Duration `yaml:"connLifetime" env:"LEDGER_POSTGRES_CONN_LIFETIME"`
}

// RedisConfig configures the optional event stream. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"LEDGER_REDIS_ADDR"`
	Password string `yaml:"password" env:"LEDGER_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"LEDGER_REDIS_DB"`
	Stream   string `yaml:"stream" env:"LEDGER_REDIS_STREAM"`
	MaxLen   int64  `yaml:"maxLen" env:"LEDGER_REDIS_STREAM_MAXLEN"`
}

// JWTConfig configures caller tokens.
type JWTConfig struct {
	Secret    string        `yaml:"secret" env:"LEDGER_JWT_SECRET"`
	ExpiresIn time.Duration `yaml:"expiresIn" env:"LEDGER_JWT_EXPIRES_IN"`
}

// WebSocketConfig configures the live event feed.
type WebSocketConfig struct {
	PingInterval   time.Duration `yaml:"pingInterval" env:"LEDGER_WS_PING_INTERVAL"`
	WriteTimeout   time.Duration `yaml:"writeTimeout" env:"LEDGER_WS_WRITE_TIMEOUT"`
	BufferSize     int           `yaml:"bufferSize" env:"LEDGER_WS_BUFFER_SIZE"`
	AllowedOrigins []string      `yaml:"allowedOrigins" env:"LEDGER_WS_ALLOWED_ORIGINS"`
}

// Config defines ledger service configuration.
type Config struct {
	HTTP          HTTPConfig      `yaml:"http"`
	Database      DatabaseConfig  `yaml:"database"`
	Redis         RedisConfig     `yaml:"redis"`
	JWT           JWTConfig       `yaml:"jwt"`
	WebSocket     WebSocketConfig `yaml:"websocket"`
	NotifyTimeout time.Duration   `yaml:"notifyTimeout" env:"LEDGER_NOTIFY_TIMEOUT"`
}

// Default returns the configuration used before file and env overrides.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{Port: defaultPort},
		Database: DatabaseConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 5,
			ConnLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			Stream: "ledger:events",
			MaxLen: 100000,
		},
		JWT: JWTConfig{ExpiresIn: time.Hour},
		WebSocket: WebSocketConfig{
			PingInterval: 30 * time.Second,
			WriteTimeout: 10 * time.Second,
			BufferSize:   64,
		},
		NotifyTimeout: 5 * time.Second,
	}
}

// Load reads configuration via shared helper.
func Load() (*Config, error) {
	cfg := Default()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("jwt secret required")
	}
	if c.Redis.DB < 0 {
		return errors.New("redis db must not be negative")
	}
	if c.Redis.MaxLen < 0 {
		return errors.New("redis stream maxLen must not be negative")
	}
	if c.WebSocket.PingInterval <= 0 || c.WebSocket.WriteTimeout <= 0 {
		return errors.New("websocket timeouts must be positive")
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = defaultPort
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// PersistenceEnabled reports whether a database is configured.
func (c *Config) PersistenceEnabled() bool {
	return strings.TrimSpace(c.Database.DSN) != ""
}

// StreamEnabled reports whether a redis event stream is configured.
func (c *Config) StreamEnabled() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}
