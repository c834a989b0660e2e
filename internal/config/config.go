package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	StaticDir         string        `mapstructure:"static_dir" yaml:"static_dir"`

	// MaxMessageBytes caps a single websocket frame.
	MaxMessageBytes int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	// MaxBodyLen caps the text of a chat message, in characters.
	MaxBodyLen         int           `mapstructure:"max_body_len" yaml:"max_body_len"`
	ClientBuffer       int           `mapstructure:"client_buffer" yaml:"client_buffer"`
	StoreTimeout       time.Duration `mapstructure:"store_timeout" yaml:"store_timeout"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	AllowedOrigins     []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	Database Database `mapstructure:"database" yaml:"database"`
}

// Database selects the message log backend.
type Database struct {
	// Driver is one of sqlite, postgres or memory.
	Driver string `mapstructure:"driver" yaml:"driver"`
	// DSN is a file path for sqlite and a connection string for postgres.
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":8080",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		StaticDir:          "public",
		MaxMessageBytes:    1 << 20,
		MaxBodyLen:         2000,
		ClientBuffer:       64,
		StoreTimeout:       5 * time.Second,
		RateLimitPerMinute: 120,
		Database: Database{
			Driver: "sqlite",
			DSN:    "chat.db",
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.StaticDir != "" {
		c.StaticDir = other.StaticDir
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.MaxBodyLen != 0 {
		c.MaxBodyLen = other.MaxBodyLen
	}
	if other.ClientBuffer != 0 {
		c.ClientBuffer = other.ClientBuffer
	}
	if other.StoreTimeout != 0 {
		c.StoreTimeout = other.StoreTimeout
	}
	if other.RateLimitPerMinute != 0 {
		c.RateLimitPerMinute = other.RateLimitPerMinute
	}
	if len(other.AllowedOrigins) > 0 {
		c.AllowedOrigins = other.AllowedOrigins
	}
	if other.Database.Driver != "" {
		c.Database.Driver = other.Database.Driver
	}
	if other.Database.DSN != "" {
		c.Database.DSN = other.Database.DSN
	}
}
