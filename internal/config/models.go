package config

import (
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Canvas    CanvasConfig
	Limits    LimitsConfig
	Transport TransportConfig
	Redis     RedisConfig
	MDNS      MDNSConfig `mapstructure:"mdns"`
	Log       LogConfig
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	AllowedOrigin   string        `mapstructure:"allowedOrigin"`
	Environment     string        `mapstructure:"environment"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

type CanvasConfig struct {
	Naming string `mapstructure:"naming"` // "live" or "sequence"
}

type LimitsConfig struct {
	MaxConnsPerIP   int     `mapstructure:"maxConnsPerIP"` // 0 disables the cap
	EventsPerSecond float64 `mapstructure:"eventsPerSecond"`
	EventBurst      int     `mapstructure:"eventBurst"`
}

type TransportConfig struct {
	SendBuffer     int           `mapstructure:"sendBuffer"`
	WriteWait      time.Duration `mapstructure:"writeWait"`
	PongWait       time.Duration `mapstructure:"pongWait"`
	MaxMessageSize int64         `mapstructure:"maxMessageSize"`
}

// RedisConfig configures the optional event feed. An empty Address turns
// the feed off.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type MDNSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Instance string `mapstructure:"instance"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
}

// Addr is the listen address for the HTTP server.
func (c ServerConfig) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}
