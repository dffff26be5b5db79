package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"sharedcanvas/internal/canvas"
)

const EnvPrefix = "CANVAS"

// flagKeys maps command-line flag names onto configuration keys.
var flagKeys = map[string]string{
	"port":      "server.port",
	"origin":    "server.allowedOrigin",
	"naming":    "canvas.naming",
	"log-level": "log.level",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.allowedOrigin", "http://localhost:5173")
	v.SetDefault("server.environment", "production")
	v.SetDefault("server.shutdownTimeout", "10s")

	v.SetDefault("canvas.naming", string(canvas.NamingLive))

	v.SetDefault("limits.maxConnsPerIP", 10)
	v.SetDefault("limits.eventsPerSecond", 240)
	v.SetDefault("limits.eventBurst", 480)

	v.SetDefault("transport.sendBuffer", 256)
	v.SetDefault("transport.writeWait", "10s")
	v.SetDefault("transport.pongWait", "60s")
	v.SetDefault("transport.maxMessageSize", 4096)

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "canvas:events")

	v.SetDefault("mdns.enabled", false)
	v.SetDefault("mdns.instance", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration from defaults, an optional config file, a .env
// file, environment variables and command-line flags, in increasing order of
// precedence. An empty file name looks for canvas.yaml in the working
// directory and tolerates its absence.
func Load(logger *slog.Logger, file string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded", slog.Any("error", err))
	}

	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("canvas")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag %q: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		logger.Debug("Config file not found, relying on defaults and environment")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if _, err := canvas.ParseNaming(c.Canvas.Naming); err != nil {
		return fmt.Errorf("canvas.naming: %w", err)
	}
	if c.Limits.MaxConnsPerIP < 0 {
		return errors.New("limits.maxConnsPerIP must not be negative")
	}
	if c.Limits.EventsPerSecond <= 0 || c.Limits.EventBurst <= 0 {
		return errors.New("limits.eventsPerSecond and limits.eventBurst must be positive")
	}
	if c.Transport.SendBuffer <= 0 {
		return errors.New("transport.sendBuffer must be positive")
	}
	if c.Transport.WriteWait <= 0 || c.Transport.PongWait <= 0 {
		return errors.New("transport.writeWait and transport.pongWait must be positive")
	}
	if c.Transport.MaxMessageSize <= 0 {
		return errors.New("transport.maxMessageSize must be positive")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json", c.Log.Format)
	}
	return nil
}

// SlogLevel parses the configured log level, falling back to info.
func (c LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
