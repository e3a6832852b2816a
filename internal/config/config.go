package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"durak/internal/durak"
	"durak/internal/room"
)

// Config is the full server configuration. Every field has a default, so an
// empty file (or no file at all) yields a runnable server.
type Config struct {
	Addr   string `yaml:"addr"`
	DBPath string `yaml:"db_path"`

	TurnTimeout     time.Duration `yaml:"turn_timeout"`
	DisconnectGrace time.Duration `yaml:"disconnect_grace"`
	RoomIdleTimeout time.Duration `yaml:"room_idle_timeout"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`

	Rules durak.Rules `yaml:"rules"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:            ":8080",
		DBPath:          "durak.db",
		TurnTimeout:     60 * time.Second,
		DisconnectGrace: 90 * time.Second,
		RoomIdleTimeout: time.Hour,
		CleanupInterval: time.Minute,
		Rules:           durak.DefaultRules(),
	}
}

// Load reads the YAML file at path on top of the defaults, then applies
// PORT and DB_PATH from the environment. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to defaults
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if p := os.Getenv("PORT"); p != "" {
		cfg.Addr = ":" + p
	}
	if p := os.Getenv("DB_PATH"); p != "" {
		cfg.DBPath = p
	}

	if err := cfg.Rules.Validate(); err != nil {
		return cfg, err
	}
	if cfg.TurnTimeout <= 0 || cfg.DisconnectGrace <= 0 {
		return cfg, fmt.Errorf("timeouts must be positive")
	}
	return cfg, nil
}

// RoomConfig extracts the timing policy for the room layer.
func (c Config) RoomConfig() room.Config {
	return room.Config{
		TurnTimeout:     c.TurnTimeout,
		DisconnectGrace: c.DisconnectGrace,
	}
}
