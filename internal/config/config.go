package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ROUTINE_"

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	DB        DBConfig        `yaml:"db" toml:"db"`
	Log       LogConfig       `yaml:"log" toml:"log"`
	Calendar  CalendarConfig  `yaml:"calendar" toml:"calendar"`
	Transport TransportConfig `yaml:"transport" toml:"transport"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
}

type ServerConfig struct {
	Host string `yaml:"host" toml:"host"`
	Port int    `yaml:"port" toml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path" toml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
	// Path, when set, sends logs to a size-capped file.
	Path string `yaml:"path" toml:"path"`
}

// CalendarConfig fixes the zone in which "today" is evaluated for overdue
// checks and habit rollover.
type CalendarConfig struct {
	TimeZone string `yaml:"timezone" toml:"timezone"`
}

type TransportConfig struct {
	// Mode is "http" (REST and MCP) or "stdio" (MCP only).
	Mode string `yaml:"mode" toml:"mode"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
	// DefaultUserID is used when auth is off and no X-User-ID header is sent.
	DefaultUserID int64 `yaml:"default_user_id" toml:"default_user_id"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "routine.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Calendar: CalendarConfig{
			TimeZone: "UTC",
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		Auth: AuthConfig{
			DefaultUserID: 1,
		},
	}
}

// Load reads configuration from an optional YAML or TOML file and
// environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(EnvPrefix + "CONFIG_PATH"); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile merges a config file into cfg. The format follows the extension.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config file type %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv(EnvPrefix + "SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv(EnvPrefix + "SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid %sSERVER_PORT: %w", EnvPrefix, err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv(EnvPrefix + "DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv(EnvPrefix + "LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if logPath := os.Getenv(EnvPrefix + "LOG_PATH"); logPath != "" {
		cfg.Log.Path = logPath
	}
	if tz := os.Getenv(EnvPrefix + "TIMEZONE"); tz != "" {
		cfg.Calendar.TimeZone = tz
	}
	if mode := os.Getenv(EnvPrefix + "TRANSPORT_MODE"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if enabled := os.Getenv(EnvPrefix + "AUTH_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			return fmt.Errorf("invalid %sAUTH_ENABLED: %w", EnvPrefix, err)
		}
		cfg.Auth.Enabled = v
	}
	if userStr := os.Getenv(EnvPrefix + "DEFAULT_USER_ID"); userStr != "" {
		id, err := strconv.ParseInt(userStr, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sDEFAULT_USER_ID: %w", EnvPrefix, err)
		}
		cfg.Auth.DefaultUserID = id
	}
	return nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case "http", "stdio":
	default:
		return fmt.Errorf("invalid transport mode %q", c.Transport.Mode)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Auth.DefaultUserID < 1 {
		return fmt.Errorf("default user id must be positive")
	}
	return nil
}
