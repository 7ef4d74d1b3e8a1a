package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config top-level struct
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Database      DatabaseConfig     `yaml:"database"`
	Auth          AuthConfig         `yaml:"auth"`
	Market        MarketConfig       `yaml:"market"`
	Notifications NotificationConfig `yaml:"notifications"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type MarketConfig struct {
	TickInterval time.Duration `yaml:"-"`
}

// UnmarshalYAML accepts tick_interval as a duration string ("1s", "500ms").
func (m *MarketConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		TickInterval string `yaml:"tick_interval"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.TickInterval == "" {
		return nil
	}
	parsed, err := time.ParseDuration(raw.TickInterval)
	if err != nil {
		return err
	}
	m.TickInterval = parsed
	return nil
}

type NotificationConfig struct {
	Capacity int `yaml:"capacity"`
}

// Default returns the configuration used when no file is present: a local
// sqlite database and a one second market tick.
func Default() *Config {
	return &Config{
		Server:        ServerConfig{Port: 8080},
		Database:      DatabaseConfig{DSN: "brokerx.db"},
		Auth:          AuthConfig{JWTSecret: "brokerx-dev-secret"},
		Market:        MarketConfig{TickInterval: time.Second},
		Notifications: NotificationConfig{Capacity: 50},
	}
}

// Load reads the yaml file at path, falling back to defaults when the file
// does not exist. Environment variables override file values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if port := os.Getenv("BROKERX_PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = parsed
		}
	}
	if dsn := os.Getenv("BROKERX_DB_DSN"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if secret := os.Getenv("BROKERX_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if interval := os.Getenv("BROKERX_TICK_INTERVAL"); interval != "" {
		if parsed, err := time.ParseDuration(interval); err == nil {
			cfg.Market.TickInterval = parsed
		}
	}

	if cfg.Market.TickInterval <= 0 {
		cfg.Market.TickInterval = time.Second
	}
	if cfg.Notifications.Capacity <= 0 {
		cfg.Notifications.Capacity = 50
	}

	return cfg, nil
}
