package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"postapi/database"
)

// Auth modes for the secure listing endpoint.
const (
	AuthStatic = "static"
	AuthBcrypt = "bcrypt"
	AuthJWT    = "jwt"
)

// DefaultSecureToken is the shared secret used when none is configured.
const DefaultSecureToken = "secret-token"

type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Auth   AuthConfig   `yaml:"auth"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	Mode            string        `yaml:"mode"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	AllowOrigins    []string      `yaml:"allowOrigins"`
}

type StoreConfig struct {
	URL      string        `yaml:"url"`
	Database string        `yaml:"database"`
	Timeout  time.Duration `yaml:"timeout"`
}

type AuthConfig struct {
	Mode      string `yaml:"mode"`
	Token     string `yaml:"token"`
	TokenHash string `yaml:"tokenHash"`
	JWTSecret string `yaml:"jwtSecret"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Mode:            "debug",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowOrigins:    []string{"*"},
		},
		Store: StoreConfig{
			Database: "fastapi3",
			Timeout:  10 * time.Second,
		},
		Auth: AuthConfig{
			Mode:  AuthStatic,
			Token: DefaultSecureToken,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing YAML config file %s: %w", path, err)
		}
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overrideWithEnv() {
	c.Server.Port = envString("PORT", c.Server.Port)
	c.Server.Mode = envString("GIN_MODE", c.Server.Mode)
	c.Server.ReadTimeout = envDuration("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = envDuration("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = envDuration("SERVER_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = envDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	if origins := os.Getenv("CORS_ALLOW_ORIGINS"); origins != "" {
		c.Server.AllowOrigins = splitList(origins)
	}

	c.Store.URL = envString("MONGO_URL", c.Store.URL)
	c.Store.Database = envString("MONGO_DB", c.Store.Database)
	c.Store.Timeout = envDuration("STORE_TIMEOUT", c.Store.Timeout)

	c.Auth.Mode = envString("AUTH_MODE", c.Auth.Mode)
	c.Auth.Token = envString("SECURE_TOKEN", c.Auth.Token)
	c.Auth.TokenHash = envString("SECURE_TOKEN_HASH", c.Auth.TokenHash)
	c.Auth.JWTSecret = envString("JWT_SECRET", c.Auth.JWTSecret)

	c.Log.Level = envString("LOG_LEVEL", c.Log.Level)
	c.Log.Format = envString("LOG_FORMAT", c.Log.Format)
}

func (c *Config) Validate() error {
	if c.Store.URL == "" {
		return fmt.Errorf("MONGO_URL must be set")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	switch c.Auth.Mode {
	case AuthStatic:
		if c.Auth.Token == "" {
			return fmt.Errorf("auth mode %q requires SECURE_TOKEN", c.Auth.Mode)
		}
	case AuthBcrypt:
		if c.Auth.TokenHash == "" {
			return fmt.Errorf("auth mode %q requires SECURE_TOKEN_HASH", c.Auth.Mode)
		}
	case AuthJWT:
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth mode %q requires JWT_SECRET", c.Auth.Mode)
		}
	default:
		return fmt.Errorf("unknown auth mode %q", c.Auth.Mode)
	}
	return nil
}

// DatabaseConfig converts the store section for the database adapter.
func (c StoreConfig) DatabaseConfig() database.Config {
	return database.Config{
		URL:      c.URL,
		Database: c.Database,
		Timeout:  c.Timeout,
	}
}

func (c ServerConfig) Addr() string {
	return ":" + c.Port
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// bare integers are seconds
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
