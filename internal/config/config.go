// Package config loads the service configuration with Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	MealDB     MealDBConfig     `mapstructure:"mealdb"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Session    SessionConfig    `mapstructure:"session"`
	Thumbnails ThumbnailsConfig `mapstructure:"thumbnails"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Debug     bool   `mapstructure:"debug"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MealDBConfig points at the upstream recipe API
type MealDBConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CacheConfig selects the meal list cache
type CacheConfig struct {
	Driver     string        `mapstructure:"driver"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DatabaseConfig contains the browse history database. An empty URL keeps history in memory.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// SessionConfig bounds the per-browser view state
type SessionConfig struct {
	TTL         time.Duration `mapstructure:"ttl"`
	MaxSessions int           `mapstructure:"max_sessions"`
}

// ThumbnailsConfig contains the image resizing proxy configuration
type ThumbnailsConfig struct {
	AllowedHosts []string `mapstructure:"allowed_hosts"`
	DefaultWidth int      `mapstructure:"default_width"`
}

// Cache drivers.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Load reads config.yaml from the working directory or ./config, then
// applies MEALBROWSER_* environment overrides. A missing file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	return load(v)
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("MEALBROWSER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:8081"})

	v.SetDefault("mealdb.base_url", "https://www.themealdb.com/api/json/v1/1")
	v.SetDefault("mealdb.timeout", 10*time.Second)

	v.SetDefault("cache.driver", CacheNone)
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("cache.max_entries", 1000)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("database.url", "")

	v.SetDefault("session.ttl", 30*time.Minute)
	v.SetDefault("session.max_sessions", 10000)

	v.SetDefault("thumbnails.allowed_hosts", []string{"www.themealdb.com"})
	v.SetDefault("thumbnails.default_width", 240)
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.MealDB.BaseURL == "" {
		return fmt.Errorf("mealdb base url is required")
	}
	if c.MealDB.Timeout <= 0 {
		return fmt.Errorf("mealdb timeout must be positive")
	}
	switch c.Cache.Driver {
	case CacheNone:
	case CacheMemory:
		if c.Cache.MaxEntries <= 0 {
			return fmt.Errorf("cache max_entries must be positive")
		}
	case CacheRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required when cache driver is redis")
		}
	default:
		return fmt.Errorf("unknown cache driver: %q", c.Cache.Driver)
	}
	if c.Cache.Driver != CacheNone && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	if c.Session.MaxSessions <= 0 {
		return fmt.Errorf("session max_sessions must be positive")
	}
	return nil
}
