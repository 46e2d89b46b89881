// Package config loads settings from config/config.yaml, a .env file and the
// environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Auth     AuthConfig     `mapstructure:"auth"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Seed     SeedConfig     `mapstructure:"seed"`
	Client   ClientConfig   `mapstructure:"client"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	Profiling    bool          `mapstructure:"profiling"`
	ServiceName  string        `mapstructure:"service_name"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	ConnectAttempts int           `mapstructure:"connect_attempts"`
}

// DSN builds a libpq-compatible connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// LogConfig selects the log level and output format (text or json).
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig configures sessions.
type AuthConfig struct {
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	CookieName   string        `mapstructure:"cookie_name"`
	CookieSecure bool          `mapstructure:"cookie_secure"`
}

// RabbitMQConfig configures event notices. An empty URL disables publishing.
type RabbitMQConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

// SeedConfig drives the seeder.
type SeedConfig struct {
	File   string        `mapstructure:"file"`
	DryRun bool          `mapstructure:"dry_run"`
	Delay  time.Duration `mapstructure:"delay"`
}

// ClientConfig drives the terminal client.
type ClientConfig struct {
	APIURL      string        `mapstructure:"api_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	SessionFile string        `mapstructure:"session_file"`
}

var defaults = map[string]any{
	"server.port":          8080,
	"server.read_timeout":  15 * time.Second,
	"server.write_timeout": 15 * time.Second,
	"server.idle_timeout":  60 * time.Second,
	"server.profiling":     false,
	"server.service_name":  "spotlight-api",

	"database.host":               "localhost",
	"database.port":               "5432",
	"database.user":               "postgres",
	"database.password":           "postgres",
	"database.name":               "spotlight",
	"database.sslmode":            "disable",
	"database.max_conns":          20,
	"database.min_conns":          2,
	"database.max_conn_lifetime":  30 * time.Minute,
	"database.max_conn_idle_time": 5 * time.Minute,
	"database.connect_attempts":   5,

	"log.level":  "info",
	"log.format": "text",

	"auth.session_ttl":   7 * 24 * time.Hour,
	"auth.cookie_name":   "spotlight_session",
	"auth.cookie_secure": false,

	"rabbitmq.url":      "",
	"rabbitmq.exchange": "spotlight",

	"seed.file":    "",
	"seed.dry_run": false,
	"seed.delay":   100 * time.Millisecond,

	"client.api_url":      "http://localhost:8080",
	"client.timeout":      10 * time.Second,
	"client.session_file": "",
}

// Short environment names accepted alongside the derived ones
// (SERVER_PORT, DATABASE_HOST, ...).
var envAliases = map[string]string{
	"server.port":       "PORT",
	"database.host":     "DB_HOST",
	"database.port":     "DB_PORT",
	"database.user":     "DB_USER",
	"database.password": "DB_PASSWORD",
	"database.name":     "DB_NAME",
	"database.sslmode":  "DB_SSLMODE",
	"rabbitmq.url":      "RABBITMQ_URL",
	"client.api_url":    "SPOTLIGHT_API_URL",
}

// Load reads configuration. A missing config file is not an error.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
