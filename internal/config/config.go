package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// ErrMissingSessionSecret is returned when no signing key for session tokens is configured.
var ErrMissingSessionSecret = errors.New("SESSION_SECRET is required")

// Config holds all configuration for our application
type Config struct {
	Port            string
	Origin          string
	Environment     string
	SessionSecret   string
	SessionTTLHours int
	LogLevel        string
	Database        DatabaseConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// LoadConfig loads configuration from environment variables.
// A missing SESSION_SECRET is fatal; everything else has a default.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "3001")
	v.SetDefault("ORIGIN", "http://localhost:3000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("SESSION_TTL_HOURS", 168) // 7 days
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_USERNAME", "root")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "hospital")
	v.SetDefault("DATABASE_DSN", "")

	dbConfig := DatabaseConfig{
		Host:     v.GetString("DB_HOST"),
		Port:     v.GetString("DB_PORT"),
		Username: v.GetString("DB_USERNAME"),
		Password: v.GetString("DB_PASSWORD"),
		Name:     v.GetString("DB_NAME"),
		DSN:      v.GetString("DATABASE_DSN"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	if dbConfig.DSN == "" {
		dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)
	}

	ttl := v.GetInt("SESSION_TTL_HOURS")
	if ttl <= 0 {
		return nil, fmt.Errorf("invalid SESSION_TTL_HOURS: %q", v.GetString("SESSION_TTL_HOURS"))
	}

	cfg := &Config{
		Port:            v.GetString("PORT"),
		Origin:          v.GetString("ORIGIN"),
		Environment:     v.GetString("APP_ENV"),
		SessionSecret:   v.GetString("SESSION_SECRET"),
		SessionTTLHours: ttl,
		LogLevel:        v.GetString("LOG_LEVEL"),
		Database:        dbConfig,
	}
	if cfg.SessionSecret == "" {
		return nil, ErrMissingSessionSecret
	}

	return cfg, nil
}

// IsProduction reports whether cookies must be marked Secure.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
