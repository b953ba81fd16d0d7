package config

import (
	"fmt"
	"time"
)

// Config represents the full tool configuration
type Config struct {
	Migrations Migrations `json:"migrations" mapstructure:"migrations"`
	Database   Database   `json:"database" mapstructure:"database"`
	Log        Log        `json:"log" mapstructure:"log"`
}

// Migrations configures where units are read and written
type Migrations struct {
	// Out is the migration unit store.
	Out string `json:"out" mapstructure:"out"`
	// Schema is the desired-state snapshot document.
	Schema string `json:"schema" mapstructure:"schema"`
	// Dialect selects statement generation and apply behavior.
	Dialect string `json:"dialect" mapstructure:"dialect"`
	// Breakpoints joins statements with the breakpoint marker.
	Breakpoints bool `json:"breakpoints" mapstructure:"breakpoints"`
	// Bundle regenerates the journal and embeddable bundle on each write.
	Bundle bool `json:"bundle" mapstructure:"bundle"`
}

// Database represents connection settings for apply and status
type Database struct {
	Host            string        `json:"host" mapstructure:"host"`
	Port            int           `json:"port" mapstructure:"port"`
	User            string        `json:"user" mapstructure:"user"`
	Password        string        `json:"password" mapstructure:"password"`
	DBName          string        `json:"dbname" mapstructure:"dbname"`
	SSLMode         string        `json:"sslmode" mapstructure:"sslmode"`
	Path            string        `json:"path" mapstructure:"path"` // sqlite only
	MaxOpenConns    int           `json:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// Log represents logging configuration
type Log struct {
	Level  string `json:"level" mapstructure:"level"`
	Pretty bool   `json:"pretty" mapstructure:"pretty"`
	File   string `json:"file" mapstructure:"file"`
}

// NewDefault returns a Config instance with default values
func NewDefault() *Config {
	return &Config{
		Migrations: Migrations{
			Out:         "./migrations",
			Schema:      "./schema.json",
			Dialect:     "postgresql",
			Breakpoints: true,
			Bundle:      false,
		},
		Database: Database{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Password:        "",
			DBName:          "postgres",
			SSLMode:         "disable",
			Path:            "./schemadrift.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Log: Log{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Migrations.Out == "" {
		return fmt.Errorf("migrations output directory is required")
	}
	if c.Migrations.Schema == "" {
		return fmt.Errorf("schema snapshot path is required")
	}

	switch c.Migrations.Dialect {
	case "postgresql", "sqlite":
	default:
		return fmt.Errorf("unsupported dialect '%s' (expected postgresql or sqlite)", c.Migrations.Dialect)
	}

	if c.Migrations.Dialect == "postgresql" {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return fmt.Errorf("database port must be between 1 and 65535")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("database name is required")
		}
	}
	if c.Migrations.Dialect == "sqlite" && c.Database.Path == "" {
		return fmt.Errorf("database path is required for sqlite")
	}

	return nil
}
