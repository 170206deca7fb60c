// Package config loads the kiosk configuration an import run operates under.
//
// The kiosk directory is expected to contain config/kiosk_config.yml (or,
// as a fallback, config/sync_config.yml) naming the project and the database
// credentials. Individual settings can be overridden through environment
// variables, which lets a .env file supply the database password without
// editing the kiosk config. Everything is validated on startup to fail fast
// on misconfiguration.
package config

import (
	"fmt"
	"strings"
)

// ProjectID values this tool accepts. The importer writes markers and
// timezone codes specific to the RLIIM kiosk schema, so it refuses to run
// against any other kiosk.
const (
	ProjectID     = "rliim"
	TestProjectID = "rliim_test"
)

// DefaultDatabase is the database name expected unless --db overrides it.
const DefaultDatabase = "rliim"

// Config holds the settings of one import run.
type Config struct {
	Kiosk   KioskConfig
	Logging LoggingConfig
}

// KioskConfig mirrors the kiosk/sync config file of the target installation.
type KioskConfig struct {
	// ProjectID identifies the kiosk installation (must be rliim/rliim_test)
	ProjectID string `yaml:"project_id" env:"KIOSK_PROJECT_ID"`

	// DatabaseName is the PostgreSQL database to import into
	DatabaseName string `yaml:"database_name" env:"KIOSK_DATABASE"`

	// DatabaseUser is the role used for the import connection
	DatabaseUser string `yaml:"database_usr_name" env:"KIOSK_DATABASE_USER"`

	// DatabasePassword is the role's password; prefer supplying it via env
	DatabasePassword string `yaml:"database_usr_pwd" env:"KIOSK_DATABASE_PASSWORD"`

	// DatabaseHost is the server host (default: localhost)
	DatabaseHost string `yaml:"database_host" env:"KIOSK_DATABASE_HOST" default:"localhost"`

	// DatabasePort is the server port (default: 5432)
	DatabasePort int `yaml:"database_port" env:"KIOSK_DATABASE_PORT" default:"5432"`
}

// LoggingConfig holds slog diagnostics settings. The operator run log in
// internal/report is configured separately through CLI flags.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// ConnString returns the pgx connection string for the configured database.
func (c *KioskConfig) ConnString() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s",
		c.DatabaseHost, c.DatabasePort, c.DatabaseName, c.DatabaseUser, c.DatabasePassword)
}

// IsRliimKiosk reports whether the configured project is one this tool
// may import into.
func (c *KioskConfig) IsRliimKiosk() bool {
	id := strings.ToLower(c.ProjectID)
	return id == ProjectID || id == TestProjectID
}

// Validate checks that the configuration is complete and consistent.
func (c *Config) Validate() error {
	var errs []string

	if !c.Kiosk.IsRliimKiosk() {
		errs = append(errs, fmt.Sprintf("project_id (%q) must be %q or %q: this is not a RLIIM kiosk",
			c.Kiosk.ProjectID, ProjectID, TestProjectID))
	}
	if c.Kiosk.DatabaseName == "" {
		errs = append(errs, "database_name is required")
	}
	if c.Kiosk.DatabaseUser == "" {
		errs = append(errs, "database_usr_name is required")
	}
	if c.Kiosk.DatabasePort <= 0 || c.Kiosk.DatabasePort > 65535 {
		errs = append(errs, fmt.Sprintf("database_port (%d) must be 1-65535", c.Kiosk.DatabasePort))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// String returns a safe representation of the config for logging.
// The database password is masked.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Kiosk: {ProjectID: %q, Database: %q, User: %q, Password: [MASKED], Host: %q, Port: %d}, Logging: {Level: %q, Format: %q}}",
		c.Kiosk.ProjectID, c.Kiosk.DatabaseName, c.Kiosk.DatabaseUser,
		c.Kiosk.DatabaseHost, c.Kiosk.DatabasePort,
		c.Logging.Level, c.Logging.Format)
}
