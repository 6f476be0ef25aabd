package configuration

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverFixture  = "fixture"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// AppConfig represents the complete application configuration.
type AppConfig struct {
	Logger   LoggerConfig   `mapstructure:"logger"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Report   ReportConfig   `mapstructure:"report"`
	Export   ExportConfig   `mapstructure:"export"`
	RunLog   RunLogConfig   `mapstructure:"runlog"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

// LoggerConfig defines logging settings.
type LoggerConfig struct {
	// Level is one of debug, info, warn, warning, error (case-insensitive).
	Level string `mapstructure:"level" validate:"required"`
}

// ServerConfig contains HTTP server parameters.
type ServerConfig struct {
	// Address to listen on, e.g. ":8080".
	Address      string        `mapstructure:"address" validate:"required"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
}

// DatabaseConfig selects the report source.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres mysql fixture"`
	// URL is the pgx connection string or the MySQL DSN.
	URL string `mapstructure:"url"`
	// Fixture is the YAML file served by the fixture driver.
	Fixture string `mapstructure:"fixture"`
	// EnsureSchema creates missing tables on startup.
	EnsureSchema bool `mapstructure:"ensure_schema"`
}

// ReportConfig tunes the aggregations.
type ReportConfig struct {
	// Threshold splits high from low scores (default 3.0).
	Threshold float64 `mapstructure:"threshold" validate:"gte=0"`
	// Limit caps ranked lists (default 10).
	Limit int `mapstructure:"limit" validate:"gte=0"`
	// Rules is an optional YAML file of insight rules.
	Rules string `mapstructure:"rules"`
}

// ExportConfig defines the consolidated export file.
type ExportConfig struct {
	// File path (optional). Exports are discarded when empty.
	File string `mapstructure:"file"`
	// Maximal file size in megabytes (default 100)
	Size int `mapstructure:"size" validate:"gte=0"`
	// Number of rotated files (default 20)
	Amount int `mapstructure:"amount" validate:"gte=0"`
}

// RunLogConfig bounds the recent report runs kept per tenant.
type RunLogConfig struct {
	Length int           `mapstructure:"length" validate:"gte=0"`
	TTL    time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

// AuthConfig holds the token signing secret.
type AuthConfig struct {
	Secret   string        `mapstructure:"secret" validate:"required,min=16"`
	TokenTTL time.Duration `mapstructure:"token_ttl" validate:"gte=0"`
}

// Validate checks the struct tags, then each section, and fills in defaults.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if err := c.Logger.Validate(); err != nil {
		return err
	}

	if err := c.Database.Validate(); err != nil {
		return err
	}

	c.Server.Validate()
	c.Report.Validate()
	c.Export.Validate()
	c.RunLog.Validate()
	c.Auth.Validate()
	return nil
}

// Validate checks that the log level is supported.
func (l *LoggerConfig) Validate() error {
	valid := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !valid[strings.ToLower(l.Level)] {
		return fmt.Errorf("logger.level: unsupported level '%s'", l.Level)
	}

	return nil
}

// Validate checks that the selected driver has its connection settings.
func (d *DatabaseConfig) Validate() error {
	switch d.Driver {
	case DriverPostgres, DriverMySQL:
		if d.URL == "" {
			return fmt.Errorf("database.url: must be specified for %s", d.Driver)
		}
	case DriverFixture:
		if d.Fixture == "" {
			return errors.New("database.fixture: must be specified")
		}
	}

	return nil
}

// Validate sets the default read and write timeouts.
func (s *ServerConfig) Validate() {
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 5 * time.Second
	}

	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
}

// Validate sets the default threshold and list limit.
func (r *ReportConfig) Validate() {
	if r.Threshold == 0 {
		r.Threshold = 3.0
	}

	if r.Limit == 0 {
		r.Limit = 10
	}
}

// Validate export parameters
func (e *ExportConfig) Validate() {
	if e.Amount == 0 {
		e.Amount = 20
	}

	if e.Size == 0 {
		e.Size = 100
	}
}

// Validate sets the default run log length and TTL.
func (r *RunLogConfig) Validate() {
	if r.Length == 0 {
		r.Length = 50
	}

	if r.TTL == 0 {
		r.TTL = 24 * time.Hour
	}
}

// Validate sets the default token lifetime.
func (a *AuthConfig) Validate() {
	if a.TokenTTL == 0 {
		a.TokenTTL = 12 * time.Hour
	}
}

// keys are bound to environment variables so they can be set without a file
// entry, e.g. AUTH_SECRET for auth.secret.
var keys = []string{
	"logger.level",
	"server.address", "server.read_timeout", "server.write_timeout",
	"database.driver", "database.url", "database.fixture", "database.ensure_schema",
	"report.threshold", "report.limit", "report.rules",
	"export.file", "export.size", "export.amount",
	"runlog.length", "runlog.ttl",
	"auth.secret", "auth.token_ttl",
}

// LoadConfig loads the YAML configuration file. A .env file next to it is loaded
// first when present; environment variables override file values.
//
// Returns an error if:
// - the file is not found or inaccessible
// - the configuration has invalid format
// - one of the sections fails validation
func LoadConfig(configPath string) (*AppConfig, error) {
	dotEnvPath := filepath.Join(filepath.Dir(configPath), ".env")
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, fmt.Errorf("error reading %s: %w", dotEnvPath, err)
		}
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", key, err)
		}
	}
	v.SetDefault("logger.level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}
