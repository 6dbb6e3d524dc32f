package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm/logger"
)

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Import    ImportConfig    `yaml:"import"`
	Notify    NotifyConfig    `yaml:"notify"`
	Search    SearchConfig    `yaml:"search"`
	Report    ReportConfig    `yaml:"report"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Logging   LoggingConfig   `yaml:"logging"`
	Timezone  string          `yaml:"timezone"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Type     string         `yaml:"type" validate:"oneof=mysql postgres memory"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
	Memory   MemoryConfig   `yaml:"memory"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" validate:"gte=0,lte=65535"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" validate:"gte=0,lte=65535"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// MemoryConfig contains settings of the in-process store
type MemoryConfig struct {
	// SnapshotPath persists the dataset as JSON; empty keeps it in memory only.
	SnapshotPath string `yaml:"snapshot_path"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port             int      `yaml:"port" validate:"gt=0,lte=65535"`
	AllowOrigins     []string `yaml:"allow_origins"`
	MaxUploadMB      int      `yaml:"max_upload_mb" validate:"gt=0"`
	ShutdownTimeoutS int      `yaml:"shutdown_timeout_seconds" validate:"gte=0"`
}

// AuthConfig contains PIN gate settings
type AuthConfig struct {
	PinHash           string `yaml:"pin_hash"`
	JWTSecret         string `yaml:"jwt_secret"`
	SessionTTLHours   int    `yaml:"session_ttl_hours" validate:"gt=0"`
	LoginLimitEnabled bool   `yaml:"login_limit_enabled"`
	LoginPerMinute    int    `yaml:"login_per_minute" validate:"gte=0"`
	LoginPerHour      int    `yaml:"login_per_hour" validate:"gte=0"`
}

// ImportConfig contains CSV import settings
type ImportConfig struct {
	UnresolvedSample int `yaml:"unresolved_sample" validate:"gt=0"`
	HistoryLimit     int `yaml:"history_limit" validate:"gt=0"`

	// MaxResetCount refuses a reset that would delete more rows; 0 disables.
	MaxResetCount int `yaml:"max_reset_count" validate:"gte=0"`
}

// NotifyConfig contains outbound webhook settings
type NotifyConfig struct {
	Enabled          bool   `yaml:"enabled"`
	WebhookURL       string `yaml:"webhook_url" validate:"omitempty,url"`
	TimeoutSeconds   int    `yaml:"timeout_seconds" validate:"gte=0"`
	FailureThreshold int    `yaml:"failure_threshold" validate:"gte=0"`
	ResetMinutes     int    `yaml:"reset_minutes" validate:"gte=0"`
}

// SearchConfig contains search engine settings
type SearchConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
}

// MeilisearchConfig contains Meilisearch connection settings
type MeilisearchConfig struct {
	Host   string `yaml:"host"`
	APIKey string `yaml:"api_key"`
	Index  string `yaml:"index"`
}

// ReportConfig contains the daily report job settings
type ReportConfig struct {
	DailyRunEnabled bool   `yaml:"daily_run_enabled"`
	DailyRunTime    string `yaml:"daily_run_time" validate:"datetime=15:04"`
}

// DashboardConfig contains the chart axis settings
type DashboardConfig struct {
	StartYear int `yaml:"start_year" validate:"gte=2000,lte=2100"`
	Years     int `yaml:"years" validate:"gt=0,lte=10"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=silent error warn info"`
	// LogSQL turns on GORM statement logging.
	LogSQL bool `yaml:"log_sql"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Type: "memory",
			Memory: MemoryConfig{
				SnapshotPath: "data/store.json",
			},
		},
		Server: ServerConfig{
			Port:             8080,
			AllowOrigins:     []string{"http://localhost:5173"},
			MaxUploadMB:      20,
			ShutdownTimeoutS: 10,
		},
		Auth: AuthConfig{
			SessionTTLHours:   12,
			LoginLimitEnabled: true,
			LoginPerMinute:    5,
			LoginPerHour:      30,
		},
		Import: ImportConfig{
			UnresolvedSample: 5,
			HistoryLimit:     50,
		},
		Notify: NotifyConfig{
			TimeoutSeconds:   10,
			FailureThreshold: 3,
			ResetMinutes:     10,
		},
		Search: SearchConfig{
			Meilisearch: MeilisearchConfig{
				Host:  "http://localhost:7700",
				Index: "reservations",
			},
		},
		Report: ReportConfig{
			DailyRunEnabled: false,
			DailyRunTime:    "08:00",
		},
		Dashboard: DashboardConfig{
			StartYear: 2024,
			Years:     3,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Timezone: "Asia/Tokyo",
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(filepath string) (*Config, error) {
	// Start with default config
	config := DefaultConfig()

	// If file doesn't exist, return default config
	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

var validate = validator.New()

// Validate checks the struct tags of every section.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid config: timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured time zone, falling back to local time.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// GormLogLevel maps the logging section to a GORM log level.
func (c *LoggingConfig) GormLogLevel() logger.LogLevel {
	if !c.LogSQL {
		if strings.EqualFold(c.Level, "silent") {
			return logger.Silent
		}
		return logger.Warn
	}
	switch strings.ToLower(c.Level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	default:
		return logger.Info
	}
}

// SessionTTL returns the session lifetime as a duration
func (c *AuthConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// Timeout returns the webhook timeout as a duration
func (c *NotifyConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ResetTimeout is how long the webhook circuit stays open.
func (c *NotifyConfig) ResetTimeout() time.Duration {
	return time.Duration(c.ResetMinutes) * time.Minute
}

// ShutdownTimeout returns the graceful shutdown timeout as a duration
func (c *ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutS) * time.Second
}

// MaxUploadBytes returns the multipart size limit
func (c *ServerConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}
