// Package main provides the PortSense server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Database      DatabaseConfig     `yaml:"database"`
	Tracking      TrackingConfig     `yaml:"tracking"`
	Monitor       MonitorConfig      `yaml:"monitor"`
	AI            AIConfig           `yaml:"ai"`
	Notifications NotificationConfig `yaml:"notifications"`
	Rules         RulesConfig        `yaml:"rules"`
	Verbose       bool               `yaml:"-"` // set via CLI flag
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	Address        string `yaml:"address"`         // API listen address (default: :8080)
	MetricsAddress string `yaml:"metrics_address"` // Prometheus listen address (default: :9090)
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // database file path (default: data/portsense.db)
}

// TrackingConfig contains tracking provider settings.
type TrackingConfig struct {
	BaseURL   string  `yaml:"base_url"`   // provider API root
	APIKey    string  `yaml:"api_key"`    // falls back to PORTSENSE_TRACKING_API_KEY
	Timeout   string  `yaml:"timeout"`    // per-request timeout (default: 15s)
	RateLimit float64 `yaml:"rate_limit"` // requests per second (default: 2.5)
	Burst     int     `yaml:"burst"`      // burst size (default: 5)
}

// MonitorConfig contains background job cadences.
type MonitorConfig struct {
	Interval      string `yaml:"interval"`       // cycle cadence (default: 5m)
	SweepInterval string `yaml:"sweep_interval"` // notification retry cadence (default: 1m)
	RetentionDays int    `yaml:"retention_days"` // history retention (default: 30)
}

// AIConfig contains message enrichment settings.
type AIConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"` // falls back to OPENAI_API_KEY
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// NotificationConfig contains delivery channel settings.
type NotificationConfig struct {
	Email        EmailChannelConfig `yaml:"email"`
	SMS          SMSChannelConfig   `yaml:"sms"`
	MaxPerMinute int                `yaml:"max_per_minute"` // anti-storm cap (default: 30)
}

// EmailChannelConfig contains SMTP settings.
type EmailChannelConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"` // falls back to PORTSENSE_SMTP_PASSWORD
	From     string `yaml:"from"`
	AppURL   string `yaml:"app_url"` // dashboard base URL for links
}

// SMSChannelConfig contains Twilio settings.
type SMSChannelConfig struct {
	Enabled    bool   `yaml:"enabled"`
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"` // falls back to PORTSENSE_TWILIO_TOKEN
	FromNumber string `yaml:"from_number"`
}

// RulesConfig points at the optional rule override file.
type RulesConfig struct {
	OverridesFile string `yaml:"overrides_file"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.MetricsAddress == "" {
		c.Server.MetricsAddress = ":9090"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/portsense.db"
	}
	if c.Tracking.Timeout == "" {
		c.Tracking.Timeout = "15s"
	}
	if c.Tracking.RateLimit == 0 {
		c.Tracking.RateLimit = 2.5
	}
	if c.Tracking.Burst == 0 {
		c.Tracking.Burst = 5
	}
	if c.Monitor.Interval == "" {
		c.Monitor.Interval = "5m"
	}
	if c.Monitor.SweepInterval == "" {
		c.Monitor.SweepInterval = "1m"
	}
	if c.Monitor.RetentionDays == 0 {
		c.Monitor.RetentionDays = 30
	}
	if c.Notifications.MaxPerMinute == 0 {
		c.Notifications.MaxPerMinute = 30
	}
	if c.Notifications.Email.Port == 0 {
		c.Notifications.Email.Port = 587
	}
	if c.AI.APIKey == "" {
		c.AI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Tracking.APIKey == "" {
		c.Tracking.APIKey = os.Getenv("PORTSENSE_TRACKING_API_KEY")
	}
	if c.Notifications.Email.Password == "" {
		c.Notifications.Email.Password = os.Getenv("PORTSENSE_SMTP_PASSWORD")
	}
	if c.Notifications.SMS.AuthToken == "" {
		c.Notifications.SMS.AuthToken = os.Getenv("PORTSENSE_TWILIO_TOKEN")
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Tracking.BaseURL == "" {
		return fmt.Errorf("tracking.base_url is required")
	}
	if _, err := time.ParseDuration(c.Tracking.Timeout); err != nil {
		return fmt.Errorf("tracking.timeout: %w", err)
	}
	if d, err := time.ParseDuration(c.Monitor.Interval); err != nil {
		return fmt.Errorf("monitor.interval: %w", err)
	} else if d < time.Minute {
		return fmt.Errorf("monitor.interval must be at least 1m")
	}
	if _, err := time.ParseDuration(c.Monitor.SweepInterval); err != nil {
		return fmt.Errorf("monitor.sweep_interval: %w", err)
	}
	if c.Monitor.RetentionDays < 1 {
		return fmt.Errorf("monitor.retention_days must be positive")
	}
	if c.AI.Enabled && c.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key is required when ai.enabled is true")
	}
	if c.Notifications.Email.Enabled {
		if c.Notifications.Email.Host == "" {
			return fmt.Errorf("notifications.email.host is required when email is enabled")
		}
		if c.Notifications.Email.From == "" {
			return fmt.Errorf("notifications.email.from is required when email is enabled")
		}
	}
	if c.Notifications.SMS.Enabled {
		if c.Notifications.SMS.AccountSID == "" {
			return fmt.Errorf("notifications.sms.account_sid is required when sms is enabled")
		}
		if c.Notifications.SMS.AuthToken == "" {
			return fmt.Errorf("notifications.sms.auth_token is required when sms is enabled")
		}
		if c.Notifications.SMS.FromNumber == "" {
			return fmt.Errorf("notifications.sms.from_number is required when sms is enabled")
		}
	}
	return nil
}

// mustDuration parses a duration already checked by Validate.
func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic(fmt.Sprintf("unvalidated duration %q: %v", s, err))
	}
	return d
}
