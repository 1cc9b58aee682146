// Package config provides YAML-based configuration loading for Ticketyard.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Ticketyard configuration, loaded from config.yaml.
type Config struct {
	Project  string         `yaml:"project"`
	DB       DBConfig       `yaml:"db"`
	Capacity CapacityConfig `yaml:"capacity"`
	Queue    QueueConfig    `yaml:"queue"`
	Sync     SyncConfig     `yaml:"sync"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	LLM      LLMConfig      `yaml:"llm"`
	Notify   NotifyConfig   `yaml:"notify"`
	API      APIConfig      `yaml:"api"`
}

// DBConfig holds connection settings for the MySQL server.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// CapacityConfig holds the sprint capacity formula parameters.
type CapacityConfig struct {
	DailyWorkingHours float64            `yaml:"daily_working_hours"`
	HoursPerPoint     float64            `yaml:"hours_per_point"`
	FocusFactor       float64            `yaml:"focus_factor"`
	Multipliers       map[string]float64 `yaml:"multipliers"`
}

// QueueConfig controls the assignment queue retry policy.
type QueueConfig struct {
	MaxAttempts int    `yaml:"max_attempts"`
	SweepCron   string `yaml:"sweep_cron"`
}

// SyncConfig controls the periodic capacity sync and data cleanup.
type SyncConfig struct {
	CapacityCron  string `yaml:"capacity_cron"`
	CleanupCron   string `yaml:"cleanup_cron"`
	RetentionDays int    `yaml:"retention_days"`
}

// TrackerConfig holds ticket tracker connection settings.
type TrackerConfig struct {
	Backend string `yaml:"backend"` // "github" or "none"
	Owner   string `yaml:"owner"`
	Repo    string `yaml:"repo"`
	Token   string `yaml:"token"`
}

// LLMConfig selects the generation backend for ticket drafting.
type LLMConfig struct {
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	APIBase     string  `yaml:"api_base"`
	Temperature float64 `yaml:"temperature"`
}

// NotifyConfig holds notification adapter settings.
type NotifyConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig configures the Slack notification adapter.
type SlackConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// DiscordConfig configures the Discord notification adapter.
type DiscordConfig struct {
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Port int `yaml:"port"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Multiplier returns the seniority multiplier for a level, defaulting to 1.0
// for unknown levels.
func (c *CapacityConfig) Multiplier(level string) float64 {
	if m, ok := c.Multipliers[strings.ToLower(level)]; ok {
		return m
	}
	return 1.0
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.DB.Host == "" {
		c.DB.Host = "127.0.0.1"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.DB.User == "" {
		c.DB.User = "root"
	}
	if c.DB.Database == "" && c.Project != "" {
		c.DB.Database = "ticketyard_" + strings.ToLower(c.Project)
	}
	if c.Capacity.DailyWorkingHours == 0 {
		c.Capacity.DailyWorkingHours = 8
	}
	if c.Capacity.HoursPerPoint == 0 {
		c.Capacity.HoursPerPoint = 4
	}
	if c.Capacity.FocusFactor == 0 {
		c.Capacity.FocusFactor = 0.7
	}
	if c.Capacity.Multipliers == nil {
		c.Capacity.Multipliers = map[string]float64{
			"junior":    0.6,
			"mid":       1.0,
			"senior":    1.2,
			"lead":      0.8,
			"principal": 0.7,
		}
	}
	if c.Queue.MaxAttempts == 0 {
		c.Queue.MaxAttempts = 10
	}
	if c.Queue.SweepCron == "" {
		c.Queue.SweepCron = "0 * * * *"
	}
	if c.Sync.CapacityCron == "" {
		c.Sync.CapacityCron = "*/15 * * * *"
	}
	if c.Sync.CleanupCron == "" {
		c.Sync.CleanupCron = "0 3 * * 0"
	}
	if c.Sync.RetentionDays == 0 {
		c.Sync.RetentionDays = 180
	}
	if c.Tracker.Backend == "" {
		c.Tracker.Backend = "none"
	}
	if c.Tracker.Token == "" {
		c.Tracker.Token = os.Getenv("TICKETYARD_TRACKER_TOKEN")
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4-turbo-preview"
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("TICKETYARD_LLM_API_KEY")
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Project == "" {
		errs = append(errs, "project is required")
	}
	if c.Capacity.FocusFactor < 0 || c.Capacity.FocusFactor > 1 {
		errs = append(errs, "capacity.focus_factor must be between 0 and 1")
	}
	if c.Queue.MaxAttempts < 1 {
		errs = append(errs, "queue.max_attempts must be at least 1")
	}
	if c.Tracker.Backend != "none" && c.Tracker.Backend != "github" {
		errs = append(errs, fmt.Sprintf("tracker.backend %q is not supported (github, none)", c.Tracker.Backend))
	}
	if c.Tracker.Backend == "github" {
		if c.Tracker.Owner == "" {
			errs = append(errs, "tracker.owner is required for the github backend")
		}
		if c.Tracker.Repo == "" {
			errs = append(errs, "tracker.repo is required for the github backend")
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
