package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config keeps runtime settings for the bot and background jobs.
type Config struct {
	TelegramToken      string        `yaml:"telegram_token"`
	DatabaseURL        string        `yaml:"database_url"`
	SummaryTime        string        `yaml:"summary_time"`   // HH:MM, local time
	PurgeInterval      time.Duration `yaml:"purge_interval"` // how often the trash purge runs
	TrashRetentionDays int           `yaml:"trash_retention_days"`
}

// Load reads configuration from an optional YAML file (CONFIG_FILE) with
// environment variables taking precedence, then applies defaults.
func Load() (Config, error) {
	var cfg Config

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")); v != "" {
		cfg.TelegramToken = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SUMMARY_TIME")); v != "" {
		cfg.SummaryTime = v
	}
	if v := strings.TrimSpace(os.Getenv("PURGE_INTERVAL_HOURS")); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil || hours <= 0 {
			return cfg, fmt.Errorf("invalid PURGE_INTERVAL_HOURS %q", v)
		}
		cfg.PurgeInterval = time.Duration(hours) * time.Hour
	}
	if v := strings.TrimSpace(os.Getenv("TRASH_RETENTION_DAYS")); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			return cfg, fmt.Errorf("invalid TRASH_RETENTION_DAYS %q", v)
		}
		cfg.TrashRetentionDays = days
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "taskengine.db"
	}
	if cfg.SummaryTime == "" {
		cfg.SummaryTime = "09:00"
	}
	if cfg.PurgeInterval == 0 {
		cfg.PurgeInterval = 12 * time.Hour
	}
	if cfg.TrashRetentionDays == 0 {
		cfg.TrashRetentionDays = 30
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("telegram token is required (TELEGRAM_TOKEN or config file)")
	}

	return cfg, nil
}

// TrashRetention converts the retention setting into a duration.
func (c Config) TrashRetention() time.Duration {
	return time.Duration(c.TrashRetentionDays) * 24 * time.Hour
}
