package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"CONFIG_FILE", "TELEGRAM_TOKEN", "DATABASE_URL", "SUMMARY_TIME", "PURGE_INTERVAL_HOURS", "TRASH_RETENTION_DAYS"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "tok")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "taskengine.db" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.SummaryTime != "09:00" {
		t.Errorf("SummaryTime = %q", cfg.SummaryTime)
	}
	if cfg.PurgeInterval != 12*time.Hour {
		t.Errorf("PurgeInterval = %v", cfg.PurgeInterval)
	}
	if cfg.TrashRetentionDays != 30 {
		t.Errorf("TrashRetentionDays = %d", cfg.TrashRetentionDays)
	}
	if cfg.TrashRetention() != 30*24*time.Hour {
		t.Errorf("TrashRetention() = %v", cfg.TrashRetention())
	}
}

func TestLoadRequiresToken(t *testing.T) {
	clearEnv(t)
	if _, err := Load(); err == nil {
		t.Fatal("expected an error without a token")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte("telegram_token: from-file\ndatabase_url: file.db\ntrash_retention_days: 7\n")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DATABASE_URL", "env.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TelegramToken != "from-file" {
		t.Errorf("TelegramToken = %q, want the file value", cfg.TelegramToken)
	}
	if cfg.DatabaseURL != "env.db" {
		t.Errorf("DatabaseURL = %q, env should win over the file", cfg.DatabaseURL)
	}
	if cfg.TrashRetentionDays != 7 {
		t.Errorf("TrashRetentionDays = %d, want the file value", cfg.TrashRetentionDays)
	}
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "tok")
	t.Setenv("PURGE_INTERVAL_HOURS", "zero")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a non-numeric interval")
	}

	t.Setenv("PURGE_INTERVAL_HOURS", "")
	t.Setenv("TRASH_RETENTION_DAYS", "-3")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a negative retention")
	}
}
