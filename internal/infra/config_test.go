package infra

import (
	"testing"
	"time"
)

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("STUCK_JOB_TIMEOUT_MINUTES", "")
	t.Setenv("JOB_RETENTION_DAYS", "")
	t.Setenv("CACHE_MAX_AGE_HOURS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StuckJobTimeout != 30*time.Minute {
		t.Fatalf("StuckJobTimeout %s, want 30m", cfg.StuckJobTimeout)
	}
	if cfg.JobRetention != 7*24*time.Hour {
		t.Fatalf("JobRetention %s, want 168h", cfg.JobRetention)
	}
	if cfg.CacheMaxAge != 24*time.Hour {
		t.Fatalf("CacheMaxAge %s, want 24h", cfg.CacheMaxAge)
	}
	if cfg.WorkerPollInterval != 2*time.Second {
		t.Fatalf("WorkerPollInterval %s, want 2s", cfg.WorkerPollInterval)
	}
}

func TestLoadConfigHonorsOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("STUCK_JOB_TIMEOUT_MINUTES", "5")
	t.Setenv("SWEEP_INTERVAL_SECONDS", "15")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StuckJobTimeout != 5*time.Minute {
		t.Fatalf("StuckJobTimeout %s, want 5m", cfg.StuckJobTimeout)
	}
	if cfg.SweepInterval != 15*time.Second {
		t.Fatalf("SweepInterval %s, want 15s", cfg.SweepInterval)
	}
}
