package config_test

import (
	"testing"
	"time"

	"github.com/Abraxas-365/rentify/pkg/config"
)

func TestLoad_JobxDefaults(t *testing.T) {
	cfg := config.Load()

	if cfg.Jobx.DefaultMaxAttempts != 3 {
		t.Errorf("DefaultMaxAttempts = %d, want 3", cfg.Jobx.DefaultMaxAttempts)
	}
	if cfg.Jobx.PollInterval != time.Second {
		t.Errorf("PollInterval = %v, want 1s", cfg.Jobx.PollInterval)
	}
	if cfg.Jobx.RetryJitter != 0.2 {
		t.Errorf("RetryJitter = %v, want 0.2", cfg.Jobx.RetryJitter)
	}
}

func TestLoad_JobxFromEnv(t *testing.T) {
	t.Setenv("JOBX_BACKEND", "redis")
	t.Setenv("JOBX_CONCURRENCY", "8")
	t.Setenv("JOBX_HANDLER_TIMEOUT", "45s")
	t.Setenv("JOBX_RETRY_JITTER", "0.1")
	t.Setenv("JOBX_CLEANUP_SCHEDULE", "@every 15m")

	cfg := config.Load()

	if cfg.Jobx.Backend != "redis" {
		t.Errorf("Backend = %q, want redis", cfg.Jobx.Backend)
	}
	if cfg.Jobx.Concurrency != 8 {
		t.Errorf("Concurrency = %d, want 8", cfg.Jobx.Concurrency)
	}
	if cfg.Jobx.HandlerTimeout != 45*time.Second {
		t.Errorf("HandlerTimeout = %v, want 45s", cfg.Jobx.HandlerTimeout)
	}
	if cfg.Jobx.RetryJitter != 0.1 {
		t.Errorf("RetryJitter = %v, want 0.1", cfg.Jobx.RetryJitter)
	}
	if cfg.Jobx.CleanupSchedule != "@every 15m" {
		t.Errorf("CleanupSchedule = %q", cfg.Jobx.CleanupSchedule)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("JOBX_CONCURRENCY", "lots")
	t.Setenv("JOBX_POLL_INTERVAL", "soon")

	cfg := config.Load()

	if cfg.Jobx.Concurrency != 4 {
		t.Errorf("Concurrency = %d, want fallback 4", cfg.Jobx.Concurrency)
	}
	if cfg.Jobx.PollInterval != time.Second {
		t.Errorf("PollInterval = %v, want fallback 1s", cfg.Jobx.PollInterval)
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := config.DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	want := "host=db port=5433 user=u password=p dbname=n sslmode=disable"
	if got := d.DSN(); got != want {
		t.Fatalf("DSN() = %q, want %q", got, want)
	}
}
