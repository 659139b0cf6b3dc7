package config

import (
	"os"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/codetime")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)
	for _, key := range []string{
		"PORT", "ENV", "REGISTERS_PER_DAY", "EPHEMERAL_PROJECT_PREFIX",
		"SWEEP_INTERVAL_SECONDS", "FLUSH_WORKERS", "FRONTEND_URL",
	} {
		os.Unsetenv(key)
	}

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %q", cfg.Port)
	}
	if cfg.RegistersPerDay != 3 {
		t.Errorf("Expected 3 registrations per day by default, got %d", cfg.RegistersPerDay)
	}
	if cfg.EphemeralProjectPrefix != "tmp." {
		t.Errorf("Expected default scratch prefix 'tmp.', got %q", cfg.EphemeralProjectPrefix)
	}
	if cfg.SweepIntervalSeconds != 60 {
		t.Errorf("Expected default sweep interval 60s, got %d", cfg.SweepIntervalSeconds)
	}
	if cfg.FlushWorkers != 4 {
		t.Errorf("Expected 4 flush workers by default, got %d", cfg.FlushWorkers)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("REGISTERS_PER_DAY", "10")
	t.Setenv("EPHEMERAL_PROJECT_PREFIX", "scratch-")
	t.Setenv("SWEEP_INTERVAL_SECONDS", "15")
	t.Setenv("FLUSH_WORKERS", "2")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got %q", cfg.Port)
	}
	if cfg.RegistersPerDay != 10 {
		t.Errorf("Expected 10 registrations per day, got %d", cfg.RegistersPerDay)
	}
	if cfg.EphemeralProjectPrefix != "scratch-" {
		t.Errorf("Expected scratch prefix 'scratch-', got %q", cfg.EphemeralProjectPrefix)
	}
	if cfg.SweepIntervalSeconds != 15 {
		t.Errorf("Expected sweep interval 15s, got %d", cfg.SweepIntervalSeconds)
	}
	if cfg.FlushWorkers != 2 {
		t.Errorf("Expected 2 flush workers, got %d", cfg.FlushWorkers)
	}
}

func TestLoad_BadIntegerFallsBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FLUSH_WORKERS", "many")
	t.Setenv("SWEEP_INTERVAL_SECONDS", "1.5")

	cfg := Load()

	if cfg.FlushWorkers != 4 {
		t.Errorf("Expected non-numeric FLUSH_WORKERS to fall back to 4, got %d", cfg.FlushWorkers)
	}
	if cfg.SweepIntervalSeconds != 60 {
		t.Errorf("Expected non-integer SWEEP_INTERVAL_SECONDS to fall back to 60, got %d", cfg.SweepIntervalSeconds)
	}
}

func TestLoad_MissingRequiredPanics(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "test-secret")
	os.Unsetenv("DATABASE_URL")

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic when DATABASE_URL is missing")
		}
	}()
	Load()
}
