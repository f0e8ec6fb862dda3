package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/voltshare")
	t.Setenv("HARDWARE_DOMAIN", "https://vendor.example.com")
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.HTTPAddress() != ":8080" {
		t.Fatalf("unexpected address %q", cfg.HTTPAddress())
	}
	if cfg.Reconcile.Interval.Std() != 2*time.Minute {
		t.Fatalf("unexpected interval %v", cfg.Reconcile.Interval)
	}
	if cfg.Reconcile.MinServiceCharge != 60 {
		t.Fatalf("unexpected min charge %d", cfg.Reconcile.MinServiceCharge)
	}
	if cfg.Reconcile.AutoCloseOverdue {
		t.Fatalf("overdue auto-close must default off")
	}
	if len(cfg.Reconcile.Tiers) != 2 || cfg.Reconcile.Tiers[0].Allowance.Std() != 2*time.Hour {
		t.Fatalf("unexpected tiers: %+v", cfg.Reconcile.Tiers)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("RECONCILE_INTERVAL", "30s")
	t.Setenv("RECONCILE_AUTO_CLOSE_OVERDUE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.HTTPAddress() != ":9090" {
		t.Fatalf("unexpected address %q", cfg.HTTPAddress())
	}
	if cfg.Reconcile.Interval.Std() != 30*time.Second {
		t.Fatalf("unexpected interval %v", cfg.Reconcile.Interval)
	}
	if !cfg.Reconcile.AutoCloseOverdue {
		t.Fatalf("auto-close override not applied")
	}
}

func TestLoadRequiresDSN(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POSTGRES_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing dsn")
	}
}

func TestLoadRejectsNonPositiveInterval(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RECONCILE_INTERVAL", "0s")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero interval")
	}
}
