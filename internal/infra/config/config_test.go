package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Backend.BaseURL != "http://localhost:5000" {
		t.Fatalf("unexpected backend base url %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout != 10*time.Second {
		t.Fatalf("unexpected backend timeout %v", cfg.Backend.Timeout)
	}
	if cfg.Auth.MinPasswordLength != 8 {
		t.Fatalf("unexpected min password length %d", cfg.Auth.MinPasswordLength)
	}
	if cfg.Auth.EntryPath != "/auth" {
		t.Fatalf("unexpected entry path %q", cfg.Auth.EntryPath)
	}
	if cfg.Provider.RefreshMargin != time.Minute {
		t.Fatalf("unexpected refresh margin %v", cfg.Provider.RefreshMargin)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("NBAIQ_BACKEND_BASE_URL", "http://profiles.internal:5000")
	t.Setenv("NBAIQ_AUTH_STRICT_RECOVERY_SESSION", "true")
	t.Setenv("PROVIDER_URL", "https://auth.example.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Backend.BaseURL != "http://profiles.internal:5000" {
		t.Fatalf("prefixed env override not applied: %q", cfg.Backend.BaseURL)
	}
	if !cfg.Auth.StrictRecoverySession {
		t.Fatalf("expected strict recovery session to be enabled")
	}
	if cfg.Provider.URL != "https://auth.example.test" {
		t.Fatalf("unprefixed env override not applied: %q", cfg.Provider.URL)
	}
}
