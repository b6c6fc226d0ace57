package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/kudifi")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("ENGINE_BASE_URL", "https://engine.example.com")
	t.Setenv("ENGINE_SECRET_KEY", "secret")
	t.Setenv("ENGINE_VAULT_ACCESS_TOKEN", "vault-token")
	t.Setenv("DONATION_ADDRESS", "0xteam")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.CountryCode != "233" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.PINMaxAttempts != 3 || cfg.PINLockoutWindow != time.Hour {
		t.Fatalf("unexpected pin defaults: %+v", cfg)
	}
	if cfg.MaxTransferAmount != 10_000 {
		t.Fatalf("unexpected ceiling: %v", cfg.MaxTransferAmount)
	}
}

func TestLoadFailsOnMissingRequired(t *testing.T) {
	required := []string{
		"DATABASE_URL", "REDIS_URL", "ENGINE_BASE_URL",
		"ENGINE_SECRET_KEY", "ENGINE_VAULT_ACCESS_TOKEN", "DONATION_ADDRESS",
	}
	for _, name := range required {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(name, "")

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error when %s is missing", name)
			}
			if !strings.Contains(err.Error(), name) {
				t.Fatalf("error %q does not name %s", err, name)
			}
		})
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	setRequired(t)
	t.Setenv("MAX_TRANSFER_AMOUNT", "-5")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative ceiling")
	}

	setRequired(t)
	t.Setenv("MAX_TRANSFER_AMOUNT", "")
	t.Setenv("PIN_LOCKOUT_WINDOW", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unparseable lockout window")
	}
}

func TestAddress(t *testing.T) {
	if got := (Config{Port: "9090"}).Address(); got != ":9090" {
		t.Fatalf("Address() = %q", got)
	}
	if got := (Config{Port: ":9090"}).Address(); got != ":9090" {
		t.Fatalf("Address() = %q", got)
	}
}
