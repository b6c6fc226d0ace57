package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName        = "Kudifi"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultCountryCode    = "233"
	defaultMaxTransfer    = 10_000.0
	defaultPINMaxAttempts = 3
	defaultLockoutWindow  = time.Hour

	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName  string
	AppEnv   string
	Port     string
	LogLevel string

	DatabaseURL string
	RedisURL    string

	// Wallet engine collaborator.
	EngineBaseURL          string
	EngineSecretKey        string
	EngineVaultAccessToken string

	// Gateway behaviour.
	DonationAddress   string
	CountryCode       string
	MaxTransferAmount float64
	PINMaxAttempts    int
	PINLockoutWindow  time.Duration

	ShutdownPeriod time.Duration
}

// Load reads configuration values from the environment and populates a Config
// instance. Every required collaborator credential is validated here so that a
// misconfigured process dies at startup instead of at request time.
func Load() (Config, error) {
	cfg := Config{
		AppName:                getEnv("APP_NAME", defaultAppName),
		AppEnv:                 getEnv("APP_ENV", defaultAppEnv),
		Port:                   getEnv("PORT", defaultPort),
		LogLevel:               strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		RedisURL:               os.Getenv("REDIS_URL"),
		EngineBaseURL:          os.Getenv("ENGINE_BASE_URL"),
		EngineSecretKey:        os.Getenv("ENGINE_SECRET_KEY"),
		EngineVaultAccessToken: os.Getenv("ENGINE_VAULT_ACCESS_TOKEN"),
		DonationAddress:        os.Getenv("DONATION_ADDRESS"),
		CountryCode:            getEnv("COUNTRY_CODE", defaultCountryCode),
		MaxTransferAmount:      defaultMaxTransfer,
		PINMaxAttempts:         defaultPINMaxAttempts,
		PINLockoutWindow:       defaultLockoutWindow,
		ShutdownPeriod:         defaultShutdownDelay,
	}

	if v := os.Getenv("MAX_TRANSFER_AMOUNT"); v != "" {
		ceiling, err := strconv.ParseFloat(v, 64)
		if err != nil || ceiling <= 0 {
			return Config{}, fmt.Errorf("invalid MAX_TRANSFER_AMOUNT: %q", v)
		}
		cfg.MaxTransferAmount = ceiling
	}

	if v := os.Getenv("PIN_MAX_ATTEMPTS"); v != "" {
		attempts, err := strconv.Atoi(v)
		if err != nil || attempts <= 0 {
			return Config{}, fmt.Errorf("invalid PIN_MAX_ATTEMPTS: %q", v)
		}
		cfg.PINMaxAttempts = attempts
	}

	if v := os.Getenv("PIN_LOCKOUT_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid PIN_LOCKOUT_WINDOW: %q", v)
		}
		cfg.PINLockoutWindow = d
	}

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	required := []struct {
		name  string
		value string
	}{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"REDIS_URL", cfg.RedisURL},
		{"ENGINE_BASE_URL", cfg.EngineBaseURL},
		{"ENGINE_SECRET_KEY", cfg.EngineSecretKey},
		{"ENGINE_VAULT_ACCESS_TOKEN", cfg.EngineVaultAccessToken},
		{"DONATION_ADDRESS", cfg.DonationAddress},
	}
	for _, req := range required {
		if req.value == "" {
			return Config{}, fmt.Errorf("%s must be set", req.name)
		}
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
