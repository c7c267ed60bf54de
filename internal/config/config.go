// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv    string
	Port      string
	LogFormat string
	LogLevel  string

	// RedisURL enables the duplicate-transaction store and the notification
	// rate limiter when set.
	RedisURL string

	CORSAllowedOrigins []string
	// RateLimit uses the limiter formatted syntax, e.g. "60-M".
	RateLimit string

	PayPalBusiness string `validate:"omitempty,email"`
	PayPalSandbox  bool

	RedsysMerchantCode string
	RedsysMerchantName string
	RedsysTerminal     string
	RedsysSecret       string
	// RedsysSignature selects the signature scheme: hmac (current) or sha1
	// (legacy).
	RedsysSignature string `validate:"oneof=hmac sha1"`
	RedsysSandbox   bool

	NotifyURL  string `validate:"omitempty,url"`
	SuccessURL string `validate:"omitempty,url"`
	ErrorURL   string `validate:"omitempty,url"`

	// FeePercent is the flat gateway fee fraction ("0.015" means 1.5%).
	FeePercent string
	// TxnTTL bounds how long transaction ids stay in the duplicate store.
	TxnTTL time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		LogFormat:          valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:           valueOrDefault(k.String("LOG_LEVEL"), "info"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		RateLimit:          valueOrDefault(k.String("NOTIFY_RATE_LIMIT"), "120-M"),
		PayPalBusiness:     k.String("PAYPAL_BUSINESS"),
		PayPalSandbox:      parseBool(k.String("PAYPAL_SANDBOX")),
		RedsysMerchantCode: k.String("REDSYS_MERCHANT_CODE"),
		RedsysMerchantName: k.String("REDSYS_MERCHANT_NAME"),
		RedsysTerminal:     valueOrDefault(k.String("REDSYS_TERMINAL"), "001"),
		RedsysSecret:       k.String("REDSYS_SECRET"),
		RedsysSignature:    valueOrDefault(k.String("REDSYS_SIGNATURE"), "hmac"),
		RedsysSandbox:      parseBool(k.String("REDSYS_SANDBOX")),
		NotifyURL:          k.String("NOTIFY_URL"),
		SuccessURL:         k.String("SUCCESS_URL"),
		ErrorURL:           k.String("ERROR_URL"),
		FeePercent:         k.String("FEE_PERCENT"),
		TxnTTL:             parseDuration(k.String("TXN_TTL"), "720h"),
	}

	if cfg.PayPalBusiness == "" && cfg.RedsysMerchantCode == "" {
		return nil, errors.New("at least one of PAYPAL_BUSINESS or REDSYS_MERCHANT_CODE is required")
	}
	if cfg.RedsysMerchantCode != "" && cfg.RedsysSecret == "" {
		return nil, errors.New("REDSYS_SECRET is required when REDSYS_MERCHANT_CODE is set")
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// MustLoad behaves like Load but panics on error. Useful for command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching
// the real environment.
func LoadForTests(envVars map[string]string) (*Config, error) {
	original := make(map[string]string, len(envVars))
	for key := range envVars {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, envVars[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
