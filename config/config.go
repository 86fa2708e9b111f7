// Package config provides configuration for the finance-ledger server.
// It loads from environment variables and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the application configuration.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Currency  CurrencyConfig
	Scheduler SchedulerConfig
	LogLevel  string
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port int
}

// DBConfig configures the SQLite store.
type DBConfig struct {
	Path string
}

// CurrencyConfig configures the exchange-rate gateway. An empty BaseURL
// selects the static gateway (single-currency setups, tests).
type CurrencyConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	CacheTTL   time.Duration
}

// SchedulerConfig configures the background recurrence runner.
type SchedulerConfig struct {
	Enabled       bool
	CheckInterval time.Duration
}

// Load reads configuration from environment variables, first loading a
// .env file when one exists. An explicit path overrides the default.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// .env in the working directory is optional.
		_ = godotenv.Load()
	}

	port, err := intEnv("LEDGER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid LEDGER_PORT: %w", err)
	}
	retries, err := intEnv("CURRENCY_MAX_RETRIES", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid CURRENCY_MAX_RETRIES: %w", err)
	}
	timeout, err := durationEnv("CURRENCY_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid CURRENCY_TIMEOUT: %w", err)
	}
	cacheTTL, err := durationEnv("CURRENCY_CACHE_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid CURRENCY_CACHE_TTL: %w", err)
	}
	interval, err := durationEnv("SCHEDULER_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_INTERVAL: %w", err)
	}

	return &Config{
		Server: ServerConfig{Port: port},
		DB: DBConfig{
			Path: envOrDefault("LEDGER_DB_PATH", "ledger.db"),
		},
		Currency: CurrencyConfig{
			BaseURL:    os.Getenv("CURRENCY_API_URL"),
			APIKey:     os.Getenv("CURRENCY_API_KEY"),
			Timeout:    timeout,
			MaxRetries: retries,
			CacheTTL:   cacheTTL,
		},
		Scheduler: SchedulerConfig{
			Enabled:       os.Getenv("SCHEDULER_DISABLED") != "true",
			CheckInterval: interval,
		},
		LogLevel: envOrDefault("LOG_LEVEL", "info"),
	}, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	return time.ParseDuration(v)
}
