package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	CORS          CORSConfig
	MarketStack   ProviderConfig
	ExchangeRates ProviderConfig
	Refresh       RefreshConfig
	Log           LogConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Driver string // "sqlite" or "postgres"
	DSN    string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// ProviderConfig holds the connection settings of one external data provider.
// AccessKeyEnv names the variable the key was read from so that a missing
// credential can be reported precisely.
type ProviderConfig struct {
	BaseURL           string
	AccessKey         string
	AccessKeyEnv      string
	RequestsPerSecond float64
}

// RefreshConfig holds the scheduled refresh settings used by the server.
type RefreshConfig struct {
	Schedule     string
	Symbols      []WatchEntry
	LookbackDays int
}

// WatchEntry is one symbol the scheduler keeps warm, optionally in a
// conversion currency.
type WatchEntry struct {
	Symbol   string
	Currency string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "sqlite"),
			DSN:    getEnv("DB_DSN", "./market_data_loader.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost")),
		},
		MarketStack: ProviderConfig{
			// The free subscription does not support HTTPS
			BaseURL:      getEnv("MARKET_STACK_BASE_URL", "http://api.marketstack.com/v1"),
			AccessKey:    os.Getenv("MARKET_STACK_ACCESS_KEY"),
			AccessKeyEnv: "MARKET_STACK_ACCESS_KEY",
		},
		ExchangeRates: ProviderConfig{
			BaseURL:      getEnv("EXCHANGE_RATES_API_BASE_URL", "http://api.exchangeratesapi.io/v1"),
			AccessKey:    os.Getenv("EXCHANGE_RATES_API_ACCESS_KEY"),
			AccessKeyEnv: "EXCHANGE_RATES_API_ACCESS_KEY",
		},
		Refresh: RefreshConfig{
			Schedule: getEnv("REFRESH_SCHEDULE", "0 22 * * 1-5"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	var err error
	if config.MarketStack.RequestsPerSecond, err = getEnvFloat("MARKET_STACK_RPS", 5); err != nil {
		return nil, err
	}
	if config.ExchangeRates.RequestsPerSecond, err = getEnvFloat("EXCHANGE_RATES_API_RPS", 5); err != nil {
		return nil, err
	}
	if config.Refresh.LookbackDays, err = getEnvInt("REFRESH_LOOKBACK_DAYS", 7); err != nil {
		return nil, err
	}
	if config.Refresh.Symbols, err = ParseWatchList(os.Getenv("REFRESH_SYMBOLS")); err != nil {
		return nil, err
	}

	switch config.Database.Driver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (expected sqlite or postgres)", config.Database.Driver)
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// ParseWatchList parses a comma separated list of SYMBOL or SYMBOL:CURRENCY entries.
func ParseWatchList(raw string) ([]WatchEntry, error) {
	var entries []WatchEntry
	for _, item := range splitList(raw) {
		symbol, currency, _ := strings.Cut(item, ":")
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			return nil, fmt.Errorf("invalid REFRESH_SYMBOLS entry %q", item)
		}
		entries = append(entries, WatchEntry{
			Symbol:   symbol,
			Currency: strings.ToUpper(strings.TrimSpace(currency)),
		})
	}
	return entries, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive number", key, value)
	}
	return f, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil || i <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, value)
	}
	return i, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
