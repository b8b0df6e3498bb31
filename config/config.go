package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Worker     WorkerConfig
	Calculator CalculatorConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Env      string
	Port     string
	LogLevel string
	// StorageDriver is "postgres" or "memory"
	StorageDriver string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	PoolMax         int
	PoolMinConns    int
	PoolMaxConnLife time.Duration
}

// WorkerConfig holds revalidation worker configuration
type WorkerConfig struct {
	Count        int
	BatchSize    int
	PollInterval time.Duration
	// Inline runs revalidation jobs inside the API process
	Inline bool
}

// CalculatorConfig holds submission handling configuration
type CalculatorConfig struct {
	StrictInputs   bool
	LogSubmissions bool
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		App: AppConfig{
			Env:           getEnv("APP_ENV", "development"),
			Port:          getEnv("APP_PORT", "8080"),
			LogLevel:      getEnv("LOG_LEVEL", "info"),
			StorageDriver: getEnv("STORAGE_DRIVER", "postgres"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "farmcalc"),
			PoolMax:         getEnvInt("DB_POOL_MAX", 20),
			PoolMinConns:    getEnvInt("DB_POOL_MIN", 2),
			PoolMaxConnLife: time.Duration(getEnvInt("DB_POOL_MAX_CONN_LIFE_MINUTES", 30)) * time.Minute,
		},
		Worker: WorkerConfig{
			Count:        getEnvInt("WORKER_COUNT", 8),
			BatchSize:    getEnvInt("BATCH_SIZE", 200),
			PollInterval: time.Duration(getEnvInt("WORKER_POLL_SECONDS", 30)) * time.Second,
			Inline:       getEnvBool("WORKER_INLINE", true),
		},
		Calculator: CalculatorConfig{
			StrictInputs:   getEnvBool("CALC_STRICT_INPUTS", false),
			LogSubmissions: getEnvBool("CALC_LOG_SUBMISSIONS", true),
		},
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.Name + "?sslmode=disable"
}

// NewLogger builds a text logger at the configured level
func (c *AppConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
