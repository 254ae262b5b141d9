// Package config provides configuration settings for the URL registry service.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Supported storage drivers.
const (
	DriverMemory = "memory"
	DriverSQL    = "sql"
	DriverRedis  = "redis"
)

// Config holds the configuration settings for the application.
type Config struct {
	ServerAddr      string
	BaseURL         string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string

	StorageDriver   string
	DatabaseURL     string
	StorageCapacity int
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	GeoIPDatabase   string

	DefaultValidityMinutes int
	MinValidityMinutes     int
	MaxValidityMinutes     int
	CodeLength             int
	MinCodeLength          int
	MaxCodeLength          int
	MaxGenerateAttempts    int
	MaxBatchSize           int

	PurgeOnStartup bool
	PurgeInterval  time.Duration
}

// DefaultConfig returns the default configuration settings.
func DefaultConfig() *Config {
	return &Config{
		ServerAddr:      ":3000",
		BaseURL:         "http://localhost:3000",
		RequestTimeout:  5 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",

		StorageDriver:   DriverMemory,
		DatabaseURL:     "links.db",
		StorageCapacity: 100000,
		RedisAddr:       "localhost:6379",

		DefaultValidityMinutes: 30,
		MinValidityMinutes:     1,
		MaxValidityMinutes:     10080,
		CodeLength:             6,
		MinCodeLength:          3,
		MaxCodeLength:          10,
		MaxGenerateAttempts:    100,
		MaxBatchSize:           5,

		PurgeOnStartup: true,
	}
}

// Load reads an optional .env file, then overlays environment variables on
// the defaults.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	d := DefaultConfig()
	cfg := &Config{
		ServerAddr:      getEnv("SERVER_ADDR", d.ServerAddr),
		BaseURL:         getEnv("BASE_URL", d.BaseURL),
		RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", d.RequestTimeout),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", d.ShutdownTimeout),
		LogLevel:        getEnv("LOG_LEVEL", d.LogLevel),

		StorageDriver:   getEnv("STORAGE_DRIVER", d.StorageDriver),
		DatabaseURL:     getEnv("DATABASE_URL", d.DatabaseURL),
		StorageCapacity: getEnvAsInt("STORAGE_CAPACITY", d.StorageCapacity),
		RedisAddr:       getEnv("REDIS_ADDR", d.RedisAddr),
		RedisPassword:   getEnv("REDIS_PASSWORD", d.RedisPassword),
		RedisDB:         getEnvAsInt("REDIS_DB", d.RedisDB),
		GeoIPDatabase:   getEnv("GEOIP_DATABASE", d.GeoIPDatabase),

		DefaultValidityMinutes: getEnvAsInt("DEFAULT_VALIDITY_MINUTES", d.DefaultValidityMinutes),
		MinValidityMinutes:     getEnvAsInt("MIN_VALIDITY_MINUTES", d.MinValidityMinutes),
		MaxValidityMinutes:     getEnvAsInt("MAX_VALIDITY_MINUTES", d.MaxValidityMinutes),
		CodeLength:             getEnvAsInt("CODE_LENGTH", d.CodeLength),
		MinCodeLength:          getEnvAsInt("MIN_CODE_LENGTH", d.MinCodeLength),
		MaxCodeLength:          getEnvAsInt("MAX_CODE_LENGTH", d.MaxCodeLength),
		MaxGenerateAttempts:    getEnvAsInt("MAX_GENERATE_ATTEMPTS", d.MaxGenerateAttempts),
		MaxBatchSize:           getEnvAsInt("MAX_BATCH_SIZE", d.MaxBatchSize),

		PurgeOnStartup: getEnvAsBool("PURGE_ON_STARTUP", d.PurgeOnStartup),
		PurgeInterval:  getEnvAsDuration("PURGE_INTERVAL", d.PurgeInterval),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverMemory, DriverSQL, DriverRedis:
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	if c.StorageDriver == DriverSQL && c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for the sql driver")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	if c.MaxBatchSize <= 0 {
		return errors.New("max batch size must be positive")
	}
	if c.MinValidityMinutes > c.MaxValidityMinutes {
		return fmt.Errorf("min validity %d exceeds max validity %d", c.MinValidityMinutes, c.MaxValidityMinutes)
	}
	if c.MinCodeLength > c.MaxCodeLength {
		return fmt.Errorf("min code length %d exceeds max code length %d", c.MinCodeLength, c.MaxCodeLength)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
