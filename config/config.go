package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort      string
	DatabaseURL     string
	SubsidyAPIKey   string
	SyncSecretKey   string
	ConfigFile      string
	CacheTTLMinutes string
	LogLevel        string
	SyncIntervalHrs string
	SyncPageSize    string
	SyncOnStartup   string
}

// GetCacheTTL returns the listing cache TTL from environment or default
func (c *Config) GetCacheTTL() time.Duration {
	if c.CacheTTLMinutes == "" {
		return 15 * time.Minute
	}

	minutes, err := strconv.Atoi(c.CacheTTLMinutes)
	if err != nil {
		logrus.Warnf("Invalid CACHE_TTL_MINUTES value: %s, using default 15 minutes", c.CacheTTLMinutes)
		return 15 * time.Minute
	}

	return time.Duration(minutes) * time.Minute
}

// GetSyncInterval returns how often the scheduled sync job runs
func (c *Config) GetSyncInterval() time.Duration {
	if c.SyncIntervalHrs == "" {
		return 6 * time.Hour
	}

	hours, err := strconv.Atoi(c.SyncIntervalHrs)
	if err != nil {
		logrus.Warnf("Invalid SYNC_INTERVAL_HOURS value: %s, using default 6 hours", c.SyncIntervalHrs)
		return 6 * time.Hour
	}

	return time.Duration(hours) * time.Hour
}

// GetSyncPageSize returns the per-page record count requested from the
// upstream open-data API
func (c *Config) GetSyncPageSize() int {
	if c.SyncPageSize == "" {
		return 100
	}

	size, err := strconv.Atoi(c.SyncPageSize)
	if err != nil || size <= 0 {
		logrus.Warnf("Invalid SYNC_PAGE_SIZE value: %s, using default 100", c.SyncPageSize)
		return 100
	}

	return size
}

// GetSyncOnStartup reports whether a sync run should be kicked off when
// the server boots
func (c *Config) GetSyncOnStartup() bool {
	return c.SyncOnStartup == "true" || c.SyncOnStartup == "1"
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	// Tuning values default to empty so main can tell "explicitly set"
	// apart from "use the config file or built-in default".
	return &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		SubsidyAPIKey:   getEnv("SUBSIDY_API_KEY", ""),
		SyncSecretKey:   getEnv("SYNC_SECRET_KEY", "sync-secret-123"),
		ConfigFile:      getEnv("CONFIG_FILE", ""),
		CacheTTLMinutes: getEnv("CACHE_TTL_MINUTES", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		SyncIntervalHrs: getEnv("SYNC_INTERVAL_HOURS", ""),
		SyncPageSize:    getEnv("SYNC_PAGE_SIZE", ""),
		SyncOnStartup:   getEnv("SYNC_ON_STARTUP", "false"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
