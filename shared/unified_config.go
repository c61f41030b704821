package shared

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// UnifiedConfiguration holds all configuration parameters for the entire application
type UnifiedConfiguration struct {
	Upstream UpstreamConfig `json:"upstream"`
	Database DatabaseConfig `json:"database"`
	Sync     SyncConfig     `json:"sync"`
	Cache    CacheConfig    `json:"cache"`
	Logging  LoggingConfig  `json:"logging"`
}

// UpstreamConfig holds open-data API client configuration
type UpstreamConfig struct {
	BaseURL            string        `json:"base_url"`
	HTTPRequestTimeout time.Duration `json:"http_timeout"`
	RequestRateLimit   time.Duration `json:"rate_limit"`
	MaxRetryAttempts   int           `json:"max_retries"`
	EnableMetrics      bool          `json:"enable_metrics"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	PingTimeout     time.Duration `json:"ping_timeout"`
}

// SyncConfig holds reconciliation run configuration
type SyncConfig struct {
	PageSize      int           `json:"page_size"`
	Interval      time.Duration `json:"interval"`
	RunOnStartup  bool          `json:"run_on_startup"`
	MaxTotalPages int           `json:"max_total_pages"`
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	DefaultTTL time.Duration `json:"default_ttl"`
	MaxSize    int           `json:"max_size"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string `json:"level"`
	Format      string `json:"format"`
	Output      string `json:"output"`
	EnableJSON  bool   `json:"enable_json"`
	ServiceName string `json:"service_name"`
}

// NewDefaultUnifiedConfiguration returns production-ready default configuration
func NewDefaultUnifiedConfiguration() *UnifiedConfiguration {
	return &UnifiedConfiguration{
		Upstream: UpstreamConfig{
			BaseURL:            "https://api.odcloud.kr/api/gov24/v3",
			HTTPRequestTimeout: 30 * time.Second,
			RequestRateLimit:   50 * time.Millisecond,
			MaxRetryAttempts:   3,
			EnableMetrics:      true,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			PingTimeout:     5 * time.Second,
		},
		Sync: SyncConfig{
			PageSize:      100,
			Interval:      6 * time.Hour,
			RunOnStartup:  false,
			MaxTotalPages: 1000,
		},
		Cache: CacheConfig{
			DefaultTTL: 15 * time.Minute,
			MaxSize:    1000,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			Output:      "stdout",
			EnableJSON:  true,
			ServiceName: "subsidy-backend",
		},
	}
}

// ValidateAndApplyDefaults validates configuration and applies defaults for invalid values
func (c *UnifiedConfiguration) ValidateAndApplyDefaults() {
	logger := logrus.WithField("component", "UnifiedConfiguration")

	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = "https://api.odcloud.kr/api/gov24/v3"
		logger.Debug("Applied default Upstream.BaseURL")
	}

	if c.Upstream.HTTPRequestTimeout <= 0 {
		c.Upstream.HTTPRequestTimeout = 30 * time.Second
		logger.Debug("Applied default Upstream.HTTPRequestTimeout")
	}

	if c.Upstream.RequestRateLimit <= 0 {
		c.Upstream.RequestRateLimit = 50 * time.Millisecond
		logger.Debug("Applied default Upstream.RequestRateLimit")
	}

	if c.Upstream.MaxRetryAttempts <= 0 {
		c.Upstream.MaxRetryAttempts = 3
		logger.Debug("Applied default Upstream.MaxRetryAttempts")
	}

	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 25
		logger.Debug("Applied default Database.MaxOpenConns")
	}

	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 5
		logger.Debug("Applied default Database.MaxIdleConns")
	}

	if c.Database.ConnMaxLifetime <= 0 {
		c.Database.ConnMaxLifetime = 5 * time.Minute
		logger.Debug("Applied default Database.ConnMaxLifetime")
	}

	if c.Database.PingTimeout <= 0 {
		c.Database.PingTimeout = 5 * time.Second
		logger.Debug("Applied default Database.PingTimeout")
	}

	if c.Sync.PageSize <= 0 {
		c.Sync.PageSize = 100
		logger.Debug("Applied default Sync.PageSize")
	}

	if c.Sync.Interval <= 0 {
		c.Sync.Interval = 6 * time.Hour
		logger.Debug("Applied default Sync.Interval")
	}

	if c.Sync.MaxTotalPages <= 0 {
		c.Sync.MaxTotalPages = 1000
		logger.Debug("Applied default Sync.MaxTotalPages")
	}

	if c.Cache.DefaultTTL <= 0 {
		c.Cache.DefaultTTL = 15 * time.Minute
		logger.Debug("Applied default Cache.DefaultTTL")
	}

	if c.Cache.MaxSize <= 0 {
		c.Cache.MaxSize = 1000
		logger.Debug("Applied default Cache.MaxSize")
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
		logger.Debug("Applied default Logging.Level")
	}

	if c.Logging.Format == "" {
		c.Logging.Format = "json"
		logger.Debug("Applied default Logging.Format")
	}

	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = "subsidy-backend"
		logger.Debug("Applied default Logging.ServiceName")
	}
}

// ToJSON serializes the configuration to JSON
func (c *UnifiedConfiguration) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// LoadFromJSON deserializes configuration from JSON
func (c *UnifiedConfiguration) LoadFromJSON(jsonData []byte) error {
	if err := json.Unmarshal(jsonData, c); err != nil {
		return fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	c.ValidateAndApplyDefaults()
	return nil
}
