// pkg/config/config.go
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	// External collaborators
	Store *StoreConfig
	FTP   *FTPConfig
	SMTP  *SMTPConfig

	// Pipeline settings
	WorkerPoolSize   int    // 0 or 1 means sequential per-partner processing
	LocalDownloadDir string // root for per-partner temporary downloads

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		WorkerPoolSize:   getEnvAsInt("WORKER_POOL_SIZE", 1),
		LocalDownloadDir: getEnv("LOCAL_DOWNLOAD_DIR", "tmp"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
	}

	storeCfg, err := LoadStoreConfig()
	if err != nil {
		return nil, errors.New("failed to load store configuration: " + err.Error())
	}
	cfg.Store = storeCfg

	ftpCfg, err := LoadFTPConfig()
	if err != nil {
		return nil, errors.New("failed to load FTP configuration: " + err.Error())
	}
	cfg.FTP = ftpCfg

	smtpCfg, err := LoadSMTPConfig()
	if err != nil {
		return nil, errors.New("failed to load SMTP configuration: " + err.Error())
	}
	cfg.SMTP = smtpCfg

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.Store == nil {
		return errors.New("store configuration is required")
	}

	if c.FTP == nil {
		return errors.New("FTP configuration is required")
	}

	if c.WorkerPoolSize < 0 {
		return errors.New("worker pool size cannot be negative")
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultSeconds)) * time.Second
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result []string
	for _, v := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}
	return result
}
