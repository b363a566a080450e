// pkg/config/collaborators.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// StoreConfig holds relational store connection parameters
type StoreConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Query timeout
	QueryTimeout time.Duration
}

// FTPConfig holds file source connection parameters
type FTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string

	// RemoteRoot is the folder holding per-partner inbound directories;
	// each partner's new files live under <RemoteRoot>/<folder>/orders.
	RemoteRoot string

	// LogsRoot is the folder processed files are archived under, in
	// order_logs or error_logs subfolders.
	LogsRoot string

	DialTimeout time.Duration
}

// SMTPConfig holds notification channel parameters
type SMTPConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	From       string
	Recipients []string
}

// LoadStoreConfig loads relational store configuration from environment variables
func LoadStoreConfig() (*StoreConfig, error) {
	user := os.Getenv("STORE_USER")
	if user == "" {
		return nil, errors.New("STORE_USER environment variable is required")
	}

	password := os.Getenv("STORE_PASSWORD")
	if password == "" {
		return nil, errors.New("STORE_PASSWORD environment variable is required")
	}

	database := os.Getenv("STORE_DB")
	if database == "" {
		return nil, errors.New("STORE_DB environment variable is required")
	}

	cfg := &StoreConfig{
		Host:     getEnv("STORE_HOST", "localhost"),
		Port:     getEnvAsInt("STORE_PORT", 5432),
		User:     user,
		Password: password,
		Database: database,
		SSLMode:  getEnv("STORE_SSLMODE", "disable"),

		MaxOpenConns:    getEnvAsInt("STORE_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvAsInt("STORE_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("STORE_CONN_MAX_LIFETIME_SECONDS", 1800),
		ConnMaxIdleTime: getEnvAsDuration("STORE_CONN_MAX_IDLE_TIME_SECONDS", 600),
		QueryTimeout:    getEnvAsDuration("STORE_QUERY_TIMEOUT_SECONDS", 300),
	}

	return cfg, nil
}

// LoadFTPConfig loads file source configuration from environment variables
func LoadFTPConfig() (*FTPConfig, error) {
	host := os.Getenv("FTP_HOST")
	if host == "" {
		return nil, errors.New("FTP_HOST environment variable is required")
	}

	user := os.Getenv("FTP_USER")
	if user == "" {
		return nil, errors.New("FTP_USER environment variable is required")
	}

	password := os.Getenv("FTP_PASSWORD")
	if password == "" {
		return nil, errors.New("FTP_PASSWORD environment variable is required")
	}

	cfg := &FTPConfig{
		Host:        host,
		Port:        getEnvAsInt("FTP_PORT", 21),
		User:        user,
		Password:    password,
		RemoteRoot:  getEnv("FTP_REMOTE_ROOT", "dropshipper"),
		LogsRoot:    getEnv("FTP_LOGS_ROOT", "dropshipper_logs"),
		DialTimeout: getEnvAsDuration("FTP_DIAL_TIMEOUT_SECONDS", 30),
	}

	return cfg, nil
}

// LoadSMTPConfig loads notification configuration from environment variables
func LoadSMTPConfig() (*SMTPConfig, error) {
	cfg := &SMTPConfig{
		Host:       getEnv("SMTP_HOST", ""),
		Port:       getEnvAsInt("SMTP_PORT", 587),
		User:       getEnv("SMTP_USER", ""),
		Password:   getEnv("SMTP_PASSWORD", ""),
		From:       getEnv("SMTP_FROM", ""),
		Recipients: getEnvAsStringSlice("SMTP_RECIPIENTS", nil),
	}

	// Notifications are optional; a blank host disables the channel.
	return cfg, nil
}

// Enabled reports whether the notification channel is configured.
func (c *SMTPConfig) Enabled() bool {
	return c.Host != "" && len(c.Recipients) > 0
}

// Address returns the host:port SMTP endpoint.
func (c *SMTPConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ConnectionString returns a formatted store connection string
func (c *StoreConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
	)
}

// Address returns the host:port FTP endpoint.
func (c *FTPConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
