package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP change notifications; empty URL disables them
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Audit worker output
	AuditLogPath string

	// Import pipeline
	ImportMaxRows  int
	ImportMaxBytes int64
	StagingTTL     time.Duration
	StagingMaxSize int
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/bookkeeper.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "bookkeeper"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_changes"),

		AuditLogPath: getEnv("AUDIT_LOG_PATH", "./data/audit.log"),

		ImportMaxRows:  getEnvInt("IMPORT_MAX_ROWS", 10000),
		ImportMaxBytes: int64(getEnvInt("IMPORT_MAX_BYTES", 4<<20)),
		StagingTTL:     getEnvDuration("STAGING_TTL", 30*time.Minute),
		StagingMaxSize: getEnvInt("STAGING_MAX_BATCHES", 256),
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.ImportMaxRows < 1 {
		errs = append(errs, fmt.Sprintf("invalid import row limit %d: must be at least 1", c.ImportMaxRows))
	}
	if c.ImportMaxBytes < 1 {
		errs = append(errs, fmt.Sprintf("invalid import byte limit %d: must be at least 1", c.ImportMaxBytes))
	}
	if c.StagingTTL < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid staging TTL %v: must be at least 1 minute", c.StagingTTL))
	}
	if c.StagingMaxSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid staging size %d: must be at least 1", c.StagingMaxSize))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
