// Package config holds the run configuration of the banks ETL job.
// Every value can be overridden through the environment; the defaults
// reproduce the fixed paths of a local run.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	// SourceURL is the page holding the bank ranking table.
	SourceURL string

	// RateTablePath points to a CSV with a Currency,Rate header.
	RateTablePath string

	CSVPath string
	LogPath string

	DB DBConfig

	// Query is the statement printed after loading.
	Query string

	// HTTPTimeout bounds the page download. Zero means no timeout.
	HTTPTimeout time.Duration
}

type DBConfig struct {
	// Driver is either "sqlite" or "postgres".
	Driver string

	// DSN is a file path for sqlite and a connection URL for postgres.
	DSN string

	Table string
}

// Load builds the configuration once at startup. A .env file in the
// working directory is picked up when present.
func Load() *Config {
	_ = godotenv.Load() // .env is optional

	return &Config{
		SourceURL:     getEnv("BANKS_SOURCE_URL", "https://web.archive.org/web/20230908091635/https://en.wikipedia.org/wiki/List_of_largest_banks"),
		RateTablePath: getEnv("BANKS_RATE_TABLE_PATH", "exchange_rate.csv"),
		CSVPath:       getEnv("BANKS_CSV_PATH", "Largest_banks_data.csv"),
		LogPath:       getEnv("BANKS_LOG_PATH", "code_log.txt"),
		DB: DBConfig{
			Driver: getEnv("BANKS_DB_DRIVER", DriverSQLite),
			DSN:    getEnv("BANKS_DB_DSN", "Banks.db"),
			Table:  getEnv("BANKS_TABLE_NAME", "Largest_banks"),
		},
		Query:       getEnv("BANKS_QUERY", "SELECT Name from Largest_banks LIMIT 5"),
		HTTPTimeout: time.Duration(getEnvInt("BANKS_HTTP_TIMEOUT_SECONDS", 0)) * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt falls back to the default on unset, malformed or negative values.
func getEnvInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil || value < 0 {
		return defaultValue
	}
	return value
}
