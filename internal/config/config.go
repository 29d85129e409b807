package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends
const (
	BackendXLSX     = "xlsx"
	BackendPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration, used by the postgres backend
	Database DatabaseConfig

	// Storage backend and table names
	Storage StorageConfig

	// Ledger reconciliation and reporting
	Ledger LedgerConfig

	// Access policy
	Policy PolicyConfig

	// Roster import configuration
	Import ImportConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    time.Duration
	MigrationsPath string
}

// StorageConfig selects where the tables live
type StorageConfig struct {
	Backend           string
	XLSXPath          string
	LedgerTable       string
	RosterTable       string
	ImportsTable      string
	ImportErrorsTable string
}

// LedgerConfig holds reconciliation and reporting settings
type LedgerConfig struct {
	// KeyIncludesSubmitter adds the submitter to the duplicate key
	KeyIncludesSubmitter bool
	ReportWindowDays     int
	Timezone             string
}

// PolicyConfig points at an access policy file; empty uses the built-in table
type PolicyConfig struct {
	File string
}

// ImportConfig holds roster import settings
type ImportConfig struct {
	MaxUploadSize int64 // in bytes
	MaxErrors     int   // per-line errors returned inline
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from environment variables, after loading any
// .env.local and .env files in the working directory
func Load() (*Config, error) {
	loadEnvFiles()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			Name:           getEnv("DB_NAME", "attendance_ledger"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:   getIntEnv("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:   getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:    getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
		},
		Storage: StorageConfig{
			Backend:           strings.ToLower(getEnv("STORAGE_BACKEND", BackendXLSX)),
			XLSXPath:          getEnv("XLSX_PATH", "./data/asistencia.xlsx"),
			LedgerTable:       getEnv("LEDGER_TABLE", "asistencia"),
			RosterTable:       getEnv("ROSTER_TABLE", "personas"),
			ImportsTable:      getEnv("IMPORTS_TABLE", "importaciones"),
			ImportErrorsTable: getEnv("IMPORT_ERRORS_TABLE", "errores_importacion"),
		},
		Ledger: LedgerConfig{
			KeyIncludesSubmitter: getBoolEnv("DUPLICATE_KEY_INCLUDES_SUBMITTER", false),
			ReportWindowDays:     getIntEnv("REPORT_WINDOW_DAYS", 30),
			Timezone:             getEnv("TIMEZONE", "America/Argentina/Buenos_Aires"),
		},
		Policy: PolicyConfig{
			File: getEnv("POLICY_FILE", ""),
		},
		Import: ImportConfig{
			MaxUploadSize: getInt64Env("MAX_UPLOAD_SIZE", 10*1024*1024), // 10MB
			MaxErrors:     getIntEnv("IMPORT_MAX_INLINE_ERRORS", 100),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendXLSX:
		if c.Storage.XLSXPath == "" {
			return fmt.Errorf("XLSX_PATH is required for the xlsx backend")
		}
	case BackendPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	if c.Ledger.ReportWindowDays <= 0 {
		return fmt.Errorf("REPORT_WINDOW_DAYS must be positive")
	}
	if _, err := time.LoadLocation(c.Ledger.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Ledger.Timezone, err)
	}
	return nil
}

// Location returns the configured timezone; Validate guarantees it loads
func (c *LedgerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// .env.local is loaded first; godotenv never overrides a variable that is
// already set, so it wins over .env and both lose to the real environment
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
