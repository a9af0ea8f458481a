package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port            string
	ShutdownTimeout time.Duration
	TrustedProxies  []string
	RateLimitAuth   int

	// Logging
	LogLevel  string
	LogFormat string

	// Database
	DBDriver     string
	SQLiteDBPath string
	DatabaseURL  string

	// Identity
	JWTSecret        string
	JWTExpire        time.Duration
	IdentityCacheTTL time.Duration

	// Seeded admin account
	SeedDefaultAdmin     bool
	DefaultAdminName     string
	DefaultAdminEmail    string
	DefaultAdminPassword string

	// AMQP; an empty URL disables event publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Ledger export (worker)
	LedgerBackend         string
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleOAuthClientFile string
	GoogleOAuthTokenFile  string
	GoogleOAuthClientJSON string
	GoogleOAuthTokenJSON  string
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	LedgerMemory = "memory"
	LedgerSheets = "sheets"

	minJWTSecretLength = 16
)

func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "5000"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		TrustedProxies:  getEnvList("TRUSTED_PROXIES"),
		RateLimitAuth:   getEnvInt("RATE_LIMIT_AUTH", 20),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		DBDriver:     getEnv("DB_DRIVER", DriverSQLite),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/projex.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTExpire:        getEnvDuration("JWT_EXPIRE", 720*time.Hour),
		IdentityCacheTTL: getEnvDuration("IDENTITY_CACHE_TTL", 5*time.Minute),

		SeedDefaultAdmin:     getEnvBool("SEED_DEFAULT_ADMIN", true),
		DefaultAdminName:     getEnv("DEFAULT_ADMIN_NAME", "Admin"),
		DefaultAdminEmail:    getEnv("DEFAULT_ADMIN_EMAIL", "admin@kwahala.com"),
		DefaultAdminPassword: getEnv("DEFAULT_ADMIN_PASSWORD", "admin123"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "projex"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "projex_ledger"),

		LedgerBackend:         getEnv("LEDGER_BACKEND", LedgerMemory),
		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", "Ledger"),
		GoogleOAuthClientFile: getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:  getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		GoogleOAuthClientJSON: getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthTokenJSON:  getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),
	}
}

// Validate checks the settings shared by every process.
func (c *Config) Validate() error {
	return joinProblems(c.commonProblems())
}

// ValidateServer checks what the HTTP API needs on top of Validate.
func (c *Config) ValidateServer() error {
	problems := c.commonProblems()

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	} else if len(c.JWTSecret) < minJWTSecretLength {
		problems = append(problems, fmt.Sprintf("JWT_SECRET must be at least %d characters", minJWTSecretLength))
	}
	if c.JWTExpire <= 0 {
		problems = append(problems, fmt.Sprintf("invalid JWT_EXPIRE %v: must be positive", c.JWTExpire))
	}
	if c.IdentityCacheTTL < 0 {
		problems = append(problems, fmt.Sprintf("invalid IDENTITY_CACHE_TTL %v: must not be negative", c.IdentityCacheTTL))
	}
	if c.RateLimitAuth < 1 {
		problems = append(problems, fmt.Sprintf("invalid RATE_LIMIT_AUTH %d: must be at least 1", c.RateLimitAuth))
	}

	if c.SeedDefaultAdmin {
		if c.DefaultAdminEmail == "" {
			problems = append(problems, "DEFAULT_ADMIN_EMAIL is required when SEED_DEFAULT_ADMIN is set")
		}
		if len(c.DefaultAdminPassword) < 6 {
			problems = append(problems, "DEFAULT_ADMIN_PASSWORD must be at least 6 characters")
		}
	}

	return joinProblems(problems)
}

// ValidateWorker checks what the ledger worker needs on top of Validate.
func (c *Config) ValidateWorker() error {
	problems := c.commonProblems()

	if c.AMQPURL == "" {
		problems = append(problems, "AMQP_URL is required for the worker")
	}

	switch c.LedgerBackend {
	case LedgerMemory:
	case LedgerSheets:
		if c.GoogleSpreadsheetID == "" {
			problems = append(problems, "Google Spreadsheet ID is required when using sheets ledger")
		}
		if c.GoogleSheetName == "" {
			problems = append(problems, "Google Sheet name is required when using sheets ledger")
		}
		hasClientFile := c.GoogleOAuthClientFile != ""
		if !hasClientFile && c.GoogleOAuthClientJSON == "" {
			problems = append(problems, "either GOOGLE_OAUTH_CLIENT_FILE or GOOGLE_OAUTH_CLIENT_JSON must be provided for sheets ledger")
		}
		hasTokenFile := c.GoogleOAuthTokenFile != ""
		if !hasTokenFile && c.GoogleOAuthTokenJSON == "" {
			problems = append(problems, "either GOOGLE_OAUTH_TOKEN_FILE or GOOGLE_OAUTH_TOKEN_JSON must be provided for sheets ledger")
		}
		if hasClientFile {
			if _, err := os.Stat(c.GoogleOAuthClientFile); os.IsNotExist(err) {
				problems = append(problems, fmt.Sprintf("Google OAuth client file does not exist: %s", c.GoogleOAuthClientFile))
			}
		}
		if hasTokenFile {
			if _, err := os.Stat(c.GoogleOAuthTokenFile); os.IsNotExist(err) {
				problems = append(problems, fmt.Sprintf("Google OAuth token file does not exist: %s", c.GoogleOAuthTokenFile))
			}
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid ledger backend '%s': must be one of [%s %s]", c.LedgerBackend, LedgerMemory, LedgerSheets))
	}

	return joinProblems(problems)
}

func (c *Config) commonProblems() []string {
	var problems []string

	switch c.DBDriver {
	case DriverSQLite:
		if c.SQLiteDBPath == "" {
			problems = append(problems, "SQLite database path cannot be empty when using sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required when using postgres driver")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			problems = append(problems, "invalid DATABASE_URL: must be a postgres:// URL")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid database driver '%s': must be one of [%s %s]", c.DBDriver, DriverSQLite, DriverPostgres))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.ShutdownTimeout < time.Second {
		problems = append(problems, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}

	return problems
}

func joinProblems(problems []string) error {
	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
