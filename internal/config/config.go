package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"ffsync/internal/log"
)

type Config struct {
	// Sheet backend
	SheetBackend  string
	LayoutsFile   string
	XLSXDir       string
	SQLiteDBPath  string
	MemorySeedDir string

	// Google Sheets
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientJSON    string
	GoogleOAuthTokenJSON     string

	// Metrics API
	XAPIBaseURL     string
	XAPIKeys        []string
	MetricsTestMode bool
	FetchDelay      time.Duration

	// Runs
	DryRun      bool
	RunInterval time.Duration

	// AMQP report publishing, disabled when AMQPURL is empty
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	LogLevel string
}

var validBackends = []string{"sheets", "xlsx", "sqlite", "memory"}

func Load() *Config {
	serviceAccountFile := getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	if serviceAccountFile == "" {
		serviceAccountFile = getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")
	}

	return &Config{
		SheetBackend:  getEnv("SHEET_BACKEND", "sheets"),
		LayoutsFile:   getEnv("LAYOUTS_FILE", "layouts.toml"),
		XLSXDir:       getEnv("XLSX_DIR", "./data/xlsx"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/ffsync.db"),
		MemorySeedDir: getEnv("MEMORY_SEED_DIR", "./data/seed"),

		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: serviceAccountFile,
		GoogleOAuthClientJSON:    getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthTokenJSON:     getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),

		XAPIBaseURL:     getEnv("X_API_BASE_URL", "https://api.twitter.com"),
		XAPIKeys:        getEnvList("X_API_KEYS"),
		MetricsTestMode: getEnvBool("METRICS_TEST_MODE", false),
		FetchDelay:      getEnvDuration("FETCH_DELAY", time.Second),

		DryRun:      getEnvBool("DRY_RUN", false),
		RunInterval: getEnvDuration("RUN_INTERVAL", 15*time.Minute),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "ffsync"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "write_reports"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if !slices.Contains(validBackends, c.SheetBackend) {
		errors = append(errors, fmt.Sprintf("invalid sheet backend '%s': must be one of %v", c.SheetBackend, validBackends))
	}

	if c.LayoutsFile == "" {
		errors = append(errors, "layouts file path cannot be empty")
	}

	switch c.SheetBackend {
	case "sheets":
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && c.GoogleOAuthClientJSON == "" {
			errors = append(errors, "Google credentials are required when using sheets backend (GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_OAUTH_CLIENT_JSON)")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" &&
			c.GoogleOAuthClientJSON != "" && c.GoogleOAuthTokenJSON == "" {
			errors = append(errors, "GOOGLE_OAUTH_TOKEN_JSON must be provided with GOOGLE_OAUTH_CLIENT_JSON")
		}
	case "xlsx":
		if c.XLSXDir == "" {
			errors = append(errors, "XLSX directory cannot be empty when using xlsx backend")
		} else if fi, err := os.Stat(c.XLSXDir); err != nil || !fi.IsDir() {
			errors = append(errors, fmt.Sprintf("XLSX directory does not exist: %s", c.XLSXDir))
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if !c.MetricsTestMode {
		if len(c.XAPIKeys) == 0 {
			errors = append(errors, "X_API_KEYS is required unless METRICS_TEST_MODE is enabled")
		}
		if u, err := url.Parse(c.XAPIBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid X API base URL '%s': must be an http(s) URL", c.XAPIBaseURL))
		}
	}

	if c.FetchDelay < 0 {
		errors = append(errors, fmt.Sprintf("invalid fetch delay %v: must not be negative", c.FetchDelay))
	}

	if c.RunInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid run interval %v: must be at least 1 minute", c.RunInterval))
	} else if c.RunInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid run interval %v: must be at most 24 hours", c.RunInterval))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level: %v", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
