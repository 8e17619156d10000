// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Credential store backends.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Config holds the application configuration.
type Config struct {
	App         AppConfig
	Logger      LoggerConfig
	Data        DataConfig
	Server      ServerConfig
	BooksAPI    BooksAPIConfig
	Credentials CredentialsConfig
	Catalog     CatalogConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds local storage configuration.
type DataConfig struct {
	BasePath string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	CORSOrigins  []string      // Allowed origins (default: *)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 0, SSE streams are long lived)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// BooksAPIConfig holds the remote book service configuration.
type BooksAPIConfig struct {
	URL               string
	ProxyAddr         string // Optional SOCKS5 proxy (host:port)
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// CredentialsConfig selects where the session token and user id live.
type CredentialsConfig struct {
	Backend string // badger, sqlite, file or memory (default: badger)
	Path    string // Defaults to a backend specific location under the data path
}

// CatalogConfig holds catalog behavior toggles.
type CatalogConfig struct {
	FetchOnStart bool
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("bookcatalog", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for local data")

	// Server flags
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 0)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma separated allowed origins (default: *)")

	// Book service flags
	booksURL := fs.String("books-api-url", "", "Book service base URL")
	booksTimeout := fs.String("books-api-timeout", "", "Book service request timeout (default: 30s)")
	booksRPS := fs.String("books-api-rps", "", "Book service requests per second (default: 5)")
	booksBurst := fs.String("books-api-burst", "", "Book service burst size (default: 10)")
	booksProxy := fs.String("books-api-proxy", "", "SOCKS5 proxy for the book service (host:port)")

	// Credential flags
	credBackend := fs.String("credentials-backend", "", "Credential store (badger, sqlite, file, memory)")
	credPath := fs.String("credentials-path", "", "Credential store location")

	fetchOnStart := fs.String("fetch-on-start", "", "Fetch the catalog at startup (default: true)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "*")),
		},
		BooksAPI: BooksAPIConfig{
			URL:       getConfigValue(*booksURL, "BOOKS_API_URL", "https://mongodbapi-w61d.onrender.com/api"),
			ProxyAddr: getConfigValue(*booksProxy, "BOOKS_API_PROXY", ""),
			Burst:     getIntConfigValue(*booksBurst, "BOOKS_API_BURST", 10),
		},
		Credentials: CredentialsConfig{
			Backend: strings.ToLower(getConfigValue(*credBackend, "CREDENTIALS_BACKEND", BackendBadger)),
			Path:    getConfigValue(*credPath, "CREDENTIALS_PATH", ""),
		},
		Catalog: CatalogConfig{
			FetchOnStart: getBoolConfigValue(*fetchOnStart, "FETCH_ON_START", true),
		},
	}

	rpsStr := getConfigValue(*booksRPS, "BOOKS_API_RPS", "5")
	rps, err := strconv.ParseFloat(rpsStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid books API rate %q: %w", rpsStr, err)
	}
	cfg.BooksAPI.RequestsPerSecond = rps

	durations := []struct {
		flag, key, def string
		dst            *time.Duration
	}{
		{*booksTimeout, "BOOKS_API_TIMEOUT", "30s", &cfg.BooksAPI.Timeout},
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "0s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flag, d.key, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.key, raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.expandCredentialsPath(); err != nil {
		return nil, fmt.Errorf("invalid credentials path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	switch c.Credentials.Backend {
	case BackendBadger, BackendSQLite, BackendFile:
		if c.Credentials.Path == "" {
			return fmt.Errorf("credentials path is required for the %s backend", c.Credentials.Backend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("invalid credentials backend: %s (must be badger, sqlite, file, or memory)", c.Credentials.Backend)
	}

	if c.BooksAPI.URL == "" {
		return errors.New("books API URL is required")
	}
	if c.BooksAPI.RequestsPerSecond < 0 {
		return fmt.Errorf("books API rate cannot be negative: %v", c.BooksAPI.RequestsPerSecond)
	}
	if c.BooksAPI.Burst < 1 {
		return fmt.Errorf("books API burst must be at least 1: %d", c.BooksAPI.Burst)
	}

	return nil
}

// IsDevelopment reports whether the app runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath defaults the data path to ~/BookCatalog.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "BookCatalog")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// expandCredentialsPath picks a backend specific default under the data path.
// The memory backend has no path.
func (c *Config) expandCredentialsPath() error {
	var defaultPath string
	switch c.Credentials.Backend {
	case BackendBadger:
		defaultPath = filepath.Join(c.Data.BasePath, "credentials")
	case BackendSQLite:
		defaultPath = filepath.Join(c.Data.BasePath, "credentials.db")
	case BackendFile:
		defaultPath = filepath.Join(c.Data.BasePath, "credentials.json")
	default:
		c.Credentials.Path = ""
		return nil
	}

	expanded, err := expandPath(c.Credentials.Path, defaultPath)
	if err != nil {
		return err
	}
	c.Credentials.Path = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Variables already present in the environment win over the file.
func loadEnvFile(path string) error {
	return godotenv.Load(path)
}
