package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:         AppConfig{Environment: "development"},
		Logger:      LoggerConfig{Level: "info"},
		Data:        DataConfig{BasePath: "/some/path"},
		BooksAPI:    BooksAPIConfig{URL: "http://books.test/api", RequestsPerSecond: 5, Burst: 10},
		Credentials: CredentialsConfig{Backend: BackendBadger, Path: "/some/path/credentials"},
	}
}

// noEnvFile points LoadConfig at a .env that does not exist.
func noEnvFile(t *testing.T) string {
	t.Helper()
	return "-env-file=" + filepath.Join(t.TempDir(), "missing.env")
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true},  // case insensitive
		{"trace", false}, // not supported
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_Credentials(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		path    string
		wantErr string
	}{
		{name: "badger", backend: BackendBadger, path: "/data/credentials"},
		{name: "sqlite", backend: BackendSQLite, path: "/data/credentials.db"},
		{name: "file", backend: BackendFile, path: "/data/credentials.json"},
		{name: "memory needs no path", backend: BackendMemory},
		{name: "missing path", backend: BackendSQLite, wantErr: "credentials path is required"},
		{name: "unknown backend", backend: "redis", path: "/x", wantErr: "invalid credentials backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Credentials = CredentialsConfig{Backend: tt.backend, Path: tt.path}

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_BooksAPI(t *testing.T) {
	cfg := validConfig()
	cfg.BooksAPI.URL = ""
	assert.ErrorContains(t, cfg.Validate(), "books API URL is required")

	cfg = validConfig()
	cfg.BooksAPI.RequestsPerSecond = -1
	assert.ErrorContains(t, cfg.Validate(), "cannot be negative")

	cfg = validConfig()
	cfg.BooksAPI.Burst = 0
	assert.ErrorContains(t, cfg.Validate(), "burst must be at least 1")
}

func TestValidate_EmptyDataPath(t *testing.T) {
	cfg := validConfig()
	cfg.Data.BasePath = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data base path cannot be empty")
}

func TestExpandDataPath_EmptyUsesDefault(t *testing.T) {
	cfg := &Config{}

	require.NoError(t, cfg.expandDataPath())

	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup
	assert.Equal(t, filepath.Join(homeDir, "BookCatalog"), cfg.Data.BasePath)
}

func TestExpandDataPath_TildeExpansion(t *testing.T) {
	cfg := &Config{Data: DataConfig{BasePath: "~/my-data"}}

	require.NoError(t, cfg.expandDataPath())

	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup
	assert.Equal(t, filepath.Join(homeDir, "my-data"), cfg.Data.BasePath)
}

func TestExpandDataPath_RelativePath(t *testing.T) {
	cfg := &Config{Data: DataConfig{BasePath: "relative/path"}}

	require.NoError(t, cfg.expandDataPath())

	assert.True(t, filepath.IsAbs(cfg.Data.BasePath))
	assert.Contains(t, cfg.Data.BasePath, "relative/path")
}

func TestExpandCredentialsPath_Defaults(t *testing.T) {
	tests := []struct {
		backend string
		want    string
	}{
		{BackendBadger, "/data/credentials"},
		{BackendSQLite, "/data/credentials.db"},
		{BackendFile, "/data/credentials.json"},
		{BackendMemory, ""},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := &Config{
				Data:        DataConfig{BasePath: "/data"},
				Credentials: CredentialsConfig{Backend: tt.backend},
			}

			require.NoError(t, cfg.expandCredentialsPath())
			assert.Equal(t, tt.want, cfg.Credentials.Path)
		})
	}
}

func TestExpandCredentialsPath_Explicit(t *testing.T) {
	cfg := &Config{
		Data:        DataConfig{BasePath: "/data"},
		Credentials: CredentialsConfig{Backend: BackendSQLite, Path: "/elsewhere/creds.db"},
	}

	require.NoError(t, cfg.expandCredentialsPath())
	assert.Equal(t, "/elsewhere/creds.db", cfg.Credentials.Path)
}

func TestGetConfigValue_Precedence(t *testing.T) {
	// Test flag value takes priority.
	assert.Equal(t, "flag-value", getConfigValue("flag-value", "TEST_ENV_KEY", "default-value"))

	t.Setenv("TEST_ENV_KEY", "env-value")
	assert.Equal(t, "env-value", getConfigValue("", "TEST_ENV_KEY", "default-value"))

	assert.Equal(t, "default-value", getConfigValue("", "NONEXISTENT_KEY", "default-value"))
}

func TestGetBoolConfigValue(t *testing.T) {
	assert.True(t, getBoolConfigValue("yes", "UNUSED_KEY", false))
	assert.True(t, getBoolConfigValue("1", "UNUSED_KEY", false))
	assert.False(t, getBoolConfigValue("off", "UNUSED_KEY", true))
	assert.True(t, getBoolConfigValue("", "UNUSED_KEY", true))
}

func TestGetIntConfigValue_InvalidFallsBack(t *testing.T) {
	assert.Equal(t, 7, getIntConfigValue("abc", "UNUSED_KEY", 7))
	assert.Equal(t, 3, getIntConfigValue("3", "UNUSED_KEY", 7))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, splitList(" http://a, ,http://b "))
	assert.Nil(t, splitList(""))
}

func TestLoadConfig_Defaults(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("DATA_PATH", dataDir)

	cfg, err := LoadConfig([]string{noEnvFile(t)})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Zero(t, cfg.Server.WriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, "https://mongodbapi-w61d.onrender.com/api", cfg.BooksAPI.URL)
	assert.Equal(t, 30*time.Second, cfg.BooksAPI.Timeout)
	assert.InDelta(t, 5.0, cfg.BooksAPI.RequestsPerSecond, 0.001)
	assert.Equal(t, 10, cfg.BooksAPI.Burst)
	assert.Equal(t, BackendBadger, cfg.Credentials.Backend)
	assert.Equal(t, filepath.Join(dataDir, "credentials"), cfg.Credentials.Path)
	assert.True(t, cfg.Catalog.FetchOnStart)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("DATA_PATH", t.TempDir())
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("CREDENTIALS_BACKEND", "sqlite")

	cfg, err := LoadConfig([]string{
		noEnvFile(t),
		"-port=9100",
		"-credentials-backend=memory",
		"-fetch-on-start=false",
		"-books-api-timeout=5s",
	})
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, BackendMemory, cfg.Credentials.Backend)
	assert.Empty(t, cfg.Credentials.Path)
	assert.False(t, cfg.Catalog.FetchOnStart)
	assert.Equal(t, 5*time.Second, cfg.BooksAPI.Timeout)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := `# Test env file
ENV=staging
CORS_ORIGINS=http://localhost:3000,http://localhost:5173
BOOKS_API_URL="http://books.test/api"
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	t.Setenv("DATA_PATH", dir)
	// An explicit environment value wins over the file.
	t.Setenv("ENV", "production")
	// t.Setenv restores both after the test; the file only fills unset keys.
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("BOOKS_API_URL", "")
	os.Unsetenv("CORS_ORIGINS")  //nolint:errcheck // Test setup
	os.Unsetenv("BOOKS_API_URL") //nolint:errcheck // Test setup

	cfg, err := LoadConfig([]string{"-env-file=" + envFile})
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.App.Environment)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "http://books.test/api", cfg.BooksAPI.URL)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"bad duration", []string{"-read-timeout=soon"}, "SERVER_READ_TIMEOUT"},
		{"bad rate", []string{"-books-api-rps=fast"}, "invalid books API rate"},
		{"bad env", []string{"-env=test"}, "invalid environment"},
		{"bad backend", []string{"-credentials-backend=redis"}, "invalid credentials backend"},
		{"unknown flag", []string{"-nope"}, "parse flags"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATA_PATH", t.TempDir())

			_, err := LoadConfig(append([]string{noEnvFile(t)}, tt.args...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
