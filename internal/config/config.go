package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

type Config struct {
	API     APIConfig
	Storage StorageConfig
	Log     LogConfig
}

type APIConfig struct {
	BaseURL      string
	Token        string
	Timeout      time.Duration
	WriteTimeout time.Duration
}

type StorageConfig struct {
	DBPath string // empty means the store default
}

type LogConfig struct {
	File  string
	Level string
}

// Load reads configuration from the environment after merging the given
// .env files (default ".env"). Missing files are skipped; variables already
// set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	return &Config{
		API: APIConfig{
			BaseURL:      getEnv("NEXUS_API_URL", "http://localhost:8000/api"),
			Token:        getEnv("NEXUS_TOKEN", ""),
			Timeout:      getEnvAsDuration("NEXUS_HTTP_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("NEXUS_WRITE_TIMEOUT", 15*time.Second),
		},
		Storage: StorageConfig{
			DBPath: getEnv("NEXUS_DB_PATH", ""),
		},
		Log: LogConfig{
			File:  getEnv("NEXUS_LOG_FILE", defaultLogFile()),
			Level: getEnv("NEXUS_LOG_LEVEL", "info"),
		},
	}, nil
}

func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.API.BaseURL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("NEXUS_API_URL: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("NEXUS_API_URL: scheme must be http or https, got %q", u.Scheme))
	case u.Host == "":
		errs = append(errs, errors.New("NEXUS_API_URL: missing host"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("NEXUS_HTTP_TIMEOUT must be positive"))
	}
	if c.API.WriteTimeout <= 0 {
		errs = append(errs, errors.New("NEXUS_WRITE_TIMEOUT must be positive"))
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("NEXUS_LOG_LEVEL: %w", err))
	}
	return errors.Join(errs...)
}

// LogLevel is the parsed level, info when invalid.
func (c *Config) LogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

func defaultLogFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "nexus.log")
	}
	return filepath.Join(dir, "nexus", "nexus.log")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration accepts a Go duration ("15s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	if secs := getEnvAsInt(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
