package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

const (
	defaultDBPath    = "./dev.db"
	defaultPort      = "8080"
	defaultAppEnv    = "dev"
	defaultLogLevel  = "info"
	defaultLogFormat = "json"
	defaultLocale    = "zh"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	DBPath          string
	Port            string
	AppEnv          string
	LogLevel        string
	LogFormat       string
	CollationLocale language.Tag
	MetricsEnabled  bool
}

// IsDev reports whether the process runs in the local development profile.
func (c Config) IsDev() bool {
	return c.AppEnv == "" || strings.EqualFold(c.AppEnv, "dev")
}

// Load reads the optional .env file and then the process environment.
func Load() (Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with an explicit dotenv path. A missing file is not an
// error; production injects real environment variables. Variables already
// present in the environment win over the file.
func LoadFrom(path string) (Config, error) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", path, err)
	}

	cfg := Config{
		DBPath:    getString("DB_PATH", defaultDBPath),
		Port:      getString("PORT", defaultPort),
		AppEnv:    getString("APP_ENV", defaultAppEnv),
		LogLevel:  getString("LOG_LEVEL", defaultLogLevel),
		LogFormat: getString("LOG_FORMAT", defaultLogFormat),
	}

	tag, err := language.Parse(getString("COLLATION_LOCALE", defaultLocale))
	if err != nil {
		return Config{}, fmt.Errorf("parse COLLATION_LOCALE: %w", err)
	}
	cfg.CollationLocale = tag

	metrics, err := getBool("METRICS_ENABLED", true)
	if err != nil {
		return Config{}, err
	}
	cfg.MetricsEnabled = metrics

	switch cfg.LogFormat {
	case "json", "console":
	default:
		return Config{}, fmt.Errorf("LOG_FORMAT must be json or console, got %q", cfg.LogFormat)
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}
