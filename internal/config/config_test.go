package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"DB_PATH", "PORT", "APP_ENV", "LOG_LEVEL", "LOG_FORMAT", "COLLATION_LOCALE", "METRICS_ENABLED",
}

// clearEnv unsets every config key for the test. godotenv treats a key set to
// the empty string as present, so t.Setenv("", ...) is not enough.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "./dev.db", cfg.DBPath)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "zh", cfg.CollationLocale.String())
	assert.True(t, cfg.MetricsEnabled)
	assert.True(t, cfg.IsDev())
}

func TestLoadFrom_ReadsDotEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	content := []byte(`
# comment

DB_PATH=/var/lib/quote.db
export PORT=9090
LOG_FORMAT="console"
COLLATION_LOCALE=fr
METRICS_ENABLED=false
APP_ENV=prod
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/quote.db", cfg.DBPath)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "fr", cfg.CollationLocale.String())
	assert.False(t, cfg.MetricsEnabled)
	assert.False(t, cfg.IsDev())
}

func TestLoadFrom_DoesNotOverwriteExistingEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7000")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=9999\n"), 0o600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
}

func TestLoadFrom_RejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"METRICS_ENABLED":  "maybe",
		"LOG_FORMAT":       "xml",
		"COLLATION_LOCALE": "not a locale!",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.env"))
			require.Error(t, err)
		})
	}
}
