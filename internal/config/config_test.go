package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chdirTemp switches to an empty directory so no config.yaml or .env is found
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Contains(t, cfg.Sources.CasesURL, "tabelle-bezirke-gesamtuebersicht")
	assert.Equal(t, 0, cfg.Sources.CasesTableIndex)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Demographics_of_Berlin", cfg.Sources.PopulationURL)
	assert.Equal(t, 4, cfg.Sources.PopulationTableIndex)
	assert.Equal(t, "Population 2010", cfg.Sources.PopulationColumn)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout())
	assert.Equal(t, 2, cfg.HTTP.MaxRetries)
	assert.Equal(t, "data", cfg.Output.Dir)
	assert.Equal(t, "0 6 * * *", cfg.Schedule.Cron)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "Gemeinde_name", cfg.Geo.FeatureKey)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
sources:
  population_table_index: 3
output:
  dir: /tmp/covid
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Sources.PopulationTableIndex)
	assert.Equal(t, "/tmp/covid", cfg.Output.Dir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, "Population 2010", cfg.Sources.PopulationColumn)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
output:
  dir: from-file
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))
	t.Setenv("COVID_OUTPUT_DIR", "from-env")
	t.Setenv("COVID_SCHEDULE_CRON", "*/5 * * * *")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Output.Dir)
	assert.Equal(t, "*/5 * * * *", cfg.Schedule.Cron)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("COVID_TELEGRAM_TOKEN=secret\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("COVID_TELEGRAM_TOKEN") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Telegram.Token)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("output: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func validDefaults() *Config {
	cfg := &Config{}
	cfg.HTTP.TimeoutSecs = 30
	cfg.Output.Dir = "data"
	cfg.Schedule.Cron = "0 6 * * *"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateScrape(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("scrape"))

	cfg.HTTP.TimeoutSecs = 0
	cfg.Sources.CasesTableIndex = -1
	err := cfg.Validate("scrape")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http.timeout_secs")
	assert.Contains(t, err.Error(), "table indexes")
}

func TestValidateScheduleCron(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("schedule"))

	cfg.Schedule.Cron = "every morning"
	err := cfg.Validate("schedule")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedule.cron")
}

func TestValidateServe(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate("serve"))
}

func TestValidateBot(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("bot")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram.token is required")

	cfg.Telegram.Token = "token"
	assert.NoError(t, cfg.Validate("bot"))
}

func TestValidateUnknownMode(t *testing.T) {
	assert.Error(t, validDefaults().Validate("export"))
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)
}
