package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "flipscout", cfg.Service.Name)
	assert.Equal(t, 8090, cfg.Service.Port)
	assert.Equal(t, "default", cfg.Service.OwnerID)
	assert.Equal(t, "0 */6 * * *", cfg.Scheduler.Schedule)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "flipscout", cfg.Database.Database)
	assert.Equal(t, 3, cfg.Market.MinSamples)
}

func TestLoad_MissingFileTolerated(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	assert.Equal(t, 8090, cfg.Service.Port)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeConfigFile(t, `
service:
  name: flipscout-dev
  port: 9000
database:
  host: db.internal
  user: scout
scoring:
  min_value_score: 80
  max_price: 750
scheduler:
  enabled: true
  keywords:
    - nintendo switch
    - dewalt drill
  platforms:
    - ebay
    - craigslist
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "flipscout-dev", cfg.Service.Name)
	assert.Equal(t, 9000, cfg.Service.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "scout", cfg.Database.User)
	assert.Equal(t, 80, cfg.Scoring.MinValueScore)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, []string{"nintendo switch", "dewalt drill"}, cfg.Scheduler.Keywords)

	criteria := cfg.Scoring.Criteria()
	assert.Equal(t, 80, criteria.MinValueScore)
	assert.InDelta(t, 750.0, criteria.MaxPrice, 0.001)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
service:
  port: 9000
database:
  host: db.internal
`)
	t.Setenv("FLIPSCOUT_PORT", "9100")
	t.Setenv("POSTGRES_HOST", "db.override")
	t.Setenv("SCAN_KEYWORDS", "vintage camera, record player")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Service.Port)
	assert.Equal(t, "db.override", cfg.Database.Host)
	assert.Equal(t, []string{"vintage camera", "record player"}, cfg.Scheduler.Keywords)
}

func TestLoad_InvalidPortRejected(t *testing.T) {
	path := writeConfigFile(t, "service:\n  port: 70000\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
}

func TestLoad_InvalidScoreRejected(t *testing.T) {
	path := writeConfigFile(t, "scoring:\n  min_value_score: 150\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_value_score")
}

func TestLoad_UnknownSchedulerPlatformRejected(t *testing.T) {
	path := writeConfigFile(t, "scheduler:\n  platforms:\n    - myspace\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "myspace")
}

func TestLoad_MalformedYAMLRejected(t *testing.T) {
	path := writeConfigFile(t, "service: [\n")

	_, err := Load(path)
	require.Error(t, err)
}
